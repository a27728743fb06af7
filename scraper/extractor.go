package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agridata/mygap-api/models"
	"github.com/agridata/mygap-api/utils"
)

// tableMarkerField is the data-field attribute that anchors the
// certification table. Every listing page carries it on the header cell of
// the certification number column, so it doubles as the structure check.
const tableMarkerField = "no_pensijilan"

// headerAliases maps per-category header variants onto the canonical field
// keys. The AM listing labels the project column kategori_pemohon.
var headerAliases = map[string]string{
	"kategori_pemohon": "projek",
}

type extraction struct {
	records      []models.CertificationRecord
	skippedRows  int
	dateWarnings int
}

func (s *SiteScraper) extractTable(ctx context.Context, body []byte, pageURL string) (*extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseFailureError{URL: pageURL, Reason: fmt.Sprintf("invalid HTML: %v", err)}
	}

	anchor := doc.Find(fmt.Sprintf(`th[data-field=%q]`, tableMarkerField)).First()
	if anchor.Length() == 0 {
		return nil, &ParseFailureError{
			URL:    pageURL,
			Reason: fmt.Sprintf("table marker th[data-field=%s] not found", tableMarkerField),
		}
	}

	table := anchor.Closest("table")
	if table.Length() == 0 {
		return nil, &ParseFailureError{URL: pageURL, Reason: "marker header has no parent table"}
	}

	rows := table.Find("tr")
	headerIdx, colMap := headerColumnMap(rows)
	if len(colMap) == 0 {
		return nil, &ParseFailureError{URL: pageURL, Reason: "no recognized data-field headers in table"}
	}

	ex := &extraction{records: []models.CertificationRecord{}}
	rows.Slice(headerIdx+1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		s.extractRow(ctx, row, colMap, ex)
	})

	return ex, nil
}

// headerColumnMap scans rows for the header row and maps canonical field
// keys to column indices. The first row carrying at least one known
// data-field attribute wins, mirroring how the table is actually rendered.
func headerColumnMap(rows *goquery.Selection) (int, map[string]int) {
	headerIdx := -1
	colMap := map[string]int{}

	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		row.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			field, ok := cell.Attr("data-field")
			if !ok {
				return
			}
			if canonical, aliased := headerAliases[field]; aliased {
				field = canonical
			}
			if isDataField(field) {
				colMap[field] = j
			}
		})
		if len(colMap) > 0 {
			headerIdx = i
			return false
		}
		return true
	})

	return headerIdx, colMap
}

func isDataField(field string) bool {
	for _, f := range models.DataFields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *SiteScraper) extractRow(ctx context.Context, row *goquery.Selection, colMap map[string]int, ex *extraction) {
	cells := row.Find("th, td")
	if cells.Length() == 0 {
		return
	}

	text := func(field string) string {
		idx, ok := colMap[field]
		if !ok || idx >= cells.Length() {
			return ""
		}
		return s.cellValue(ctx, cells.Eq(idx))
	}

	certNo := text("no_pensijilan")
	projek := text("projek")
	nama := text("nama")
	negeri := text("negeri")
	daerah := text("daerah")
	jenis := text("jenis_tanaman")
	komoditi := text("kategori_komoditi")
	kategori := text("kategori_tanaman")
	luas := text("luas_ladang")
	tahun := text("tahun_pensijilan")
	tarikh := text("tarikh_pensijilan")
	tempoh := text("tempoh_sah_laku")

	// Filler rows (pager, spacing) have no content at all; only rows that
	// carry data but lack the mandatory certification number are counted
	// as skipped.
	if certNo == "" {
		if projek != "" || nama != "" || negeri != "" || daerah != "" || jenis != "" ||
			komoditi != "" || kategori != "" || luas != "" || tahun != "" ||
			tarikh != "" || tempoh != "" {
			ex.skippedRows++
			s.log.Warn("skipping row without certification number", "holder_name", nama)
		}
		return
	}

	rec := models.CertificationRecord{
		CertificationNumber: certNo,
		ProjectCategory:     projek,
		HolderName:          nama,
		State:               negeri,
		District:            daerah,
		PlantType:           jenis,
		CommodityCategory:   komoditi,
		PlantCategory:       kategori,
		FarmAreaHectares:    utils.ParseDecimal(luas),
		CertificationYear:   utils.ParseYear(tahun),
		CertificationDate:   models.ParseSourceDate(tarikh),
		ExpiryDate:          models.ParseSourceDate(tempoh),
	}

	if rec.HasExpiryBeforeCertification() {
		ex.dateWarnings++
		s.log.Warn("expiry date precedes certification date",
			"certification_number", rec.CertificationNumber,
			"certification_date", tarikh,
			"expiry_date", tempoh,
		)
	}

	ex.records = append(ex.records, rec)
}

// cellValue returns the cleaned text of a cell, following the fulltext
// dialog link when the site truncated the content with a "More ..." anchor.
func (s *SiteScraper) cellValue(ctx context.Context, cell *goquery.Selection) string {
	raw := strings.TrimSpace(cell.Text())
	if strings.Contains(raw, "More") && strings.Contains(raw, "...") {
		if full := s.resolveTruncated(ctx, cell); full != "" {
			return full
		}
	}
	return utils.CleanCellText(raw)
}
