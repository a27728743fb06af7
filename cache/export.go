package cache

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/agridata/mygap-api/models"
)

// ExportCSV renders records as CSV with a header row, the same companion
// format the dataset has always been published in. Dates render as
// YYYY-MM-DD; nil numeric and date fields render as empty cells.
func ExportCSV(w io.Writer, records []models.CertificationRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(records) == 0 {
		if err := enc.EncodeHeader(models.CertificationRecord{}); err != nil {
			return fmt.Errorf("failed to encode CSV header: %w", err)
		}
	}
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("failed to encode CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
