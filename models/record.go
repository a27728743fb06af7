package models

// CertificationRecord is one row of the MyGAP certification table. Field
// keys follow the data-field attributes the source site uses, which is also
// how the original dataset was published.
//
// CertificationNumber is the only mandatory field; everything else may be
// empty or nil when the source cell is blank or unparsable.
type CertificationRecord struct {
	CertificationNumber string   `json:"no_pensijilan" csv:"no_pensijilan"`
	ProjectCategory     string   `json:"projek" csv:"projek"`
	HolderName          string   `json:"nama" csv:"nama"`
	State               string   `json:"negeri" csv:"negeri"`
	District            string   `json:"daerah" csv:"daerah"`
	PlantType           string   `json:"jenis_tanaman" csv:"jenis_tanaman"`
	CommodityCategory   string   `json:"kategori_komoditi" csv:"kategori_komoditi"`
	PlantCategory       string   `json:"kategori_tanaman" csv:"kategori_tanaman"`
	FarmAreaHectares    *float64 `json:"luas_ladang" csv:"luas_ladang"`
	CertificationYear   *int     `json:"tahun_pensijilan" csv:"tahun_pensijilan"`
	CertificationDate   *Date    `json:"tarikh_pensijilan" csv:"tarikh_pensijilan"`
	ExpiryDate          *Date    `json:"tempoh_sah_laku" csv:"tempoh_sah_laku"`
}

// DataFields lists the source column keys in table order.
var DataFields = []string{
	"no_pensijilan",
	"projek",
	"nama",
	"negeri",
	"daerah",
	"jenis_tanaman",
	"kategori_komoditi",
	"kategori_tanaman",
	"luas_ladang",
	"tahun_pensijilan",
	"tarikh_pensijilan",
	"tempoh_sah_laku",
}

// HasExpiryBeforeCertification reports the source-data inconsistency where a
// certificate expires before it was issued. Treated as a warning upstream.
func (r *CertificationRecord) HasExpiryBeforeCertification() bool {
	if r.CertificationDate == nil || r.ExpiryDate == nil {
		return false
	}
	return r.ExpiryDate.Before(r.CertificationDate.Time)
}
