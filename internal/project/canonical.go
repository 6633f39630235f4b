package project

// Columns is the canonical column order. Every sink writes exactly these
// columns in this order, whatever adapter produced the rows.
var Columns = []string{
	"original_id",
	"aug_id",
	"country_name",
	"country_code",
	"map_coordinates",
	"url",
	"region_name",
	"region_code",
	"title",
	"description",
	"status",
	"stages",
	"date",
	"procurementMethod",
	"budget",
	"currency",
	"buyer",
	"sector",
	"subsector",
}

// CanonicalRecord is a row in the shared municipal-project schema. Only URL,
// Title, Description, Status and Date are filled by this pipeline; the other
// columns stay empty.
type CanonicalRecord struct {
	OriginalID        string `json:"original_id"`
	AugID             string `json:"aug_id"`
	CountryName       string `json:"country_name"`
	CountryCode       string `json:"country_code"`
	MapCoordinates    string `json:"map_coordinates"`
	URL               string `json:"url"`
	RegionName        string `json:"region_name"`
	RegionCode        string `json:"region_code"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Status            string `json:"status"`
	Stages            string `json:"stages"`
	Date              string `json:"date"`
	ProcurementMethod string `json:"procurementMethod"`
	Budget            string `json:"budget"`
	Currency          string `json:"currency"`
	Buyer             string `json:"buyer"`
	Sector            string `json:"sector"`
	Subsector         string `json:"subsector"`
}

// Values returns the row's cells in Columns order.
func (r CanonicalRecord) Values() []string {
	return []string{
		r.OriginalID,
		r.AugID,
		r.CountryName,
		r.CountryCode,
		r.MapCoordinates,
		r.URL,
		r.RegionName,
		r.RegionCode,
		r.Title,
		r.Description,
		r.Status,
		r.Stages,
		r.Date,
		r.ProcurementMethod,
		r.Budget,
		r.Currency,
		r.Buyer,
		r.Sector,
		r.Subsector,
	}
}

// Normalize maps records scraped from sourceURL into canonical rows, keeping
// input order. Mapped fields that are empty become NotAvailable.
func Normalize(records []RawRecord, sourceURL string) []CanonicalRecord {
	rows := make([]CanonicalRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, CanonicalRecord{
			URL:         sourceURL,
			Title:       OrNotAvailable(rec.Title),
			Description: OrNotAvailable(rec.Description),
			Status:      OrNotAvailable(rec.Status),
			Date:        OrNotAvailable(rec.Date),
		})
	}
	return rows
}
