package everflow

import "time"

// Config holds the Everflow connection settings used by the metric source.
type Config struct {
	APIKey       string
	BaseURL      string
	TimezoneID   int
	CurrencyID   string
	AffiliateIDs []string
	MaxRetries   int
	Timeout      time.Duration
}

// Entity report column types used to group the daily flow.
const (
	ColumnOffer      = "offer"
	ColumnAffiliate  = "affiliate"
	ColumnAdvertiser = "advertiser"
	ColumnCountry    = "country"
	ColumnDate       = "date"
)

// Filter narrows a report to one resource.
type Filter struct {
	ResourceType  string `json:"resource_type"`
	FilterIDValue string `json:"filter_id_value"`
}

// EntityReportRequest is the request for the entity reporting endpoint
type EntityReportRequest struct {
	TimezoneID int                  `json:"timezone_id"`
	CurrencyID string               `json:"currency_id"`
	From       string               `json:"from"`
	To         string               `json:"to"`
	Columns    []EntityReportColumn `json:"columns"`
	Query      EntityReportQuery    `json:"query"`
}

type EntityReportColumn struct {
	Column string `json:"column"`
}

type EntityReportQuery struct {
	Filters []Filter `json:"filters"`
}

// EntityReportResponse is the response from the entity reporting endpoint
type EntityReportResponse struct {
	Summary EntityReportSummary `json:"summary"`
	Table   []EntityReportRow   `json:"table"`
}

// EntityReportSummary contains the reporting metrics of one row.
type EntityReportSummary struct {
	TotalClick  int64   `json:"total_click"`
	UniqueClick int64   `json:"unique_click"`
	Conversions int64   `json:"cv"`
	Payout      float64 `json:"payout"`
	Revenue     float64 `json:"revenue"`
	Profit      float64 `json:"profit"`
}

// EntityReportRow represents a row in the entity report table
type EntityReportRow struct {
	Columns   []EntityColumnValue `json:"columns"`
	Reporting EntityReportSummary `json:"reporting"`
}

// EntityColumnValue contains column data
type EntityColumnValue struct {
	ColumnType string `json:"column_type"`
	ID         string `json:"id"`
	Label      string `json:"label"`
}

// column returns the value of the first column of the given type.
func (r EntityReportRow) column(kind string) (EntityColumnValue, bool) {
	for _, c := range r.Columns {
		if c.ColumnType == kind {
			return c, true
		}
	}
	return EntityColumnValue{}, false
}
