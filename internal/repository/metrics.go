// Package repository persists finished report runs in Postgres and loads the
// daily flow from SQL warehouses.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// MetricColumns is the select list ScanMetricRows expects, in order.
var MetricColumns = []string{
	"offer_id", "adv_offer_id", "advertiser", "app_id", "geo", "affiliate", "date",
	"clicks", "conversions", "revenue", "cost", "profit", "online_hours",
	"status", "cap", "unit_price",
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// Placeholder renders the n-th (1-based) bind parameter of a dialect.
type Placeholder func(n int) string

// Dollar is the Postgres placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question is the Snowflake placeholder style.
func Question(int) string { return "?" }

// MetricQuery selects the flow of table between two dates, inclusive.
func MetricQuery(table string, ph Placeholder) (string, error) {
	if !tableName.MatchString(table) {
		return "", fmt.Errorf("invalid metric table name %q", table)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE date >= %s AND date <= %s ORDER BY date, offer_id, affiliate",
		strings.Join(MetricColumns, ", "), table, ph(1), ph(2)), nil
}

// ScanMetricRows reads MetricColumns rows. NULL text becomes empty, NULL
// numbers become 0 and the cap default is left to offer base info.
func ScanMetricRows(rows *sql.Rows) ([]domain.MetricRecord, error) {
	defer rows.Close()

	var out []domain.MetricRecord
	for rows.Next() {
		var (
			text   [6]sql.NullString
			status sql.NullString
			date   time.Time
			num    [6]sql.NullFloat64
			budget sql.NullFloat64
			price  sql.NullFloat64
		)
		if err := rows.Scan(
			&text[0], &text[1], &text[2], &text[3], &text[4], &text[5], &date,
			&num[0], &num[1], &num[2], &num[3], &num[4], &num[5],
			&status, &budget, &price,
		); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		out = append(out, domain.MetricRecord{
			OfferID:     text[0].String,
			AdvOfferID:  text[1].String,
			Advertiser:  text[2].String,
			AppID:       text[3].String,
			Geo:         text[4].String,
			Affiliate:   text[5].String,
			Date:        domain.Day(date),
			Clicks:      num[0].Float64,
			Conversions: num[1].Float64,
			Revenue:     num[2].Float64,
			Cost:        num[3].Float64,
			Profit:      num[4].Float64,
			OnlineHours: num[5].Float64,
			Status:      domain.ParseStatus(status.String),
			Cap:         budget.Float64,
			UnitPrice:   price.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric rows: %w", err)
	}
	return out, nil
}

// MetricLoader reads the daily flow from a Postgres table.
type MetricLoader struct {
	db    *sql.DB
	table string
}

func NewMetricLoader(db *sql.DB, table string) *MetricLoader {
	if table == "" {
		table = "daily_flow"
	}
	return &MetricLoader{db: db, table: table}
}

// LoadMetrics returns the records dated from..to, inclusive.
func (l *MetricLoader) LoadMetrics(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error) {
	q, err := MetricQuery(l.table, Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, q, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	return ScanMetricRows(rows)
}
