package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("report run not found")

// Schema creates the run history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id           UUID PRIMARY KEY,
	day_new      DATE,
	day_old      DATE,
	today        DATE NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	payload      JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS report_action_items (
	run_id                     UUID NOT NULL REFERENCES report_runs(id) ON DELETE CASCADE,
	position                   INT NOT NULL,
	offer_id                   TEXT NOT NULL,
	adv_offer_id               TEXT NOT NULL,
	advertiser                 TEXT NOT NULL,
	app_id                     TEXT NOT NULL,
	geo                        TEXT NOT NULL,
	affiliate                  TEXT NOT NULL,
	unit_price                 DOUBLE PRECISION NOT NULL,
	cap                        DOUBLE PRECISION NOT NULL,
	affiliate_revenue_latest   DOUBLE PRECISION NOT NULL,
	affiliate_revenue_trailing DOUBLE PRECISION NOT NULL,
	remaining_cap              DOUBLE PRECISION NOT NULL,
	rule                       TEXT NOT NULL,
	label                      TEXT NOT NULL,
	rank                       INT NOT NULL,
	priority_tier              TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID          string
	Today       sql.NullTime
	GeneratedAt sql.NullTime
	Actions     int
}

// Store implements run persistence against PostgreSQL.
type Store struct{ db *sql.DB }

// NewStore creates a Postgres-backed run store.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// day stores a zero comparison date as NULL.
func day(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// SaveRun stores the report and its action items in one transaction.
func (s *Store) SaveRun(ctx context.Context, rep *report.Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report_runs (id, day_new, day_old, today, generated_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rep.ID, day(rep.DayNew), day(rep.DayOld), rep.Today, rep.GeneratedAt, payload)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_action_items
			(run_id, position, offer_id, adv_offer_id, advertiser, app_id, geo, affiliate,
			 unit_price, cap, affiliate_revenue_latest, affiliate_revenue_trailing, remaining_cap,
			 rule, label, rank, priority_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`)
	if err != nil {
		return fmt.Errorf("prepare action items: %w", err)
	}
	defer stmt.Close()

	for i, a := range rep.Actions {
		if _, err := stmt.ExecContext(ctx, rep.ID, i, a.OfferID, a.AdvOfferID, a.Advertiser, a.AppID, a.Geo, a.Affiliate,
			a.UnitPrice, a.Cap, a.AffiliateRevenueLatest, a.AffiliateRevenueTrailing, a.RemainingCap,
			string(a.Rule), a.Label, a.Rank, string(a.Tier)); err != nil {
			return fmt.Errorf("insert action item %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetRun loads a stored report.
func (s *Store) GetRun(ctx context.Context, id string) (*report.Report, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM report_runs WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var rep report.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &rep, nil
}

// ListRuns returns the latest runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.today, r.generated_at, COUNT(a.position)
		FROM report_runs r
		LEFT JOIN report_action_items a ON a.run_id = r.id
		GROUP BY r.id, r.today, r.generated_at
		ORDER BY r.generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Today, &r.GeneratedAt, &r.Actions); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListActionItems returns a run's action items in report order. An empty
// tier returns all of them.
func (s *Store) ListActionItems(ctx context.Context, runID string, tier domain.Tier) ([]domain.ActionItem, error) {
	q := `
		SELECT offer_id, adv_offer_id, advertiser, app_id, geo, affiliate,
		       unit_price, cap, affiliate_revenue_latest, affiliate_revenue_trailing, remaining_cap,
		       rule, label, rank, priority_tier
		FROM report_action_items
		WHERE run_id = $1`
	args := []any{runID}
	if tier != domain.TierNone {
		q += " AND priority_tier = $2"
		args = append(args, string(tier))
	}
	q += " ORDER BY position"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	var out []domain.ActionItem
	for rows.Next() {
		var (
			a          domain.ActionItem
			rule, tier string
		)
		if err := rows.Scan(&a.OfferID, &a.AdvOfferID, &a.Advertiser, &a.AppID, &a.Geo, &a.Affiliate,
			&a.UnitPrice, &a.Cap, &a.AffiliateRevenueLatest, &a.AffiliateRevenueTrailing, &a.RemainingCap,
			&rule, &a.Label, &a.Rank, &tier); err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		a.Rule, a.Tier = domain.ActionRule(rule), domain.Tier(tier)
		out = append(out, a)
	}
	return out, rows.Err()
}
