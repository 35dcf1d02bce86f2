// Package snowflake loads the daily flow table from a Snowflake warehouse.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/repository"
)

// Config holds Snowflake database configuration
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Table     string
}

// DSN renders user:password@account/database/schema?warehouse=xxx.
func (c Config) DSN() string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Account, c.Database, c.Schema)
	if c.Warehouse != "" {
		dsn += "?warehouse=" + url.QueryEscape(c.Warehouse)
	}
	return dsn
}

// Client provides access to the warehouse flow table.
type Client struct {
	table string
	db    *sql.DB
}

// NewClient opens a pooled connection. Nothing is dialled until first use.
func NewClient(cfg Config) (*Client, error) {
	db, err := sql.Open("snowflake", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewWithDB(db, cfg.Table), nil
}

// NewWithDB wraps an existing handle, used by tests.
func NewWithDB(db *sql.DB, table string) *Client {
	if table == "" {
		table = "DAILY_FLOW"
	}
	return &Client{table: table, db: db}
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// LoadMetrics returns the flow dated from..to, inclusive.
func (c *Client) LoadMetrics(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error) {
	q, err := repository.MetricQuery(c.table, repository.Question)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, q, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("snowflake: load metrics: %w", err)
	}
	records, err := repository.ScanMetricRows(rows)
	if err != nil {
		return nil, fmt.Errorf("snowflake: %w", err)
	}
	logger.Debug("snowflake: metrics loaded", "table", c.table, "rows", len(records))
	return records, nil
}
