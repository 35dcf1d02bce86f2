package everflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/httpretry"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
)

const entityEndpoint = "/v1/networks/reporting/entity"

// Client is the Everflow API client
type Client struct {
	baseURL      string
	apiKey       string
	timezoneID   int
	currencyID   string
	affiliateIDs []string
	httpClient   httpretry.HTTPDoer
}

// NewClient creates a new Everflow API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second // historical windows are slow
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		timezoneID:   cfg.TimezoneID,
		currencyID:   cfg.CurrencyID,
		affiliateIDs: cfg.AffiliateIDs,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, cfg.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Eflow-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// EntityReport fetches the entity report grouped by the given columns.
func (c *Client) EntityReport(ctx context.Context, from, to time.Time, columns ...string) (*EntityReportResponse, error) {
	filters := make([]Filter, 0, len(c.affiliateIDs))
	for _, id := range c.affiliateIDs {
		filters = append(filters, Filter{ResourceType: ColumnAffiliate, FilterIDValue: id})
	}
	cols := make([]EntityReportColumn, len(columns))
	for i, name := range columns {
		cols[i] = EntityReportColumn{Column: name}
	}

	request := EntityReportRequest{
		TimezoneID: c.timezoneID,
		CurrencyID: c.currencyID,
		From:       from.Format(domain.DateLayout),
		To:         to.Format(domain.DateLayout),
		Columns:    cols,
		Query:      EntityReportQuery{Filters: filters},
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, entityEndpoint, request)
	if err != nil {
		return nil, err
	}
	var response EntityReportResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse entity report response: %w", err)
	}
	return &response, nil
}

// FetchMetrics returns the daily flow between from and to, inclusive, as
// one record per offer, affiliate and day.
func (c *Client) FetchMetrics(ctx context.Context, from, to time.Time) ([]domain.MetricRecord, error) {
	resp, err := c.EntityReport(ctx, from, to,
		ColumnOffer, ColumnAffiliate, ColumnAdvertiser, ColumnCountry, ColumnDate)
	if err != nil {
		return nil, fmt.Errorf("everflow: fetching metrics: %w", err)
	}

	records := make([]domain.MetricRecord, 0, len(resp.Table))
	skipped := 0
	for _, row := range resp.Table {
		rec, ok := toRecord(row)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		logger.Warn("everflow: rows without offer or date skipped", "skipped", skipped)
	}
	logger.Debug("everflow: metrics fetched", "rows", len(records),
		"from", from.Format(domain.DateLayout), "to", to.Format(domain.DateLayout))
	return records, nil
}

// HealthCheck verifies the API key with a one-day summary request.
func (c *Client) HealthCheck(ctx context.Context) error {
	today := domain.Day(time.Now())
	_, err := c.EntityReport(ctx, today, today, ColumnDate)
	return err
}
