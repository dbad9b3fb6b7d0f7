// Package datasource reads platform postings from the hosted REST API
// (a PostgREST/Supabase endpoint exposing one <platform>_jobs table each).
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/domain"
	"gigmaps-engine/internal/logger"
	"gigmaps-engine/internal/metrics"
)

// ErrNotConfigured is returned by TestConnection when URL or key is missing.
var ErrNotConfigured = errors.New("data source not configured")

const (
	defaultTimeout = 30 * time.Second
	defaultLimit   = 100
)

type Client struct {
	hc      *http.Client
	baseURL string
	key     string
	limit   int
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewClient builds a client for cfg. key is the resolved API key (config,
// env, or keychain). A nil hc gets a 30s client.
func NewClient(cfg config.DataSource, key string, hc *http.Client, log logger.Logger, m *metrics.Metrics) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{
		hc:      hc,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		key:     strings.TrimSpace(key),
		limit:   limit,
		log:     log,
		metrics: m,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.key != ""
}

// FetchPostings returns the newest postings for p. Without credentials it
// returns an empty list and no error.
func (c *Client) FetchPostings(ctx context.Context, p domain.Platform) ([]domain.Posting, error) {
	if !c.Configured() {
		c.log.Warn("data source credentials missing, returning no postings",
			logger.String("platform", p.Slug))
		return nil, nil
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "posted_at.desc")
	q.Set("limit", strconv.Itoa(c.limit))

	var rows []record
	if err := c.get(ctx, p.TableName(), q, &rows); err != nil {
		if c.metrics != nil {
			c.metrics.FetchErrors.WithLabelValues(p.Slug).Inc()
		}
		return nil, fmt.Errorf("fetch %s: %w", p.TableName(), err)
	}

	out := make([]domain.Posting, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPosting(p.Slug))
	}
	if c.metrics != nil {
		c.metrics.PostingsFetched.WithLabelValues(p.Slug).Add(float64(len(out)))
	}
	c.log.Debug("postings fetched",
		logger.String("platform", p.Slug),
		logger.Int("count", len(out)),
	)
	return out, nil
}

// TestConnection issues a one-row count query against p's table.
func (c *Client) TestConnection(ctx context.Context, p domain.Platform) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q := url.Values{}
	q.Set("select", "count")
	q.Set("limit", "1")

	var discard json.RawMessage
	if err := c.get(ctx, p.TableName(), q, &discard); err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, table string, q url.Values, out any) error {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
