package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/ratelimit"
)

const defaultTimeout = 3 * time.Second

type place struct {
	PostCode string `json:"post code"`
}

type lookupResponse struct {
	Places []place `json:"places"`
}

// Client calls a zippopotam-style API: GET <base>/us/{state}/{city}.
type Client struct {
	hc      *http.Client
	baseURL string
	timeout time.Duration
	aliases map[string]string
	limiter *ratelimit.HostLimiter
}

func NewClient(cfg config.Postal, limiter *ratelimit.HostLimiter) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	aliases := make(map[string]string, len(cfg.Aliases))
	for k, v := range cfg.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Client{
		hc:      &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		aliases: aliases,
		limiter: limiter,
	}
}

// Canonical rewrites a known alternate city spelling for the outbound request.
func (c *Client) Canonical(city string) string {
	city = strings.TrimSpace(city)
	if v, ok := c.aliases[strings.ToLower(city)]; ok {
		return v
	}
	return city
}

// Lookup returns found=false with a nil error for a non-2xx status or an
// empty place list. Transport failures and timeouts return an error.
func (c *Client) Lookup(ctx context.Context, city, state string) (string, bool, error) {
	u := fmt.Sprintf("%s/us/%s/%s", c.baseURL,
		url.PathEscape(strings.TrimSpace(state)),
		url.PathEscape(c.Canonical(city)),
	)

	// Wait before the per-request timeout starts so throttling never
	// counts as a failed lookup.
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return "", false, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", false, nil
	}

	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode postal response: %w", err)
	}
	for _, p := range out.Places {
		if code := strings.TrimSpace(p.PostCode); code != "" {
			return code, true, nil
		}
	}
	return "", false, nil
}
