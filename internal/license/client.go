// Package license talks to the hosted license-verification endpoint.
package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable means the verifier could not give an answer: transport
// failure, timeout, 5xx, or a body that is not a verification response.
var ErrUnavailable = errors.New("license verification unavailable")

const defaultTimeout = 30 * time.Second

type Purchase struct {
	LicenseKey string `json:"license_key"`
	Email      string `json:"email"`
	CreatedAt  string `json:"created_at"`
}

type Response struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Purchase Purchase `json:"purchase"`
}

type Client struct {
	hc        *http.Client
	verifyURL string
	productID string
}

// NewClient builds a verifier for verifyURL. A nil hc gets a 30s client.
func NewClient(hc *http.Client, verifyURL, productID string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{hc: hc, verifyURL: verifyURL, productID: productID}
}

// Verify posts {product_id, license_key} as a form. A decodable reply is
// returned as-is even when Success is false; the caller decides validity.
func (c *Client) Verify(ctx context.Context, key string) (Response, error) {
	form := url.Values{}
	form.Set("product_id", c.productID)
	form.Set("license_key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Response{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return out, nil
}
