// Package marketdata provides a best-effort client for NSE public quote
// endpoints, used to read an underlying's current value when deriving
// option strikes.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
	"github.com/FaizanQureshiFinzome/simple-algo/pkg/utils"
)

const (
	optionChainURL = "https://www.nseindia.com/api/option-chain-indices"
	refererURL     = "https://www.nseindia.com/"
	userAgent      = "Mozilla/5.0"
)

// NSEClient fetches underlying values from NSE's public option-chain
// endpoint. Absence of data is reported as ErrNoData, never as a fatal
// failure; callers treat the feed as best-effort.
type NSEClient struct {
	baseURL string
	client  *http.Client
}

// NSEOption configures an NSEClient.
type NSEOption func(*NSEClient)

// WithBaseURL overrides the endpoint, for tests.
func WithBaseURL(base string) NSEOption {
	return func(c *NSEClient) {
		c.baseURL = base
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) NSEOption {
	return func(c *NSEClient) {
		c.client = hc
	}
}

// NewNSEClient creates an NSE option-chain client.
func NewNSEClient(opts ...NSEOption) *NSEClient {
	c := &NSEClient{
		baseURL: optionChainURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type optionChainResponse struct {
	Records struct {
		UnderlyingValue float64 `json:"underlyingValue"`
	} `json:"records"`
}

// UnderlyingValue returns the current value of an index underlying, e.g.
// "NIFTY" or "BANKNIFTY". The public endpoint is flaky, so transient
// failures are retried with backoff before giving up.
func (c *NSEClient) UnderlyingValue(ctx context.Context, symbol string) (float64, error) {
	var value float64
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		v, err := c.fetch(ctx, symbol)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (c *NSEClient) fetch(ctx context.Context, symbol string) (float64, error) {
	target := fmt.Sprintf("%s?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("creating option-chain request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", refererURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperrors.Wrapf(apperrors.ErrNoData, "option chain for %s unreachable: %v", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.Wrapf(apperrors.ErrNoData, "option chain for %s: status %d", symbol, resp.StatusCode)
	}

	var chain optionChainResponse
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return 0, apperrors.Wrapf(apperrors.ErrNoData, "option chain for %s: decode: %v", symbol, err)
	}

	if chain.Records.UnderlyingValue <= 0 {
		return 0, apperrors.Wrapf(apperrors.ErrNoData, "option chain for %s: empty underlying value", symbol)
	}

	return chain.Records.UnderlyingValue, nil
}
