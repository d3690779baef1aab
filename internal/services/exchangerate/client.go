package exchangerate

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/services/httpclient"
)

// Client fetches the current USD to INR rate from the upstream provider.
type Client struct {
	apiKey  string
	timeout time.Duration
	http    *httpclient.Client
}

type latestRatesResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		timeout: timeout,
		http:    httpclient.New(baseURL),
	}
}

// FetchUSDToINR performs one bounded upstream request. Any failure mode
// (missing credential, network error, malformed response) returns an
// error; the caller decides whether to keep serving the cached rate.
func (c *Client) FetchUSDToINR(ctx context.Context) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("exchange rate API key not configured")
	}

	var out latestRatesResponse
	opts := &httpclient.RequestOptions{
		Context: ctx,
		Timeout: c.timeout,
	}

	if err := c.http.Get(fmt.Sprintf("/v6/%s/latest/USD", c.apiKey), &out, opts); err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}

	rate, ok := out.ConversionRates["INR"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("exchange rate response missing INR conversion rate")
	}

	return rate, nil
}
