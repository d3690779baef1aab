package models

import "time"

// ExchangeRateConfig configures the USD to INR rate cache and its
// background refresh.
type ExchangeRateConfig struct {
	// APIKey authenticates against the upstream provider. When empty the
	// refresh is skipped and the fallback rate keeps serving.
	APIKey string `json:"api_key,omitzero" yaml:"api_key"`
	// BaseURL of the provider; overridable for tests.
	BaseURL string `json:"base_url,omitzero" yaml:"base_url"`
	// FallbackRate serves until the first successful refresh.
	FallbackRate float64 `json:"fallback_rate,omitzero" yaml:"fallback_rate"`
	// RefreshSchedule is a cron expression for periodic refresh.
	RefreshSchedule string `json:"refresh_schedule,omitzero" yaml:"refresh_schedule"`
	// FetchTimeoutMs bounds one upstream request, in milliseconds.
	FetchTimeoutMs int `json:"fetch_timeout_ms,omitzero" yaml:"fetch_timeout_ms"`
}

const (
	DefaultExchangeRateBaseURL    = "https://v6.exchangerate-api.com"
	DefaultFallbackRate           = 83.50
	DefaultRefreshSchedule        = "@every 24h"
	DefaultExchangeFetchTimeoutMs = 5000
)

func (c *ExchangeRateConfig) WithDefaults() ExchangeRateConfig {
	out := ExchangeRateConfig{}
	if c != nil {
		out = *c
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultExchangeRateBaseURL
	}
	if out.FallbackRate <= 0 {
		out.FallbackRate = DefaultFallbackRate
	}
	if out.RefreshSchedule == "" {
		out.RefreshSchedule = DefaultRefreshSchedule
	}
	if out.FetchTimeoutMs <= 0 {
		out.FetchTimeoutMs = DefaultExchangeFetchTimeoutMs
	}
	return out
}

// FetchTimeout returns the per-request timeout as a duration.
func (c *ExchangeRateConfig) FetchTimeout() time.Duration {
	if c == nil || c.FetchTimeoutMs <= 0 {
		return time.Duration(DefaultExchangeFetchTimeoutMs) * time.Millisecond
	}
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}
