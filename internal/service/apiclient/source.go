package apiclient

import (
	"time"

	"AeroPulse/pkg/config"
)

// SourceConfig is everything the client needs to call one provider.
type SourceConfig struct {
	Name         string
	BaseURL      string
	Auth         string
	APIKey       string
	KeyParam     string
	KeyHeader    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	RateLimit    int
	Window       time.Duration
	Timeout      time.Duration
	CacheTTL     time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// FromConfig maps a YAML source block onto a SourceConfig.
func FromConfig(name string, sc config.SourceConfig, ttl time.Duration) SourceConfig {
	return SourceConfig{
		Name:               name,
		BaseURL:            sc.BaseURL,
		Auth:               sc.Auth,
		APIKey:             sc.APIKey,
		KeyParam:           sc.KeyParam,
		KeyHeader:          sc.KeyHeader,
		ClientID:           sc.ClientID,
		ClientSecret:       sc.ClientSecret,
		TokenURL:           sc.TokenURL,
		RateLimit:          sc.RateLimit,
		Window:             sc.Window,
		Timeout:            sc.Timeout,
		CacheTTL:           ttl,
		BreakerMaxFailures: sc.Breaker.MaxFailures,
		BreakerOpenTimeout: sc.Breaker.OpenTimeout,
	}
}

// Configured reports whether the credentials the auth scheme needs are present.
func (s SourceConfig) Configured() bool {
	if s.BaseURL == "" {
		return false
	}
	switch s.Auth {
	case config.AuthAPIKeyQuery:
		return s.APIKey != "" && s.KeyParam != ""
	case config.AuthAPIKeyHeader:
		return s.APIKey != "" && s.KeyHeader != ""
	case config.AuthOAuth2:
		return s.ClientID != "" && s.ClientSecret != "" && s.TokenURL != ""
	default:
		return true
	}
}
