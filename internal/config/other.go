package config

import (
	"fmt"
	"strings"
)

type ServerConfig struct {
	Host        string
	Port        int
	APIPrefix   string
	RateLimits  RateLimits
	AllowOrigin []string
}

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type PosthogConfig struct {
	Enabled     bool
	ApiKey      RedactedString
	Host        string
	Environment string
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
	Posthog    PosthogConfig
}

func (c *MonitoringConfig) Validate() error {
	if c.Sentry.Enabled && c.Sentry.Dsn == "" {
		return fmt.Errorf("sentry is enabled but the dsn is not set")
	}
	if c.Prometheus.Enabled && (c.Prometheus.Port <= 0 || c.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid prometheus port %d", c.Prometheus.Port)
	}
	if c.Posthog.Enabled && (c.Posthog.ApiKey == "" || c.Posthog.Host == "") {
		return fmt.Errorf("posthog is enabled but the api key or host are not set")
	}
	return nil
}

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") || strings.HasSuffix(c.APIPrefix, "/") {
		return fmt.Errorf("the api prefix %q has to start with / and cannot end with /", c.APIPrefix)
	}
	if c.RateLimits.Enabled && (c.RateLimits.Rate <= 0 || c.RateLimits.Burst <= 0) {
		return fmt.Errorf("rate limits are enabled but the rate (%v) or burst (%d) are not positive", c.RateLimits.Rate, c.RateLimits.Burst)
	}
	return nil
}
