package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIConfig describes how to reach the remote platform API.
type APIConfig struct {
	BaseURL *url.URL
	Timeout time.Duration
	// NOTE: InsecureSkipVerify disables TLS certificate validation, it is only allowed in development
	InsecureSkipVerify bool
	LoginPath          string
	RefreshPath        string
	// ExpiryMargin is how long before its expiry an access token is proactively refreshed
	ExpiryMargin time.Duration
}

func (c *APIConfig) Validate(e RunningEnvironment) error {
	if c.BaseURL == nil {
		return fmt.Errorf("the api config is missing the base url of the remote api")
	}
	if c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the api base url has an unsupported scheme %q", c.BaseURL.Scheme)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid value for the api timeout (%s)", c.Timeout)
	}
	if c.ExpiryMargin < 0 {
		return fmt.Errorf("invalid value for the api expiry margin (%s)", c.ExpiryMargin)
	}
	if !strings.HasPrefix(c.LoginPath, "/") || !strings.HasPrefix(c.RefreshPath, "/") {
		return fmt.Errorf("the login path %q and refresh path %q have to start with /", c.LoginPath, c.RefreshPath)
	}
	if c.LoginPath == c.RefreshPath {
		return fmt.Errorf("the login path and the refresh path cannot be the same (%s)", c.LoginPath)
	}
	if e != Development && c.InsecureSkipVerify {
		return fmt.Errorf("tls verification cannot be disabled in production")
	}
	return nil
}
