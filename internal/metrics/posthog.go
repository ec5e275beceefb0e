package metrics

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/playarena/arena-gateway/internal/config"
	"github.com/posthog/posthog-go"
)

// LoginTracker records product analytics events about sign ins.
type LoginTracker interface {
	UserLoggedIn(userID string) error
}

type PosthogMetricsClient struct {
	posthogClient posthog.Client
}

// anonymizeUser hashes the user identifier so that no email address leaves the gateway
func (p *PosthogMetricsClient) anonymizeUser(userID string) string {
	hash := md5.Sum([]byte(userID))
	return hex.EncodeToString(hash[:])
}

func (p *PosthogMetricsClient) UserLoggedIn(userID string) error {
	return p.posthogClient.Enqueue(posthog.Capture{DistinctId: p.anonymizeUser(userID), Event: "user_logged_in"})
}

func (p *PosthogMetricsClient) Close() error {
	return p.posthogClient.Close()
}

func NewPosthogClient(posthogConfig config.PosthogConfig) (*PosthogMetricsClient, error) {
	if !posthogConfig.Enabled {
		return nil, fmt.Errorf("posthog is not enabled")
	}
	client, err := posthog.NewWithConfig(
		string(posthogConfig.ApiKey),
		posthog.Config{
			Endpoint:               posthogConfig.Host,
			DefaultEventProperties: posthog.NewProperties().Set("environment", posthogConfig.Environment),
		},
	)
	if err != nil {
		return nil, err
	}

	return &PosthogMetricsClient{posthogClient: client}, nil
}

// NoopLoginTracker is used when analytics are disabled.
type NoopLoginTracker struct{}

func (NoopLoginTracker) UserLoggedIn(string) error { return nil }
