// Package tokenrefresher refreshes stored credentials before their access tokens expire.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/metrics"
	"github.com/playarena/arena-gateway/internal/refresh"
)

type TokenRefresher struct {
	ExpiresSoonMinutes int

	coordinator      *refresh.Coordinator
	credentialsStore RefresherCredentialsStore
	metrics          *metrics.Metrics
}

func (tr *TokenRefresher) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	refreshExpiringCredentialsTask := func(job gocron.Job) {
		err := tr.refreshExpiringCredentials(job.Context())
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "refreshExpiringCredentials failed", "error", err)
		}
	}

	_, err := s.Every(1).
		Minutes().
		DoWithJobDetails(refreshExpiringCredentialsTask)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// refreshExpiringCredentials goes through the same coordinator as the requests so that a
// scheduled refresh and a request driven one for the same session share one exchange.
func (tr *TokenRefresher) refreshExpiringCredentials(ctx context.Context) error {
	expiryEnd := time.Now().Add(time.Duration(tr.ExpiresSoonMinutes) * time.Minute)
	expiringIDs, err := tr.credentialsStore.GetExpiringCredentialIDs(ctx, expiryEnd)
	if err != nil {
		slog.Error("TOKEN REFRESHER", "message", "GetExpiringCredentialIDs failed", "error", err)
		return err
	}
	errorIDs := []string{}
	for _, id := range expiringIDs {
		store := credentials.NewRepositoryStore(tr.credentialsStore, id)
		pair, err := store.Get(ctx)
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "loading credentials failed", "id", id, "error", err)
			errorIDs = append(errorIDs, id)
			tr.metrics.IncrementScheduledRefresh(metrics.OutcomeFailure)
			continue
		}
		if pair == nil {
			// the index entry outlived the credentials
			err = store.Clear(ctx)
			if err != nil {
				slog.Error("TOKEN REFRESHER", "message", "removing stale index entry failed", "id", id, "error", err)
			}
			tr.metrics.IncrementScheduledRefresh(metrics.OutcomeSkipped)
			continue
		}
		_, err = tr.coordinator.Refresh(ctx, store, pair.AccessToken)
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "refreshing credentials failed", "id", id, "error", err)
			errorIDs = append(errorIDs, id)
			tr.metrics.IncrementScheduledRefresh(metrics.OutcomeFailure)
			continue
		}
		tr.metrics.IncrementScheduledRefresh(metrics.OutcomeSuccess)
	}

	slog.Info(
		"TOKEN REFRESHER", "message",
		fmt.Sprintf(
			"%v/%v expiring credentials refreshed",
			len(expiringIDs)-len(errorIDs),
			len(expiringIDs),
		),
	)

	if len(errorIDs) != 0 {
		return fmt.Errorf("some credentials could not be refreshed %v", errorIDs)
	}
	return nil
}

type TokenRefresherOption func(*TokenRefresher) error

func WithExpiresSoonMinutes(expiresSoonMinutes int) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.ExpiresSoonMinutes = expiresSoonMinutes
		return nil
	}
}

func WithCoordinator(coordinator *refresh.Coordinator) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.coordinator = coordinator
		return nil
	}
}

func WithCredentialsStore(store RefresherCredentialsStore) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.credentialsStore = store
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.metrics = m
		return nil
	}
}

// NewTokenRefresher creates a new TokenRefresher that handles refreshing credentials which are expiring soon.
func NewTokenRefresher(options ...TokenRefresherOption) (TokenRefresher, error) {
	tr := TokenRefresher{}
	for _, opt := range options {
		err := opt(&tr)
		if err != nil {
			return TokenRefresher{}, err
		}
	}
	if tr.ExpiresSoonMinutes <= 0 {
		return TokenRefresher{}, fmt.Errorf("invalid value for ExpiresSoonMinutes (%d)", tr.ExpiresSoonMinutes)
	}
	if tr.coordinator == nil {
		return TokenRefresher{}, fmt.Errorf("refresh coordinator not initialized")
	}
	if tr.credentialsStore == nil {
		return TokenRefresher{}, fmt.Errorf("credentials store not initialized")
	}
	return tr, nil
}
