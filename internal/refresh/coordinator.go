// Package refresh makes sure that concurrent authorization failures for the same credentials
// result in a single token refresh exchange with the API.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/metrics"
	"github.com/playarena/arena-gateway/internal/models"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout time.Duration = 20 * time.Second

// Refresher exchanges a credential pair for a new one.
type Refresher func(ctx context.Context, pair models.CredentialPair) (models.CredentialPair, error)

// SessionExpiredHandler is notified once per failed refresh episode.
type SessionExpiredHandler func(ctx context.Context, key string)

// EntryPointCheck reports whether the caller already sits on the unauthenticated entry point,
// in which case no session expired notification is sent.
type EntryPointCheck func(ctx context.Context) bool

// Coordinator runs at most one refresh exchange per credential store key at a time.
// Every caller that asks for a refresh while one is running receives the same outcome.
type Coordinator struct {
	group            singleflight.Group
	refresher        Refresher
	onSessionExpired SessionExpiredHandler
	atEntryPoint     EntryPointCheck
	metrics          *metrics.Metrics
	timeout          time.Duration
}

type CoordinatorOption func(*Coordinator) error

func WithRefresher(refresher Refresher) CoordinatorOption {
	return func(c *Coordinator) error {
		c.refresher = refresher
		return nil
	}
}

func WithSessionExpiredHandler(handler SessionExpiredHandler) CoordinatorOption {
	return func(c *Coordinator) error {
		c.onSessionExpired = handler
		return nil
	}
}

func WithEntryPointCheck(check EntryPointCheck) CoordinatorOption {
	return func(c *Coordinator) error {
		c.atEntryPoint = check
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) error {
		c.metrics = m
		return nil
	}
}

// WithTimeout bounds the duration of a single refresh exchange.
func WithTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) error {
		if timeout <= 0 {
			return fmt.Errorf("the refresh timeout has to be positive, got %v", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

func NewCoordinator(options ...CoordinatorOption) (*Coordinator, error) {
	c := Coordinator{timeout: defaultTimeout}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return nil, err
		}
	}
	if c.refresher == nil {
		return nil, fmt.Errorf("refresh coordinator initialized without a refresher")
	}
	return &c, nil
}

// Refresh returns a credential pair that is newer than staleAccessToken, exchanging the stored
// refresh token when needed. Callers for the same store key that arrive while an exchange is
// running wait for it instead of starting a new one. The exchange is not aborted when the
// context of the caller that started it is cancelled, other callers may still be waiting for it.
func (c *Coordinator) Refresh(ctx context.Context, store credentials.Store, staleAccessToken string) (models.CredentialPair, error) {
	leader := false
	episodeCtx := context.WithoutCancel(ctx)
	resChan := c.group.DoChan(store.Key(), func() (any, error) {
		leader = true
		return c.runEpisode(episodeCtx, store, staleAccessToken)
	})
	select {
	case <-ctx.Done():
		return models.CredentialPair{}, ctx.Err()
	case res := <-resChan:
		if !leader {
			c.metrics.IncrementRefreshWaiter()
		}
		if res.Err != nil {
			return models.CredentialPair{}, res.Err
		}
		return res.Val.(models.CredentialPair), nil
	}
}

func (c *Coordinator) runEpisode(ctx context.Context, store credentials.Store, staleAccessToken string) (models.CredentialPair, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	key := store.Key()
	current, err := store.Get(ctx)
	if err != nil {
		return models.CredentialPair{}, c.fail(ctx, store, err)
	}
	if current != nil && current.Valid() && current.AccessToken != staleAccessToken {
		// the pair was replaced after the failing request was sent
		slog.Debug("REFRESH COORDINATOR", "message", "newer credentials found, skipping refresh", "key", key)
		c.metrics.IncrementRefreshOutcome(metrics.OutcomeSkipped)
		return *current, nil
	}
	if current == nil || current.RefreshToken == "" {
		return models.CredentialPair{}, c.fail(ctx, store, gwerrors.ErrMissingCredentials)
	}

	slog.Debug("REFRESH COORDINATOR", "message", "refreshing credentials", "key", key)
	c.metrics.IncrementRefreshAttempt()
	start := time.Now()
	newPair, err := c.refresher(ctx, *current)
	c.metrics.ObserveRefreshDuration(time.Since(start).Seconds())
	if err != nil {
		return models.CredentialPair{}, c.fail(ctx, store, err)
	}
	if !newPair.Valid() {
		return models.CredentialPair{}, c.fail(ctx, store, fmt.Errorf("the refresh response is missing a token"))
	}
	err = store.Set(ctx, newPair)
	if err != nil {
		// the new pair is still handed out so that the waiting requests can be replayed
		slog.Error("REFRESH COORDINATOR", "message", "could not save refreshed credentials", "key", key, "error", err)
	}
	c.metrics.IncrementRefreshOutcome(metrics.OutcomeSuccess)
	slog.Info("REFRESH COORDINATOR", "message", "credentials refreshed", "key", key)
	return newPair, nil
}

// fail ends an episode: the credentials are dropped and the session expired handler is notified.
func (c *Coordinator) fail(ctx context.Context, store credentials.Store, cause error) error {
	key := store.Key()
	slog.Info("REFRESH COORDINATOR", "message", "credentials refresh failed", "key", key, "error", cause)
	c.metrics.IncrementRefreshOutcome(metrics.OutcomeFailure)
	// the episode deadline may already be exceeded here
	err := store.Clear(context.WithoutCancel(ctx))
	if err != nil {
		slog.Error("REFRESH COORDINATOR", "message", "could not clear credentials", "key", key, "error", err)
	}
	if c.onSessionExpired != nil && (c.atEntryPoint == nil || !c.atEntryPoint(ctx)) {
		c.metrics.IncrementSessionExpired()
		c.onSessionExpired(ctx, key)
	}
	return &gwerrors.RefreshError{Key: key, Cause: cause}
}
