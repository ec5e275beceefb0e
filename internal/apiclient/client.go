// Package apiclient calls the remote platform API on behalf of a credential store, refreshing
// the access token once when the API rejects it.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playarena/arena-gateway/internal/config"
	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/metrics"
	"github.com/playarena/arena-gateway/internal/models"
	"github.com/playarena/arena-gateway/internal/refresh"
	"golang.org/x/oauth2"
)

type Client struct {
	apiConfig      *config.APIConfig
	httpClient     *http.Client
	dispatcher     *Dispatcher
	coordinator    *refresh.Coordinator
	refreshOptions []refresh.CoordinatorOption
	metrics        *metrics.Metrics
}

type ClientOption func(*Client) error

func WithConfig(apiConfig config.APIConfig) ClientOption {
	return func(c *Client) error {
		c.apiConfig = &apiConfig
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithCoordinator shares a refresh coordinator, by default every client creates its own
// one that uses Client.RefreshPair as the refresher.
func WithCoordinator(coordinator *refresh.Coordinator) ClientOption {
	return func(c *Client) error {
		c.coordinator = coordinator
		return nil
	}
}

// WithRefreshOptions passes extra options to the default refresh coordinator.
func WithRefreshOptions(options ...refresh.CoordinatorOption) ClientOption {
	return func(c *Client) error {
		c.refreshOptions = append(c.refreshOptions, options...)
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return nil, err
		}
	}
	if c.apiConfig == nil {
		return nil, fmt.Errorf("api client initialized without a config")
	}
	if c.apiConfig.LoginPath == "" {
		c.apiConfig.LoginPath = "/login"
	}
	if c.apiConfig.RefreshPath == "" {
		c.apiConfig.RefreshPath = "/refresh-token"
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.apiConfig.InsecureSkipVerify)
	}
	dispatcher, err := NewDispatcher(c.apiConfig.BaseURL, c.httpClient, c.apiConfig.Timeout)
	if err != nil {
		return nil, err
	}
	c.dispatcher = dispatcher
	if c.coordinator == nil {
		refreshOptions := []refresh.CoordinatorOption{refresh.WithRefresher(c.RefreshPair), refresh.WithMetrics(c.metrics)}
		if c.apiConfig.Timeout > 0 {
			refreshOptions = append(refreshOptions, refresh.WithTimeout(c.apiConfig.Timeout))
		}
		coordinator, err := refresh.NewCoordinator(append(refreshOptions, c.refreshOptions...)...)
		if err != nil {
			return nil, err
		}
		c.coordinator = coordinator
	}
	return &c, nil
}

func (c *Client) Coordinator() *refresh.Coordinator {
	return c.coordinator
}

// isAuthPath reports whether a 401 from the path has to surface as is, without a refresh.
func (c *Client) isAuthPath(path string) bool {
	path, _, _ = strings.Cut(path, "?")
	path = "/" + strings.Trim(path, "/")
	return path == c.apiConfig.LoginPath || path == c.apiConfig.RefreshPath
}

// Do sends the request with the credentials from the store. When the API answers 401 the
// credentials are refreshed and the request is sent exactly one more time, a second 401
// is returned to the caller.
func (c *Client) Do(ctx context.Context, store credentials.Store, req Request) (*Response, error) {
	if c.isAuthPath(req.Path) {
		return c.dispatcher.Do(ctx, store, req)
	}
	if req.Token == "" && c.apiConfig.ExpiryMargin > 0 {
		pair, err := store.Get(ctx)
		if err == nil && pair != nil && pair.ExpiresSoon(c.apiConfig.ExpiryMargin) {
			slog.Debug("API CLIENT", "message", "access token expires soon, refreshing", "key", store.Key())
			newPair, err := c.coordinator.Refresh(ctx, store, pair.AccessToken)
			if err != nil {
				return nil, err
			}
			req.Token = newPair.AccessToken
		}
	}

	res, sentToken, err := c.dispatcher.send(ctx, store, req)
	var httpErr *gwerrors.HTTPError
	if err == nil || !errors.As(err, &httpErr) || !httpErr.Unauthorized() {
		return res, err
	}
	slog.Debug("API CLIENT", "message", "request unauthorized, refreshing credentials", "path", req.Path, "key", store.Key())
	newPair, err := c.coordinator.Refresh(ctx, store, sentToken)
	if err != nil {
		return nil, err
	}
	c.metrics.IncrementRequestRetry()
	retry := req
	retry.Token = newPair.AccessToken
	return c.dispatcher.Do(ctx, store, retry)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges the user credentials for a token pair and saves it in the store.
// Errors from the API are returned as they are.
func (c *Client) Login(ctx context.Context, store credentials.Store, email, password string) (models.CredentialPair, error) {
	req, err := NewJSONRequest(http.MethodPost, c.apiConfig.LoginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		return models.CredentialPair{}, err
	}
	res, err := c.dispatcher.Do(ctx, nil, req)
	if err != nil {
		return models.CredentialPair{}, err
	}
	pair := models.CredentialPair{}
	err = res.Decode(&pair)
	if err != nil {
		return models.CredentialPair{}, fmt.Errorf("cannot decode the login response: %w", err)
	}
	if !pair.Valid() {
		return models.CredentialPair{}, fmt.Errorf("the login response is missing a token")
	}
	err = store.Set(ctx, pair)
	if err != nil {
		return models.CredentialPair{}, err
	}
	return pair, nil
}

// RefreshPair exchanges the refresh token for a new pair. The old access token is sent as the bearer.
func (c *Client) RefreshPair(ctx context.Context, pair models.CredentialPair) (models.CredentialPair, error) {
	req, err := NewJSONRequest(http.MethodPost, c.apiConfig.RefreshPath, refreshRequest{RefreshToken: pair.RefreshToken})
	if err != nil {
		return models.CredentialPair{}, err
	}
	req.Token = pair.AccessToken
	res, err := c.dispatcher.Do(ctx, nil, req)
	if err != nil {
		return models.CredentialPair{}, err
	}
	newPair := models.CredentialPair{}
	err = res.Decode(&newPair)
	if err != nil {
		return models.CredentialPair{}, fmt.Errorf("cannot decode the refresh response: %w", err)
	}
	return newPair, nil
}

func (c *Client) Logout(ctx context.Context, store credentials.Store) error {
	return store.Clear(ctx)
}

type storeTokenSource struct {
	ctx    context.Context
	client *Client
	store  credentials.Store
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	pair, err := s.store.Get(s.ctx)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, gwerrors.ErrMissingCredentials
	}
	if pair.ExpiresSoon(s.client.apiConfig.ExpiryMargin) {
		newPair, err := s.client.coordinator.Refresh(s.ctx, s.store, pair.AccessToken)
		if err != nil {
			return nil, err
		}
		pair = &newPair
	}
	return pair.Token(), nil
}

// TokenSource exposes the stored credentials to oauth2 aware http clients.
func (c *Client) TokenSource(ctx context.Context, store credentials.Store) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, storeTokenSource{ctx: ctx, client: c, store: store})
}
