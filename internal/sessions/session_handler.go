// Package sessions binds browser sessions to the credential pairs stored in the gateway.
package sessions

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/playarena/arena-gateway/internal/config"
	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/models"
	"github.com/playarena/arena-gateway/internal/utils"
)

// SessionHandler reads and writes the session cookie. The cookie only carries the session ID,
// the credentials never leave the gateway. NOTE: the cookie is untrusted, a session ID that
// has no credentials in the repository is simply an unauthenticated session.
type SessionHandler struct {
	repo         credentials.Repository
	idGenerator  models.IDGenerator
	cookieName   string
	secureCookie bool
}

// Middleware puts the session ID from the cookie in the request context.
// Cookies that do not hold a valid session ID are ignored.
func (sh *SessionHandler) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(sh.cookieName)
			if err != nil {
				return next(c)
			}
			if _, err := ulid.ParseStrict(cookie.Value); err != nil {
				slog.Info(
					"SESSION MIDDLEWARE",
					"message",
					"ignoring invalid session cookie",
					"requestID",
					utils.GetRequestID(c),
				)
				return next(c)
			}
			c.Set(SessionCtxKey, cookie.Value)
			return next(c)
		}
	}
}

// ID returns the session ID of the request if there is one.
func (sh *SessionHandler) ID(c echo.Context) (string, bool) {
	id, ok := c.Get(SessionCtxKey).(string)
	return id, ok && id != ""
}

// Store returns the credential store of the session. Requests without a session get an
// empty store of their own so that they are sent unauthenticated.
func (sh *SessionHandler) Store(c echo.Context) credentials.Store {
	id, ok := sh.ID(c)
	if !ok {
		return credentials.NewMemoryStore("anonymous:" + utils.GetRequestID(c))
	}
	return credentials.NewRepositoryStore(sh.repo, id)
}

// Create starts a new session and sets its cookie, any previous session of the request is replaced.
func (sh *SessionHandler) Create(c echo.Context) (credentials.Store, error) {
	id, err := sh.idGenerator.ID()
	if err != nil {
		return nil, err
	}
	c.SetCookie(sh.cookie(id, 0))
	c.Set(SessionCtxKey, id)
	return credentials.NewRepositoryStore(sh.repo, id), nil
}

// Destroy removes the credentials of the session and expires the cookie.
func (sh *SessionHandler) Destroy(c echo.Context) error {
	defer sh.ExpireCookie(c)
	id, ok := sh.ID(c)
	if !ok {
		return nil
	}
	return sh.repo.RemoveCredentials(c.Request().Context(), id)
}

// ExpireCookie tells the browser to drop the session cookie.
func (sh *SessionHandler) ExpireCookie(c echo.Context) {
	c.SetCookie(sh.cookie("", -1))
	c.Set(SessionCtxKey, "")
}

func (sh *SessionHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sh.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   sh.secureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type SessionHandlerOption func(*SessionHandler) error

func WithCredentialsRepository(repo credentials.Repository) SessionHandlerOption {
	return func(sh *SessionHandler) error {
		sh.repo = repo
		return nil
	}
}

// WithConfig sets the cookie name. Insecure cookies are only allowed in development.
func WithConfig(c config.CredentialsConfig, e config.RunningEnvironment) SessionHandlerOption {
	return func(sh *SessionHandler) error {
		if c.CookieName != "" {
			sh.cookieName = c.CookieName
		}
		if c.UnsafeInsecureCookie && e != config.Development {
			return fmt.Errorf("insecure session cookies are only allowed in development")
		}
		sh.secureCookie = !c.UnsafeInsecureCookie
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) SessionHandlerOption {
	return func(sh *SessionHandler) error {
		sh.idGenerator = generator
		return nil
	}
}

func NewSessionHandler(options ...SessionHandlerOption) (*SessionHandler, error) {
	sh := SessionHandler{
		idGenerator:  models.ULIDGenerator{},
		cookieName:   "_arena_session",
		secureCookie: true,
	}
	for _, opt := range options {
		err := opt(&sh)
		if err != nil {
			return nil, err
		}
	}
	if sh.repo == nil {
		return nil, fmt.Errorf("session handler initialized without a credentials repository")
	}
	return &sh, nil
}
