package apiclient

import (
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/playarena/arena-gateway/internal/config"
	"github.com/playarena/arena-gateway/internal/models"
	"github.com/stretchr/testify/require"
)

// mockAPI is a fake platform API. Protected endpoints only accept the current access token.
type mockAPI struct {
	server        *httptest.Server
	lock          sync.Mutex
	validToken    string
	refreshResult models.CredentialPair
	refreshStatus int
	refreshDelay  time.Duration
	refreshCalls  atomic.Int32
	loginStatus   int
	// authorization headers received by protected endpoints
	seenTokens []string
	alwaysDeny bool
}

func newMockAPI(t *testing.T) *mockAPI {
	api := &mockAPI{
		validToken:    "new-A",
		refreshResult: models.CredentialPair{AccessToken: "new-A", RefreshToken: "new-B"},
		refreshStatus: http.StatusOK,
		loginStatus:   http.StatusOK,
	}
	e := echo.New()
	e.POST("/login", api.login)
	e.POST("/refresh-token", api.refresh)
	e.GET("/teams", api.protected(func(c echo.Context) error {
		return c.JSON(http.StatusOK, []map[string]any{{"id": "t1", "name": "Red Foxes", "tag": "RFX"}})
	}))
	e.POST("/posts", api.protected(func(c echo.Context) error {
		body := map[string]any{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		body["id"] = "p1"
		return c.JSON(http.StatusCreated, body)
	}))
	e.GET("/teams/:id", api.protected(func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "team not found"})
	}))
	e.GET("/slow", func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	e.GET("/echo-headers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"authorization": c.Request().Header.Get(echo.HeaderAuthorization),
			"requestID":     c.Request().Header.Get(echo.HeaderXRequestID),
			"query":         c.QueryString(),
		})
	})
	api.server = httptest.NewServer(e)
	t.Cleanup(api.server.Close)
	return api
}

func (a *mockAPI) login(c echo.Context) error {
	if a.loginStatus != http.StatusOK {
		return c.JSON(a.loginStatus, map[string]string{"message": "invalid email or password"})
	}
	return c.JSON(http.StatusOK, map[string]string{"token": "login-A", "refreshToken": "login-B"})
}

func (a *mockAPI) refresh(c echo.Context) error {
	a.refreshCalls.Add(1)
	time.Sleep(a.refreshDelay)
	if a.refreshStatus != http.StatusOK {
		return c.JSON(a.refreshStatus, map[string]string{"message": "refresh token expired"})
	}
	body := map[string]string{}
	if err := c.Bind(&body); err != nil {
		return err
	}
	if body["refreshToken"] == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "missing refresh token"})
	}
	a.lock.Lock()
	a.validToken = a.refreshResult.AccessToken
	a.lock.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"token": a.refreshResult.AccessToken, "refreshToken": a.refreshResult.RefreshToken})
}

func (a *mockAPI) protected(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		a.lock.Lock()
		a.seenTokens = append(a.seenTokens, token)
		valid := !a.alwaysDeny && token == a.validToken
		a.lock.Unlock()
		if !valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		}
		return next(c)
	}
}

func (a *mockAPI) tokens() []string {
	a.lock.Lock()
	defer a.lock.Unlock()
	return append([]string{}, a.seenTokens...)
}

func (a *mockAPI) config(t *testing.T) config.APIConfig {
	baseURL, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	return config.APIConfig{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		LoginPath:   "/login",
		RefreshPath: "/refresh-token",
	}
}

func jwtExpiringAt(expiresAt time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		log.Fatalln(err)
	}
	return signed
}
