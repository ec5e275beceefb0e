package apiproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/playarena/arena-gateway/internal/apiclient"
	"github.com/playarena/arena-gateway/internal/arena"
	"github.com/playarena/arena-gateway/internal/config"
	"github.com/playarena/arena-gateway/internal/db"
	"github.com/playarena/arena-gateway/internal/models"
	"github.com/playarena/arena-gateway/internal/refresh"
	"github.com/playarena/arena-gateway/internal/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	server        *httptest.Server
	lock          sync.Mutex
	validToken    string
	refreshStatus int
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{validToken: "login-A", refreshStatus: http.StatusOK}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		body := map[string]string{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		if body["password"] != "secret" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
		}
		return c.JSON(http.StatusOK, map[string]string{"token": "login-A", "refreshToken": "login-B"})
	})
	e.POST("/refresh-token", func(c echo.Context) error {
		if u.refreshStatus != http.StatusOK {
			return c.JSON(u.refreshStatus, map[string]string{"message": "refresh token expired"})
		}
		u.lock.Lock()
		u.validToken = "new-A"
		u.lock.Unlock()
		return c.JSON(http.StatusOK, map[string]string{"token": "new-A", "refreshToken": "new-B"})
	})
	protected := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u.lock.Lock()
			valid := c.Request().Header.Get(echo.HeaderAuthorization) == "Bearer "+u.validToken
			u.lock.Unlock()
			if !valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			}
			return next(c)
		}
	}
	e.GET("/teams", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []arena.Team{{ID: "t1", Name: "Red Foxes", Tag: "RFX"}, {ID: "t2", Name: "Blue Owls", Tag: "OWL"}})
	}, protected)
	e.GET("/tournaments", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []arena.Tournament{{ID: "c1", Title: "Fox Cup"}})
	}, protected)
	e.GET("/users", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []arena.Profile{{ID: "u1", Username: "foxy", DisplayName: "Foxy"}})
	}, protected)
	e.POST("/posts", func(c echo.Context) error {
		body := map[string]any{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		body["id"] = "p1"
		return c.JSON(http.StatusCreated, body)
	}, protected)
	e.DELETE("/posts/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, protected)
	e.GET("/public/news", func(c echo.Context) error {
		return c.String(http.StatusOK, "q="+c.QueryParam("q"))
	})
	u.server = httptest.NewServer(e)
	t.Cleanup(u.server.Close)
	return u
}

type recordingTracker struct {
	lock   sync.Mutex
	logins []string
}

func (r *recordingTracker) UserLoggedIn(userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.logins = append(r.logins, userID)
	return nil
}

type gateway struct {
	echo    *echo.Echo
	adapter *db.RedisAdapter
	tracker *recordingTracker
}

func newGateway(t *testing.T, baseURL string) *gateway {
	parsed, err := url.Parse(baseURL)
	require.NoError(t, err)
	client, err := apiclient.NewClient(
		apiclient.WithConfig(config.APIConfig{BaseURL: parsed, Timeout: time.Second, LoginPath: "/login", RefreshPath: "/refresh-token"}),
		apiclient.WithRefreshOptions(refresh.WithEntryPointCheck(AtEntryPoint)),
	)
	require.NoError(t, err)
	adapter, err := db.NewMockRedisAdapter()
	require.NoError(t, err)
	sh, err := sessions.NewSessionHandler(sessions.WithCredentialsRepository(adapter))
	require.NoError(t, err)
	tracker := &recordingTracker{}
	server, err := NewServer(WithClient(client), WithSessionHandler(sh), WithLoginTracker(tracker))
	require.NoError(t, err)
	e := echo.New()
	e.Use(middleware.RequestID())
	api := e.Group("/api", sh.Middleware())
	server.RegisterHandlers(api)
	return &gateway{echo: e, adapter: adapter, tracker: tracker}
}

func (g *gateway) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	g.echo.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	var found *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "_arena_session" {
			found = cookie
		}
	}
	require.NotNil(t, found)
	return found
}

func login(t *testing.T, g *gateway) *http.Cookie {
	rec := g.do(http.MethodPost, "/api/login", `{"email":"player@example.org","password":"secret"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return sessionCookie(t, rec)
}

func TestNewServer(t *testing.T) {
	_, err := NewServer()
	assert.ErrorContains(t, err, "without an api client")
}

func TestLoginAndProxy(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)

	cookie := login(t, g)

	assert.Equal(t, []string{"player@example.org"}, g.tracker.logins)
	pair, err := g.adapter.GetCredentials(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, &models.CredentialPair{AccessToken: "login-A", RefreshToken: "login-B"}, pair)

	rec := g.do(http.MethodGet, "/api/teams", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	teams := []arena.Team{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	assert.Len(t, teams, 2)

	rec = g.do(http.MethodPost, "/api/posts", `{"content":"gg"}`, cookie)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"p1","content":"gg"}`, rec.Body.String())

	rec = g.do(http.MethodDelete, "/api/posts/p1", "", cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = g.do(http.MethodGet, "/api/public/news?q=finals", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "q=finals", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain))
}

func TestLoginFailure(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)

	rec := g.do(http.MethodPost, "/api/login", `{"email":"player@example.org","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"invalid email or password"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get(sessions.SessionExpiredHeader))
	assert.Empty(t, g.tracker.logins)

	rec = g.do(http.MethodPost, "/api/login", `{"email":"player@example.org"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshOnUnauthorized(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	cookie := login(t, g)
	up.lock.Lock()
	up.validToken = "new-A"
	up.lock.Unlock()

	rec := g.do(http.MethodGet, "/api/teams", "", cookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	pair, err := g.adapter.GetCredentials(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, &models.CredentialPair{AccessToken: "new-A", RefreshToken: "new-B"}, pair)
}

func TestSessionExpired(t *testing.T) {
	up := newUpstream(t)
	up.refreshStatus = http.StatusUnauthorized
	g := newGateway(t, up.server.URL)
	cookie := login(t, g)
	up.lock.Lock()
	up.validToken = "new-A"
	up.lock.Unlock()

	rec := g.do(http.MethodGet, "/api/teams", "", cookie)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"session expired"}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(sessions.SessionExpiredHeader))
	expired := sessionCookie(t, rec)
	assert.Equal(t, -1, expired.MaxAge)
	pair, err := g.adapter.GetCredentials(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestNoSessionExpiredSignalOnEntryPoint(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	req.Header.Set("Referer", "https://arena.example.org/login")
	rec := httptest.NewRecorder()

	g.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get(sessions.SessionExpiredHeader))
}

func TestUpstreamUnreachable(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	up.server.Close()

	rec := g.do(http.MethodGet, "/api/teams", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearch(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	cookie := login(t, g)

	rec := g.do(http.MethodGet, "/api/search?q=fox&pageSize=2", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	page := arena.Page[arena.SearchResult]{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "t1", page.Items[0].ID)

	rec = g.do(http.MethodGet, "/api/search?q=fox&kind=tournaments", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

}

func TestSearchQueryParams(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	cookie := login(t, g)

	type TestCase struct {
		name          string
		query         string
		expectedCode  int
		expectedItems int
		expectedSize  int
	}
	testCases := []TestCase{
		{name: "unknown kind", query: "kind=games", expectedCode: http.StatusBadRequest},
		{name: "non numeric page", query: "q=fox&page=two", expectedCode: http.StatusBadRequest},
		{name: "non numeric page size", query: "q=fox&pageSize=ten", expectedCode: http.StatusBadRequest},
		{name: "overflowing page", query: "q=fox&page=99999999999999999999", expectedCode: http.StatusBadRequest},
		{name: "negative page size uses the default", query: "q=fox&pageSize=-5", expectedCode: http.StatusOK, expectedItems: 3, expectedSize: 10},
		{name: "negative page is the first page", query: "q=fox&page=-3&pageSize=2", expectedCode: http.StatusOK, expectedItems: 2, expectedSize: 2},
		{name: "huge page is empty", query: "q=fox&page=4611686018427387905", expectedCode: http.StatusOK, expectedItems: 0, expectedSize: 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := g.do(http.MethodGet, "/api/search?"+tc.query, "", cookie)

			require.Equal(t, tc.expectedCode, rec.Code, rec.Body.String())
			if tc.expectedCode != http.StatusOK {
				assert.Contains(t, rec.Body.String(), "message")
				return
			}
			page := arena.Page[arena.SearchResult]{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
			assert.Len(t, page.Items, tc.expectedItems)
			assert.Equal(t, tc.expectedSize, page.PageSize)
			assert.Equal(t, 3, page.Total)
		})
	}
}

func TestLogout(t *testing.T) {
	up := newUpstream(t)
	g := newGateway(t, up.server.URL)
	cookie := login(t, g)

	rec := g.do(http.MethodPost, "/api/logout", "", cookie)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
	pair, err := g.adapter.GetCredentials(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, pair)
}
