package apiproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/playarena/arena-gateway/internal/apiclient"
	"github.com/playarena/arena-gateway/internal/arena"
	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/sessions"
	"github.com/playarena/arena-gateway/internal/utils"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// requestContext carries the request ID and the entry point flag to the api client.
func (s *Server) requestContext(c echo.Context) context.Context {
	ctx := utils.ContextWithRequestID(c.Request().Context(), utils.GetRequestID(c))
	return context.WithValue(ctx, entryPointKey{}, s.onEntryPoint(c))
}

func (s *Server) Login(c echo.Context) error {
	body := loginBody{}
	err := c.Bind(&body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid login request"})
	}
	if body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "email and password are required"})
	}
	store, err := s.sessions.Create(c)
	if err != nil {
		return err
	}
	_, err = s.client.Login(s.requestContext(c), store, body.Email, body.Password)
	if err != nil {
		s.sessions.ExpireCookie(c)
		return s.handleError(c, err)
	}
	err = s.loginTracker.UserLoggedIn(body.Email)
	if err != nil {
		slog.Error("API PROXY", "message", "could not record the login event", "requestID", utils.GetRequestID(c), "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) Logout(c echo.Context) error {
	err := s.sessions.Destroy(c)
	if err != nil {
		slog.Error("API PROXY", "message", "could not remove the session credentials", "requestID", utils.GetRequestID(c), "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) Search(c echo.Context) error {
	kind, err := arena.ParseKind(c.QueryParam("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}
	query := arena.Query{Text: c.QueryParam("q"), Kind: kind}
	query.Page, err = intQueryParam(c, "page")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "page has to be a number"})
	}
	query.PageSize, err = intQueryParam(c, "pageSize")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "pageSize has to be a number"})
	}
	page, err := s.arena.Search(s.requestContext(c), s.sessions.Store(c), query)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Proxy forwards the request to the same path of the platform API with the session credentials.
func (s *Server) Proxy(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	req := apiclient.Request{
		Method: c.Request().Method,
		Path:   "/" + c.Param("*"),
		Query:  c.QueryParams(),
		Body:   body,
		Header: http.Header{},
	}
	if contentType := c.Request().Header.Get(echo.HeaderContentType); contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	res, err := s.client.Do(s.requestContext(c), s.sessions.Store(c), req)
	if err != nil {
		return s.handleError(c, err)
	}
	if len(res.Body) == 0 {
		return c.NoContent(res.Status)
	}
	contentType := res.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(res.Status, contentType, res.Body)
}

// handleError maps api client errors to responses for the browser shell.
func (s *Server) handleError(c echo.Context, err error) error {
	requestID := utils.GetRequestID(c)
	var httpErr *gwerrors.HTTPError
	switch {
	case errors.Is(err, gwerrors.ErrRefreshFailed):
		slog.Info("API PROXY", "message", "session expired", "requestID", requestID, "error", err)
		s.sessions.ExpireCookie(c)
		if !s.onEntryPoint(c) {
			c.Response().Header().Set(sessions.SessionExpiredHeader, "true")
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "session expired"})
	case errors.As(err, &httpErr):
		if len(httpErr.Body) > 0 && json.Valid(httpErr.Body) {
			return c.JSONBlob(httpErr.Status, httpErr.Body)
		}
		return c.JSON(httpErr.Status, map[string]string{"message": httpErr.Message})
	case errors.Is(err, gwerrors.ErrNetwork):
		slog.Error("API PROXY", "message", "platform api unreachable", "requestID", requestID, "traceID", utils.GetTraceID(c), "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"message": "the platform api cannot be reached"})
	default:
		slog.Error("API PROXY", "message", "unexpected error", "requestID", requestID, "traceID", utils.GetTraceID(c), "error", err)
		return err
	}
}
