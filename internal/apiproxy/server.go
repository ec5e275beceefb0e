// Package apiproxy serves the same-origin API used by the browser shell. Credentials stay in the
// gateway, the browser only holds the session cookie.
package apiproxy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/playarena/arena-gateway/internal/apiclient"
	"github.com/playarena/arena-gateway/internal/arena"
	"github.com/playarena/arena-gateway/internal/metrics"
	"github.com/playarena/arena-gateway/internal/sessions"
)

const defaultEntryPointPath string = "/login"

type entryPointKey struct{}

// AtEntryPoint reports whether the request that started a refresh came from the unauthenticated
// entry point of the browser shell. It is meant to be used as the refresh entry point check.
func AtEntryPoint(ctx context.Context) bool {
	atEntryPoint, _ := ctx.Value(entryPointKey{}).(bool)
	return atEntryPoint
}

type Server struct {
	client         *apiclient.Client
	arena          *arena.Service
	sessions       *sessions.SessionHandler
	loginTracker   metrics.LoginTracker
	entryPointPath string
}

// RegisterHandlers adds the routes to the group that serves the api prefix.
func (s *Server) RegisterHandlers(g *echo.Group) {
	g.POST("/login", s.Login)
	g.POST("/logout", s.Logout)
	g.GET("/search", s.Search)
	g.Any("/*", s.Proxy)
}

// onEntryPoint checks the page the browser was on when it sent the request.
func (s *Server) onEntryPoint(c echo.Context) bool {
	referer := c.Request().Referer()
	if referer == "" {
		return false
	}
	refererURL, err := url.Parse(referer)
	if err != nil {
		return false
	}
	return refererURL.Path == s.entryPointPath
}

type ServerOption func(*Server) error

func WithClient(client *apiclient.Client) ServerOption {
	return func(s *Server) error {
		s.client = client
		return nil
	}
}

func WithArenaService(service *arena.Service) ServerOption {
	return func(s *Server) error {
		s.arena = service
		return nil
	}
}

func WithSessionHandler(sh *sessions.SessionHandler) ServerOption {
	return func(s *Server) error {
		s.sessions = sh
		return nil
	}
}

func WithLoginTracker(tracker metrics.LoginTracker) ServerOption {
	return func(s *Server) error {
		s.loginTracker = tracker
		return nil
	}
}

func WithEntryPointPath(path string) ServerOption {
	return func(s *Server) error {
		s.entryPointPath = path
		return nil
	}
}

func NewServer(options ...ServerOption) (*Server, error) {
	s := Server{loginTracker: metrics.NoopLoginTracker{}, entryPointPath: defaultEntryPointPath}
	for _, opt := range options {
		err := opt(&s)
		if err != nil {
			return nil, err
		}
	}
	if s.client == nil {
		return nil, fmt.Errorf("api proxy initialized without an api client")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("api proxy initialized without a session handler")
	}
	if s.arena == nil {
		service, err := arena.NewService(s.client)
		if err != nil {
			return nil, err
		}
		s.arena = service
	}
	return &s, nil
}
