package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/playarena/arena-gateway/internal/apiclient"
	"github.com/playarena/arena-gateway/internal/apiproxy"
	"github.com/playarena/arena-gateway/internal/config"
	"github.com/playarena/arena-gateway/internal/db"
	"github.com/playarena/arena-gateway/internal/metrics"
	"github.com/playarena/arena-gateway/internal/refresh"
	"github.com/playarena/arena-gateway/internal/sessions"
	"github.com/playarena/arena-gateway/internal/tokenrefresher"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	gwConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", gwConfig)
	// Set log level to "debug" if activated
	setLogLevel(gwConfig.DebugMode)
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("the changed config is invalid and will be ignored", "error", err)
			return
		}
		setLogLevel(newConfig.DebugMode)
	})
	ch.Watch()
	// Setup
	e := echo.New()
	e.Pre(middleware.RequestID(), middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	// Initialize the db adapters
	dbOptions := []db.RedisAdapterOption{db.WithRedisConfig(gwConfig.Redis)}
	if gwConfig.Credentials.Encryption.Enabled && gwConfig.Credentials.Encryption.SecretKey != "" {
		slog.Info("redis encryption is enabled")
		dbOptions = append(dbOptions, db.WithEncryption(string(gwConfig.Credentials.Encryption.SecretKey)))
	}
	dbAdapter, err := db.NewRedisAdapter(dbOptions...)
	if err != nil {
		slog.Error("DB adapter initialization failed", "error", err)
		os.Exit(1)
	}
	// Health check
	e.GET("/health", func(c echo.Context) error {
		err := dbAdapter.Health(c.Request().Context())
		if err != nil {
			slog.Error("health check failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	e.GET("/version", func(c echo.Context) error {
		return c.String(http.StatusOK, version)
	})
	gwMetrics := metrics.New(prometheus.DefaultRegisterer)
	// Initialize the api client and its refresh coordinator
	apiClient, err := apiclient.NewClient(
		apiclient.WithConfig(gwConfig.API),
		apiclient.WithMetrics(gwMetrics),
		apiclient.WithRefreshOptions(
			refresh.WithEntryPointCheck(apiproxy.AtEntryPoint),
			refresh.WithSessionExpiredHandler(func(ctx context.Context, key string) {
				slog.Info("SESSION EXPIRED", "message", "the credentials of the session were dropped", "sessionID", key)
			}),
		),
	)
	if err != nil {
		slog.Error("api client initialization failed", "error", err)
		os.Exit(1)
	}
	// Create the session handler
	sessionHandler, err := sessions.NewSessionHandler(
		sessions.WithCredentialsRepository(dbAdapter),
		sessions.WithConfig(gwConfig.Credentials, gwConfig.RunningEnvironment),
	)
	if err != nil {
		slog.Error("failed to initialize sessions", "error", err)
		os.Exit(1)
	}
	// Product analytics
	var loginTracker metrics.LoginTracker = metrics.NoopLoginTracker{}
	if gwConfig.Monitoring.Posthog.Enabled {
		posthogClient, err := metrics.NewPosthogClient(gwConfig.Monitoring.Posthog)
		if err != nil {
			slog.Error("posthog initialization failed", "error", err)
			os.Exit(1)
		}
		defer posthogClient.Close()
		loginTracker = posthogClient
	}
	// Initialize the api proxy
	apiProxy, err := apiproxy.NewServer(
		apiproxy.WithClient(apiClient),
		apiproxy.WithSessionHandler(sessionHandler),
		apiproxy.WithLoginTracker(loginTracker),
	)
	if err != nil {
		slog.Error("api proxy handlers initialization failed", "error", err)
		os.Exit(1)
	}
	gwMiddlewares := append(commonMiddlewares, sessionHandler.Middleware())
	apiProxy.RegisterHandlers(e.Group(gwConfig.Server.APIPrefix, gwMiddlewares...))
	// Background refresh of the credentials that expire soon
	refresher, err := tokenrefresher.NewTokenRefresher(
		tokenrefresher.WithExpiresSoonMinutes(gwConfig.Credentials.ExpiresSoonMinutes),
		tokenrefresher.WithCoordinator(apiClient.Coordinator()),
		tokenrefresher.WithCredentialsStore(dbAdapter),
		tokenrefresher.WithMetrics(gwMetrics),
	)
	if err != nil {
		slog.Error("token refresher initialization failed", "error", err)
		os.Exit(1)
	}
	scheduler, err := refresher.GetScheduler()
	if err != nil {
		slog.Error("token refresher scheduling failed", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()
	// Rate limiting
	if gwConfig.Server.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(gwConfig.Server.RateLimits.Rate),
					Burst:     gwConfig.Server.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		),
		)
	}
	// CORS
	if len(gwConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: gwConfig.Server.AllowOrigin, AllowCredentials: true}))
	}
	// Sentry
	if gwConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(gwConfig.Monitoring.Sentry.Dsn),
			EnableTracing:    true,
			TracesSampleRate: gwConfig.Monitoring.Sentry.SampleRate,
			Environment:      gwConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	// Prometheus
	if gwConfig.Monitoring.Prometheus.Enabled {
		e.Use(echoprometheus.NewMiddleware("gateway"))
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			metrics.GET("/metrics", echoprometheus.NewHandler())
			err := metrics.Start(fmt.Sprintf(":%d", gwConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", gwConfig.Server.Host, gwConfig.Server.Port)
	slog.Info("starting the server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("shutting down the server gracefuly failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
