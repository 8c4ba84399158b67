package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	pprof_gin "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"golang.org/x/sync/errgroup"

	"github.com/xamogh/casbin-test/config"
	"github.com/xamogh/casbin-test/controllers"
	"github.com/xamogh/casbin-test/engine"
	"github.com/xamogh/casbin-test/logging"
	"github.com/xamogh/casbin-test/middleware"
	"github.com/xamogh/casbin-test/services"
	"github.com/xamogh/casbin-test/version"
)

// App wires the token service, the decision engine and the HTTP router into
// one runnable gateway.
type App struct {
	cfg    *config.Config
	tokens *services.TokenService
	engine engine.Engine
	router *gin.Engine

	httpServer *http.Server
}

// NewApp builds the gateway. A decision engine that fails to initialize is
// fatal: the error propagates up and the process exits rather than running
// in a degraded no-engine state.
func NewApp(cfg *config.Config) (*App, error) {
	eng, err := engine.NewCasbinEngine(cfg.Engine.ModelPath, cfg.Engine.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("decision engine init: %w", err)
	}
	return NewAppWithEngine(cfg, eng)
}

// NewAppWithEngine builds the gateway around an externally supplied engine.
// Tests and alternative deployments use this directly.
func NewAppWithEngine(cfg *config.Config, eng engine.Engine) (*App, error) {
	app := &App{
		cfg:    cfg,
		tokens: services.NewTokenService(cfg.Auth.SigningKey, cfg.Auth.TrustedAccount, cfg.Auth.TokenTTL),
		engine: eng,
	}

	if cfg.Analytics.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Analytics.Sentry.DSN,
			EnableTracing:    cfg.Analytics.Sentry.EnableTracing,
			TracesSampleRate: cfg.Analytics.Sentry.TracesSampleRate,
			Environment:      cfg.Analytics.Sentry.Environment,
			Debug:            cfg.Analytics.Sentry.Debug,
			Release:          "gateway@" + version.Version,
		}); err != nil {
			slog.Warn("Sentry initialization failed", "error", err)
		}
	}

	app.router = app.createRouter()
	return app, nil
}

// Router exposes the assembled gin engine, mainly for tests.
func (app *App) Router() *gin.Engine {
	return app.router
}

func (app *App) createRouter() *gin.Engine {
	if app.cfg.Log.Level == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(sloggin.New(slog.Default().WithGroup("http")))
	r.Use(logging.Middleware())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.From(c.Request.Context()).Error("Handler panicked", "panic", recovered)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error occurred"})
	}))

	if app.cfg.Server.Pprof.Enabled {
		pprof_gin.Register(r)
	}

	if app.cfg.Analytics.Sentry.Enabled {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	app.setupRoutes(r)
	return r
}

func (app *App) setupRoutes(r *gin.Engine) {
	// liveness probe stays unauthenticated so orchestration layers can hit
	// it without credentials
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Version,
		})
	})

	if app.cfg.Auth.EnableTokenEndpoint {
		tc := &controllers.TokenController{Tokens: app.tokens}
		r.POST("/tokens/issue", tc.IssueToken)
	}

	pc := &controllers.PolicyController{Engine: app.engine}

	authorized := r.Group("/")
	authorized.Use(middleware.BearerTokenAuth(app.tokens))

	authorized.GET("/policies", pc.ListPolicies)
	authorized.POST("/policy", pc.AddPolicy)
	authorized.POST("/policies", pc.AddPolicies)
	authorized.DELETE("/policy", pc.RemovePolicy)
	authorized.DELETE("/policies", pc.RemovePolicies)
	authorized.GET("/policy", pc.GetFilteredPolicies)
	authorized.DELETE("/filtered_policy", pc.RemoveFilteredPolicies)
	authorized.POST("/enforce", pc.Enforce)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully. A server that fails to start returns its error immediately so
// the caller can exit for the supervisor.
func (app *App) Serve() error {
	slog.Info("Starting policy gateway",
		"version", version.Version,
		"port", app.cfg.Server.Port)

	g, ctx := errgroup.WithContext(context.Background())

	listenAddr := fmt.Sprintf(":%d", app.cfg.Server.Port)
	app.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      app.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g.Go(func() error {
		slog.Info("Server starting", "address", listenAddr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signalCh)

		select {
		case sig := <-signalCh:
			slog.Info("Received signal", "signal", sig)
		case <-ctx.Done():
			// the server goroutine already failed; nothing to shut down
			return nil
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		slog.Info("Shutting down HTTP server...")
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}
