package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/ingestion"
	"ingest/internal/logger"
	"ingest/internal/version"
	"ingest/pkg/bootstrap"
	"ingest/pkg/health"
	"ingest/pkg/metrics"
	"ingest/pkg/middleware"
	"ingest/pkg/ratelimit"
	"ingest/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	service        *ingestion.Service
	router         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, version.Short())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterIngestionMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterRateLimitMetrics()

	if err := a.InitBroker(ctx); err != nil {
		return fmt.Errorf("failed to initialize message bus: %w", err)
	}

	svc, err := ingestion.NewService(a.Producer, a.Config.Ingestion, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create ingestion service: %w", err)
	}
	a.service = svc

	a.initRouter(ctx)
	a.initServer()
	return nil
}

func (a *App) initRouter(ctx context.Context) {
	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.CORSMiddleware())

	var ingestMiddleware []gin.HandlerFunc
	if a.Config.RateLimit.Enabled {
		ingestMiddleware = append(ingestMiddleware, ratelimit.RateLimitMiddleware(ctx, a.Config.RateLimit))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled",
			"rps", a.Config.RateLimit.RPS,
			"burst", a.Config.RateLimit.Burst,
		)
	}

	handler := ingestion.NewHandler(a.service, a.Config.Ingestion, a.Logger)
	handler.RegisterRoutes(router, ingestMiddleware...)

	reporter := health.NewReporter(constants.ServiceName, version.Short())
	router.GET("/health", reporter.Handle)

	readiness := health.NewCheckerRegistry()
	readiness.Register(health.NewBusChecker(a.Bus))
	router.GET("/ready", readiness.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run serves HTTP until ctx is done or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.service != nil {
			if err := a.service.Close(a.Config.Server.ShutdownTimeout); err != nil {
				errs = append(errs, fmt.Errorf("batch worker pool shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	})
}
