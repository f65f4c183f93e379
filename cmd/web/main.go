package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
	sweepInterval = time.Minute
)

func pageHandler(page templ.Component) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newPages(settings templates.Settings, metricsHandler http.Handler) *server.Pages {
	return &server.Pages{
		Dashboard: pageHandler(templates.Dashboard(settings)),
		Products:  pageHandler(templates.Products(settings)),
		Customers: pageHandler(templates.Customers(settings)),
		Metrics:   metricsHandler,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	locale, err := aggregate.LocaleFor(cfg.Analytics.Locale)
	if err != nil {
		logger.Error("invalid locale", "error", err)
		os.Exit(1)
	}
	strategy, err := aggregate.ParsePurchaseCount(cfg.Analytics.PurchaseCount)
	if err != nil {
		logger.Error("invalid purchase count", "error", err)
		os.Exit(1)
	}

	recorder := metrics.NewPrometheus()
	analytics := services.NewAnalytics(services.Options{
		Locale: locale,
		Filters: aggregate.Filters{
			IgnoreSentinelCustomer: cfg.Analytics.IgnoreSentinelCustomer,
			SentinelCustomerID:     cfg.Analytics.SentinelCustomerID,
		},
		PurchaseCount:   strategy,
		Delimiter:       cfg.Data.Delimiter,
		CacheMaxEntries: cfg.Analytics.CacheMaxEntries,
		Metrics:         recorder,
		Logger:          logger,
	})

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	start := time.Now()
	err = analytics.LoadFromCSV(loadCtx, cfg.Data.SalesCSV, cfg.Data.RegistryCSV)
	cancelLoad()
	if err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))

	limits := handlers.Limits{
		DefaultTopN:  cfg.Analytics.DefaultTopN,
		TurnoverTopK: cfg.Analytics.TurnoverTopK,
	}
	settings := templates.Settings{
		Dimension:      aggregate.Month,
		Top:            cfg.Analytics.DefaultTopN,
		Strategy:       strategy,
		IgnoreSentinel: cfg.Analytics.IgnoreSentinelCustomer,
	}
	srv := server.NewServer(analytics, logger, limits, newPages(settings, recorder.Handler()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go rateLimiter.Run(ctx, sweepInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middleware.Stack(cfg.Security, logger, rateLimiter)(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook("rate-limiter", func(context.Context) error {
		cancel()
		return nil
	})
	gracefulServer.RegisterShutdownHook("analytics", func(context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		analytics.Close()
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
