package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

// Pages are the HTML page handlers. Metrics is optional.
type Pages struct {
	Dashboard http.HandlerFunc
	Products  http.HandlerFunc
	Customers http.HandlerFunc
	Metrics   http.Handler
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, limits handlers.Limits, pages *Pages) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger, limits),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger, limits),
	}
	s.setupRoutes(pages)
	return s
}

func (s *Server) setupRoutes(pages *Pages) {
	// Pages
	s.mux.HandleFunc("GET /{$}", pages.Dashboard)
	s.mux.HandleFunc("GET /products", pages.Products)
	s.mux.HandleFunc("GET /customers", pages.Customers)

	// Operations
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if pages.Metrics != nil {
		s.mux.Handle("GET /metrics", pages.Metrics)
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/periods", s.apiHandlers.HandlePeriods)
	s.mux.HandleFunc("GET /api/products", s.apiHandlers.HandleProducts)
	s.mux.HandleFunc("GET /api/turnover", s.apiHandlers.HandleTurnover)
	s.mux.HandleFunc("GET /api/customers", s.apiHandlers.HandleCustomers)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/periods", s.sseHandlers.HandlePeriods)
	s.mux.HandleFunc("GET /sse/products", s.sseHandlers.HandleProducts)
	s.mux.HandleFunc("GET /sse/turnover", s.sseHandlers.HandleTurnover)
	s.mux.HandleFunc("GET /sse/customers", s.sseHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
