package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

// Limits are the row caps applied when a request does not ask for one.
type Limits struct {
	DefaultTopN  int
	TurnoverTopK int
}

func DefaultLimits() Limits {
	return Limits{DefaultTopN: 10, TurnoverTopK: 50}
}

var cacheHeaders = map[string]string{
	"Cache-Control": "private, max-age=60",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	limits    Limits
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, limits Limits) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		limits:    limits,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ov, err := h.analytics.Overview(r.Context(), p.filters(h.analytics.DefaultFilters()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, ov, cacheHeaders)
}

func (h *APIHandlers) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dim, err := p.dimension()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.analytics.Periods(r.Context(), p.filters(h.analytics.DefaultFilters()), dim)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, table, cacheHeaders)
}

type productsResponse struct {
	Products      []models.ProductSales `json:"products"`
	TotalProducts int                   `json:"total_products"`
	Unregistered  int                   `json:"unregistered"`
	Dropped       int                   `json:"dropped"`
}

func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.analytics.Products(r.Context(), p.filters(h.analytics.DefaultFilters()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	n := aggregate.ClampTopN(p.top(h.limits.DefaultTopN), len(report.Products))
	errors.WriteSuccessWithHeaders(w, productsResponse{
		Products:      aggregate.TopProducts(report.Products, n),
		TotalProducts: len(report.Products),
		Unregistered:  report.Unregistered,
		Dropped:       report.Dropped,
	}, cacheHeaders)
}

type turnoverSelection struct {
	Dimension aggregate.Dimension  `json:"dimension"`
	Periods   []string             `json:"periods"`
	Period    string               `json:"period"`
	Rows      []models.TurnoverRow `json:"rows"`
}

// selectTurnover picks one period of the turnover report, the latest when
// none is requested. An unknown period is a NotFound error when strict,
// otherwise it falls back to the latest.
func selectTurnover(ctx context.Context, a *services.Analytics, p Params, defaultK int, strict bool) (*turnoverSelection, error) {
	dim, err := p.dimension()
	if err != nil {
		return nil, err
	}
	report, err := a.Turnover(ctx, p.filters(a.DefaultFilters()), dim)
	if err != nil {
		return nil, err
	}

	sel := &turnoverSelection{
		Dimension: dim,
		Periods:   report.Periods(),
		Rows:      []models.TurnoverRow{},
	}
	if len(sel.Periods) == 0 {
		return sel, nil
	}

	latest := sel.Periods[len(sel.Periods)-1]
	switch {
	case p.Period == "":
		sel.Period = latest
	case slices.Contains(sel.Periods, p.Period):
		sel.Period = p.Period
	case strict:
		return nil, errors.NotFound(fmt.Sprintf("No sales in period %q", p.Period))
	default:
		sel.Period = latest
	}

	sel.Rows = aggregate.TopTurnover(report.ForPeriod(sel.Period), p.top(defaultK))
	return sel, nil
}

func (h *APIHandlers) HandleTurnover(w http.ResponseWriter, r *http.Request) {
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sel, err := selectTurnover(r.Context(), h.analytics, p, h.limits.TurnoverTopK, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, sel, cacheHeaders)
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	strategy, err := p.strategy(h.analytics.PurchaseCount())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.analytics.Customers(r.Context(), p.filters(h.analytics.DefaultFilters()), strategy)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, report, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if loaded, _ := h.analytics.Stats()["loaded"].(bool); !loaded {
		status = "degraded"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
