package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"maps"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/format"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	limits    Limits
	views     *template.Template
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger, limits Limits) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
		limits:    limits,
		views:     newViews(format.New(analytics.Locale().Tag)),
	}
}

// section renders one dashboard block: an HTML fragment patched by element id
// plus the signals its charts read.
type section func(ctx context.Context, p Params) (string, map[string]any, error)

// serve streams every section as element patches followed by one signals
// patch. A failing section patches the error banner instead; the others
// are still sent.
func (h *SSEHandlers) serve(w http.ResponseWriter, r *http.Request, sections ...section) {
	p, perr := signalParams(r)
	sse := datastar.NewSSE(w, r)
	requestID := observability.GetRequestID(r.Context())

	if perr != nil {
		h.patchError(sse, perr, requestID)
		return
	}

	signals := make(map[string]any)
	for _, s := range sections {
		html, sig, err := s(r.Context(), p)
		if err != nil {
			h.patchError(sse, err, requestID)
			continue
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err, "request_id", requestID)
			return
		}
		maps.Copy(signals, sig)
	}

	if len(signals) == 0 {
		return
	}
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err, "request_id", requestID)
		return
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.Warn("patch signals", "error", err, "request_id", requestID)
	}
}

func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, err error, requestID string) {
	appErr := appError(err)
	h.logger.Warn("sse section failed",
		"error", err,
		"code", appErr.Code,
		"request_id", requestID,
	)

	html, rerr := render(h.views, "error", appErr)
	if rerr != nil {
		h.logger.Error("render error banner", "error", rerr)
		return
	}
	_ = sse.PatchElements(html)
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.overview)
}

func (h *SSEHandlers) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.periods)
}

func (h *SSEHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.products)
}

func (h *SSEHandlers) HandleTurnover(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.turnover)
}

func (h *SSEHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.customers)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.overview, h.periods, h.products, h.turnover, h.customers)
}

func (h *SSEHandlers) overview(ctx context.Context, p Params) (string, map[string]any, error) {
	ov, err := h.analytics.Overview(ctx, p.filters(h.analytics.DefaultFilters()))
	if err != nil {
		return "", nil, err
	}
	html, err := render(h.views, "overview", ov)
	return html, map[string]any{"overview": ov}, err
}

type periodsView struct {
	Label   string
	Week    bool
	Rows    []models.PeriodSummary
	Dropped int
}

func (h *SSEHandlers) periods(ctx context.Context, p Params) (string, map[string]any, error) {
	dim, err := p.dimension()
	if err != nil {
		return "", nil, err
	}
	table, err := h.analytics.Periods(ctx, p.filters(h.analytics.DefaultFilters()), dim)
	if err != nil {
		return "", nil, err
	}

	html, err := render(h.views, "periods", periodsView{
		Label:   dim.Label(),
		Week:    dim == aggregate.Week,
		Rows:    table.Rows,
		Dropped: table.Dropped,
	})
	return html, map[string]any{"periodsData": table.Rows}, err
}

type productsView struct {
	Rows         []models.ProductSales
	Total        int
	Unregistered int
}

func (h *SSEHandlers) products(ctx context.Context, p Params) (string, map[string]any, error) {
	report, err := h.analytics.Products(ctx, p.filters(h.analytics.DefaultFilters()))
	if err != nil {
		return "", nil, err
	}

	n := aggregate.ClampTopN(p.top(h.limits.DefaultTopN), len(report.Products))
	top := aggregate.TopProducts(report.Products, n)
	html, err := render(h.views, "products", productsView{
		Rows:         top,
		Total:        len(report.Products),
		Unregistered: report.Unregistered,
	})
	return html, map[string]any{"productsData": top}, err
}

type turnoverView struct {
	Periods []string
	Period  string
	Rows    []models.TurnoverRow
}

func (h *SSEHandlers) turnover(ctx context.Context, p Params) (string, map[string]any, error) {
	// A period left over from another dimension falls back to the latest one.
	sel, err := selectTurnover(ctx, h.analytics, p, h.limits.TurnoverTopK, false)
	if err != nil {
		return "", nil, err
	}

	html, err := render(h.views, "turnover", turnoverView{
		Periods: sel.Periods,
		Period:  sel.Period,
		Rows:    sel.Rows,
	})
	return html, map[string]any{
		"turnoverPeriods": sel.Periods,
		"turnoverData":    sel.Rows,
		"period":          sel.Period,
	}, err
}

type customersView struct {
	KPIs models.CustomerKPIs
	Rows []models.CustomerSummary
}

func (h *SSEHandlers) customers(ctx context.Context, p Params) (string, map[string]any, error) {
	strategy, err := p.strategy(h.analytics.PurchaseCount())
	if err != nil {
		return "", nil, err
	}
	report, err := h.analytics.Customers(ctx, p.filters(h.analytics.DefaultFilters()), strategy)
	if err != nil {
		return "", nil, err
	}

	rows := report.Customers
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	html, err := render(h.views, "customers", customersView{KPIs: report.KPIs, Rows: rows})
	return html, map[string]any{"customerKpis": report.KPIs}, err
}
