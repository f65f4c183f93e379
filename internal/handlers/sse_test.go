package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/format"
)

func sseRequest(t *testing.T, h http.HandlerFunc, path, signals string) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger, DefaultLimits())

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.views == nil {
		t.Error("NewSSEHandlers() should parse the fragment templates")
	}
}

func TestSSEHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"overview", handlers.HandleOverview, `id="overview-content"`},
		{"periods", handlers.HandlePeriods, `id="periods-content"`},
		{"products", handlers.HandleProducts, `id="products-content"`},
		{"turnover", handlers.HandleTurnover, `id="turnover-content"`},
		{"customers", handlers.HandleCustomers, `id="customers-content"`},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			w := sseRequest(t, endpoint.handler, "/sse/"+endpoint.name, "")

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}

			body := w.Body.String()
			if !strings.Contains(body, "datastar-patch-elements") {
				t.Error("response should contain an element patch")
			}
			if !strings.Contains(body, endpoint.want) {
				t.Errorf("response should contain %s", endpoint.want)
			}
			if strings.Contains(body, "error-banner") {
				t.Errorf("unexpected error banner: %s", body)
			}
		})
	}
}

func TestSSEHandlers_HandlePeriods_Signals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	w := sseRequest(t, handlers.HandlePeriods, "/sse/periods", `{"dimension":"Week"}`)
	body := w.Body.String()

	for _, want := range []string{"<th>Semana</th>", "<th>Meses</th>", "2023-01-09", "Jan", "periodsData"} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
	if !strings.Contains(body, "R$ 999,99") {
		t.Error("amounts should be formatted as pt-BR currency")
	}
}

func TestSSEHandlers_HandleProducts_Top(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	w := sseRequest(t, handlers.HandleProducts, "/sse/products", `{"top":1,"ignoreSentinel":false}`)
	body := w.Body.String()

	if !strings.Contains(body, "Laptop") {
		t.Error("top product should be listed")
	}
	if strings.Contains(body, "<td>Mouse</td>") {
		t.Error("only the top product should be listed")
	}
	if !strings.Contains(body, "Top 1 de 3 produtos, 1 sem cadastro") {
		t.Errorf("summary line missing: %s", body)
	}
	if !strings.Contains(body, "productsData") {
		t.Error("response should contain productsData signal")
	}
}

func TestSSEHandlers_HandleTurnover_FallsBackToLatest(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	w := sseRequest(t, handlers.HandleTurnover, "/sse/turnover", `{"dimension":"Month","period":"2024 - T1"}`)
	body := w.Body.String()

	if strings.Contains(body, "error-banner") {
		t.Error("stale period should not be an error")
	}
	if !strings.Contains(body, "<h3>2023-02</h3>") {
		t.Errorf("expected latest period: %s", body)
	}
	if !strings.Contains(body, "turnoverPeriods") {
		t.Error("response should contain turnoverPeriods signal")
	}
}

func TestSSEHandlers_ErrorBanner(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	w := sseRequest(t, handlers.HandlePeriods, "/sse/periods", `{"dimension":"fortnight"}`)
	body := w.Body.String()
	if !strings.Contains(body, `id="error-banner"`) || !strings.Contains(body, "fortnight") {
		t.Errorf("expected error banner naming the dimension: %s", body)
	}

	w = sseRequest(t, handlers.HandleOverview, "/sse/overview", `{"top":"ten"}`)
	if !strings.Contains(w.Body.String(), `id="error-banner"`) {
		t.Error("malformed signals should patch the error banner")
	}

	empty := NewSSEHandlers(services.NewAnalytics(services.Options{Logger: testLogger()}), testLogger(), DefaultLimits())
	w = sseRequest(t, empty.HandleOverview, "/sse/overview", "")
	if !strings.Contains(w.Body.String(), "Sales data is not loaded") {
		t.Error("missing data should be reported in the banner")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger(), DefaultLimits())

	w := sseRequest(t, handlers.HandleRefreshAll, "/sse/refresh-all", "")
	body := w.Body.String()

	for _, id := range []string{"overview-content", "periods-content", "products-content", "turnover-content", "customers-content"} {
		if !strings.Contains(body, id) {
			t.Errorf("refresh-all should patch %s", id)
		}
	}
	if strings.Count(body, "datastar-patch-signals") != 1 {
		t.Error("refresh-all should send one signals patch")
	}
	for _, signal := range []string{"overview", "periodsData", "productsData", "turnoverData", "customerKpis"} {
		if !strings.Contains(body, signal) {
			t.Errorf("signals should contain %s", signal)
		}
	}
}

func TestViews_Customers(t *testing.T) {
	views := newViews(format.New(createTestAnalytics().Locale().Tag))

	rows := make([]models.CustomerSummary, 3)
	for i := range rows {
		rows[i] = models.CustomerSummary{
			CustomerID:    int64(i + 1),
			TotalValue:    decimal.NewFromInt(1500),
			Purchases:     2,
			Quantity:      decimal.NewFromInt(3),
			AverageTicket: decimal.NewFromInt(750),
		}
	}

	html, err := render(views, "customers", customersView{
		KPIs: models.CustomerKPIs{Customers: 10, Returning: 3, ReturnRate: 30},
		Rows: rows,
	})
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	for _, want := range []string{"<th>Ticket médio</th>", "R$ 1.500,00", "R$ 750,00", "30,0%", "Mostrando 3 de 10 clientes"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected HTML to contain %q", want)
		}
	}
	if got := strings.Count(html, "<tr>") - 1; got != len(rows) {
		t.Errorf("expected %d body rows, got %d", len(rows), got)
	}
}
