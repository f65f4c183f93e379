package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

func testSale(invoice string, customer int64, code, date, value string) models.Transaction {
	d, _ := time.Parse(time.DateOnly, date)
	return models.Transaction{
		Control:     "C-" + invoice,
		Invoice:     invoice,
		CustomerID:  sql.NullInt64{Int64: customer, Valid: true},
		ProductCode: code,
		Date:        sql.NullTime{Time: d, Valid: true},
		Quantity:    decimal.NewNullDecimal(decimal.NewFromInt(1)),
		Value:       decimal.NewNullDecimal(decimal.RequireFromString(value)),
	}
}

// Test helper to create analytics with test data
func newTestAnalytics(recorder metrics.Recorder) *services.Analytics {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	a := services.NewAnalytics(services.Options{Logger: logger, Metrics: recorder, CacheMaxEntries: 16})
	sales := models.NewSalesTable(
		[]string{models.ColControl, models.ColInvoice, models.ColCustomer, models.ColProduct,
			models.ColDate, models.ColQuantity, models.ColValue},
		[]models.Transaction{
			testSale("NF1", 1, "P001", "2023-01-15", "999.99"),
			testSale("NF2", 2, "P002", "2023-02-10", "29.99"),
			testSale("NF3", 1, "P003", "2023-03-05", "79.99"),
		},
	)
	registry := models.NewRegistry(
		[]string{models.ColProduct, models.ColProductName},
		[]models.Product{{Code: "P001", Name: "Laptop"}, {Code: "P002", Name: "Mouse"}},
	)
	a.SetData(sales, registry)
	return a
}

func newTestServer() *server.Server {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	recorder := metrics.NewPrometheus()
	pages := newPages(templates.DefaultSettings(), recorder.Handler())
	return server.NewServer(newTestAnalytics(recorder), logger, handlers.DefaultLimits(), pages)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/products", http.StatusOK, "text/html"},
		{"/customers", http.StatusOK, "text/html"},
		{"/api/overview", http.StatusOK, "application/json"},
		{"/api/periods?dimension=Quarter", http.StatusOK, "application/json"},
		{"/api/products?top=2", http.StatusOK, "application/json"},
		{"/api/turnover", http.StatusOK, "application/json"},
		{"/api/customers?strategy=rows", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			// Validate JSON responses
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Test JSON API responses
func TestServer_JSONResponse(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/products", nil)
	srv.ServeHTTP(w, r)

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in response")
	}

	products, ok := data["products"].([]any)
	if !ok || len(products) != 3 {
		t.Fatalf("expected 3 products, got %v", data["products"])
	}

	item, ok := products[0].(map[string]any)
	if !ok {
		t.Fatal("invalid product structure")
	}
	if name, _ := item["name"].(string); name != "Laptop" {
		t.Errorf("top product = %v, want Laptop", item["name"])
	}
	if unregistered, _ := data["unregistered"].(float64); unregistered != 1 {
		t.Errorf("unregistered = %v, want 1", data["unregistered"])
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestServer()

	sseRoutes := []string{
		"/sse/overview",
		"/sse/periods",
		"/sse/products",
		"/sse/turnover",
		"/sse/customers",
		"/sse/refresh-all",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			// Check for SSE headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

// Test health endpoint
func TestServer_HandleHealth(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	healthData, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected health data in response")
	}

	if status, ok := healthData["status"].(string); !ok || status != "healthy" {
		t.Errorf("health status = %v, want 'healthy'", healthData["status"])
	}

	if _, ok := healthData["timestamp"]; !ok {
		t.Error("health response should include timestamp")
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer()

	// One miss, then one hit.
	for range 2 {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/overview", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("overview status = %d", w.Code)
		}
		time.Sleep(20 * time.Millisecond)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{"sales_aggregation_duration_milliseconds", "sales_aggregation_cache_lookups_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics should expose %s", want)
		}
	}
}

// Test error handling for invalid methods and unknown paths
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/overview", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/api/products", http.StatusMethodNotAllowed},
		{"GET", "/api/country-revenue", http.StatusNotFound},
		{"GET", "/api/periods?dimension=fortnight", http.StatusBadRequest},
		{"GET", "/api/turnover?period=1999-01", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// Test page rendering
func TestPageHandler(t *testing.T) {
	pages := newPages(templates.DefaultSettings(), nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    []string
	}{
		{"dashboard", pages.Dashboard, []string{"Painel de Vendas", "Visão geral", "Vendas por período"}},
		{"products", pages.Products, []string{"Produtos mais vendidos", "Giro de produtos"}},
		{"customers", pages.Customers, []string{"Análise de clientes", "Compras por nota fiscal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest("GET", "/", nil))

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
				t.Errorf("cache-control = %q, want %q", cc, cacheMaxAge)
			}

			body := w.Body.String()
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("page should contain %q", s)
				}
			}
		})
	}
}
