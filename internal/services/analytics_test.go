package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
)

func createTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadedAnalytics(t *testing.T, opts Options) *Analytics {
	t.Helper()
	a := NewAnalytics(opts)
	err := a.LoadFromCSV(context.Background(),
		createTempCSV(t, "vendas.csv", salesCSV),
		createTempCSV(t, "produtos.csv", registryCSV))
	if err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}
	return a
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(Options{})
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
	if a.cache != nil {
		t.Error("cache should be disabled without CacheMaxEntries")
	}
	if got := a.DefaultFilters(); got != aggregate.DefaultFilters() {
		t.Errorf("DefaultFilters() = %+v", got)
	}
}

func TestAnalytics_NoData(t *testing.T) {
	a := NewAnalytics(Options{})
	if _, err := a.Overview(context.Background(), a.DefaultFilters()); !errors.Is(err, ErrNoData) {
		t.Errorf("Overview() error = %v, want ErrNoData", err)
	}
	if loaded := a.Stats()["loaded"]; loaded != false {
		t.Errorf("Stats()[loaded] = %v", loaded)
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	rec := metrics.NewPrometheus()
	a := loadedAnalytics(t, Options{Metrics: rec})
	ctx := context.Background()

	ov, err := a.Overview(ctx, a.DefaultFilters())
	if err != nil {
		t.Fatal(err)
	}
	if ov.Customers != 3 {
		t.Errorf("Customers = %d, want 3", ov.Customers)
	}
	if !ov.TotalValue.Equal(decimal.RequireFromString("1370.50")) {
		t.Errorf("TotalValue = %s", ov.TotalValue)
	}
	if !ov.AvgPerCustomer.Equal(decimal.RequireFromString("456.83")) {
		t.Errorf("AvgPerCustomer = %s", ov.AvgPerCustomer)
	}

	stats := a.Stats()
	if stats["record_count"] != 5 || stats["unparseable_rows"] != 1 || stats["products"] != 3 {
		t.Errorf("Stats() = %v", stats)
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	tests := []struct {
		name     string
		sales    string
		registry string
	}{
		{name: "empty sales", sales: "", registry: registryCSV},
		{name: "header only", sales: "Controle;Cliente\n", registry: registryCSV},
		{name: "empty registry", sales: salesCSV, registry: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalytics(Options{})
			err := a.LoadFromCSV(context.Background(),
				createTempCSV(t, "vendas.csv", tt.sales),
				createTempCSV(t, "produtos.csv", tt.registry))
			if err == nil {
				t.Fatal("expected error")
			}
			if a.Stats()["loaded"] != false {
				t.Error("failed load must not replace the dataset")
			}
		})
	}

	a := NewAnalytics(Options{})
	if err := a.LoadFromCSV(context.Background(), "/nonexistent/vendas.csv", "/nonexistent/produtos.csv"); err == nil {
		t.Error("expected error for missing files")
	}
}

func TestAnalytics_Queries(t *testing.T) {
	a := loadedAnalytics(t, Options{})
	ctx := context.Background()
	f := a.DefaultFilters()

	periods, err := a.Periods(ctx, f, aggregate.Year)
	if err != nil {
		t.Fatal(err)
	}
	if len(periods.Rows) != 1 || periods.Rows[0].Period != "2024" {
		t.Fatalf("Periods(Year) = %+v", periods.Rows)
	}
	if !periods.Rows[0].TotalValue.Equal(decimal.RequireFromString("1350.50")) {
		t.Errorf("2024 total = %s", periods.Rows[0].TotalValue)
	}

	products, err := a.Products(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(products.Products) != 3 || products.Products[0].Name != "Widget" {
		t.Fatalf("Products() = %+v", products.Products)
	}
	if last := products.Products[2]; last.Name != models.UnregisteredProduct || last.Registered {
		t.Errorf("unregistered product = %+v", last)
	}

	turnover, err := a.Turnover(ctx, f, aggregate.Month)
	if err != nil {
		t.Fatal(err)
	}
	if got := turnover.Periods(); len(got) != 2 {
		t.Errorf("Turnover periods = %v", got)
	}

	customers, err := a.Customers(ctx, f, aggregate.PurchasesByInvoice)
	if err != nil {
		t.Fatal(err)
	}
	if customers.KPIs.Customers != 3 || customers.KPIs.Returning != 0 {
		t.Errorf("KPIs = %+v", customers.KPIs)
	}

	all, err := a.Customers(ctx, aggregate.Filters{}, aggregate.PurchasesByRow)
	if err != nil {
		t.Fatal(err)
	}
	if all.KPIs.Customers != 4 {
		t.Errorf("with sentinel customer: Customers = %d, want 4", all.KPIs.Customers)
	}
	if all.Customers[0].Purchases != 2 {
		t.Errorf("row strategy purchases = %d, want 2", all.Customers[0].Purchases)
	}
}

func TestAnalytics_Memoization(t *testing.T) {
	rec := metrics.NewPrometheus()
	a := loadedAnalytics(t, Options{CacheMaxEntries: 64, Metrics: rec})
	ctx := context.Background()

	first, err := a.Products(ctx, a.DefaultFilters())
	if err != nil {
		t.Fatal(err)
	}
	a.cache.Wait()

	second, err := a.Products(ctx, a.DefaultFilters())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second call should be served from the cache")
	}

	other, err := a.Products(ctx, aggregate.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Error("different filters must not share a cache entry")
	}

	// Replacing the data invalidates every entry.
	sales, _, _ := ReadSales(ctx, strings.NewReader(salesCSV), ';')
	reg, _ := ReadRegistry(strings.NewReader(registryCSV), ';')
	a.SetData(sales, reg)

	third, err := a.Products(ctx, a.DefaultFilters())
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("reload should invalidate cached results")
	}
	if len(third.Products) != len(first.Products) {
		t.Error("same input should give the same result")
	}
}

func TestAnalytics_AggregationError(t *testing.T) {
	a := NewAnalytics(Options{})
	sales := models.NewSalesTable([]string{models.ColValue}, nil)
	a.SetData(sales, models.NewRegistry(nil, nil))

	_, err := a.Overview(context.Background(), a.DefaultFilters())
	var mc *aggregate.MissingColumnError
	if !errors.As(err, &mc) || mc.Column != models.ColCustomer {
		t.Errorf("Overview() error = %v, want missing Cliente", err)
	}
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()
	s1, _, _ := ReadSales(ctx, strings.NewReader(salesCSV), ';')
	s2, _, _ := ReadSales(ctx, strings.NewReader(salesCSV), ';')
	reg, _ := ReadRegistry(strings.NewReader(registryCSV), ';')

	if fingerprint(s1, reg) != fingerprint(s2, reg) {
		t.Error("identical tables should share a fingerprint")
	}

	s2.Rows[0].Value = decimal.NewNullDecimal(decimal.NewFromInt(1))
	if fingerprint(s1, reg) == fingerprint(s2, reg) {
		t.Error("changed value should change the fingerprint")
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := loadedAnalytics(t, Options{CacheMaxEntries: 16})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 10 {
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, err := a.Overview(ctx, a.DefaultFilters())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := a.Periods(ctx, a.DefaultFilters(), aggregate.Dimensions[i%len(aggregate.Dimensions)])
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := a.Turnover(ctx, a.DefaultFilters(), aggregate.Week)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_ = a.Stats()
			_, err := a.Customers(ctx, a.DefaultFilters(), aggregate.PurchasesByRow)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent query failed: %v", err)
		}
	}
}

func BenchmarkAnalytics_Periods(b *testing.B) {
	ctx := context.Background()
	sales, _, err := ReadSales(ctx, strings.NewReader(salesCSV), ';')
	if err != nil {
		b.Fatal(err)
	}
	reg, _ := ReadRegistry(strings.NewReader(registryCSV), ';')

	a := NewAnalytics(Options{})
	a.SetData(sales, reg)

	for b.Loop() {
		_, _ = a.Periods(ctx, a.DefaultFilters(), aggregate.Week)
	}
}
