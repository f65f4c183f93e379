package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

var ErrNoData = errors.New("no sales data loaded")

const (
	opOverview  = "overview"
	opPeriods   = "periods"
	opProducts  = "products"
	opTurnover  = "turnover"
	opCustomers = "customers"
)

type Options struct {
	Locale          aggregate.Locale
	Filters         aggregate.Filters
	PurchaseCount   aggregate.PurchaseCount
	Delimiter       rune
	CacheMaxEntries int64
	Metrics         metrics.Recorder
	Logger          *slog.Logger
}

// dataset is replaced as a whole on reload and never mutated afterwards.
type dataset struct {
	sales       *models.SalesTable
	registry    *models.Registry
	fingerprint uint64
	salesStats  LoadStats
	loadedAt    time.Time
	source      string
}

// Analytics owns the loaded tables and serves memoized aggregations over
// them. Results returned from the cache are shared and must not be modified.
type Analytics struct {
	mu      sync.RWMutex
	data    *dataset
	opts    Options
	cache   *ristretto.Cache
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewAnalytics(opts Options) *Analytics {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.Locale.Tag == language.Und {
		opts.Locale = aggregate.PortugueseBR
	}
	if opts.Filters == (aggregate.Filters{}) {
		opts.Filters = aggregate.DefaultFilters()
	}

	a := &Analytics{
		opts:    opts,
		metrics: opts.Metrics,
		logger:  observability.Component(opts.Logger, "analytics"),
	}

	if opts.CacheMaxEntries > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: opts.CacheMaxEntries * 10,
			MaxCost:     opts.CacheMaxEntries,
			BufferItems: 64,
			Metrics:     true,
		})
		if err != nil {
			a.logger.Warn("aggregation cache disabled", "error", err)
		} else {
			a.cache = cache
		}
	}
	return a
}

// SetData replaces the loaded tables.
func (a *Analytics) SetData(sales *models.SalesTable, registry *models.Registry) {
	if sales == nil {
		sales = models.NewSalesTable(nil, nil)
	}
	if registry == nil {
		registry = models.NewRegistry(nil, nil)
	}
	a.swap(&dataset{
		sales:       sales,
		registry:    registry,
		fingerprint: fingerprint(sales, registry),
		salesStats:  LoadStats{Rows: len(sales.Rows)},
		loadedAt:    time.Now(),
		source:      "memory",
	})
}

// LoadFromCSV reads the sales and registry files concurrently and replaces
// the loaded tables only when both parse.
func (a *Analytics) LoadFromCSV(ctx context.Context, salesPath, registryPath string) error {
	start := time.Now()
	a.logger.Info("loading csv files", "sales", salesPath, "registry", registryPath)

	var (
		sales    *models.SalesTable
		stats    LoadStats
		registry *models.Registry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := os.Open(salesPath)
		if err != nil {
			return fmt.Errorf("open sales: %w", err)
		}
		defer f.Close()

		sales, stats, err = ReadSales(gctx, f, a.opts.Delimiter)
		if err != nil {
			return fmt.Errorf("read sales %s: %w", salesPath, err)
		}
		return nil
	})
	g.Go(func() error {
		f, err := os.Open(registryPath)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		defer f.Close()

		registry, err = ReadRegistry(f, a.opts.Delimiter)
		if err != nil {
			return fmt.Errorf("read registry %s: %w", registryPath, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.metrics.RowsLoaded("sales", stats.Rows, stats.Unparseable)
	a.metrics.RowsLoaded("registry", len(registry.Products), 0)

	a.swap(&dataset{
		sales:       sales,
		registry:    registry,
		fingerprint: fingerprint(sales, registry),
		salesStats:  stats,
		loadedAt:    time.Now(),
		source:      salesPath,
	})

	duration := time.Since(start)
	a.logger.Info("csv loading complete",
		"records", stats.Rows,
		"unparseable", stats.Unparseable,
		"products", len(registry.Products),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(stats.Rows)/duration.Seconds()))

	return nil
}

func (a *Analytics) swap(ds *dataset) {
	a.mu.Lock()
	a.data = ds
	a.mu.Unlock()

	if a.cache != nil {
		a.cache.Clear()
	}
}

// Close stops the aggregation cache. Later queries are computed without
// memoization.
func (a *Analytics) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

func (a *Analytics) DefaultFilters() aggregate.Filters {
	return a.opts.Filters
}

func (a *Analytics) PurchaseCount() aggregate.PurchaseCount {
	return a.opts.PurchaseCount
}

func (a *Analytics) Locale() aggregate.Locale {
	return a.opts.Locale
}

func (a *Analytics) Overview(ctx context.Context, f aggregate.Filters) (*models.Overview, error) {
	return memoize(ctx, a, query{op: opOverview, filters: f}, func(req aggregate.Request) (*models.Overview, error) {
		return aggregate.Overview(req)
	})
}

func (a *Analytics) Periods(ctx context.Context, f aggregate.Filters, dim aggregate.Dimension) (*aggregate.PeriodTable, error) {
	return memoize(ctx, a, query{op: opPeriods, filters: f, dimension: dim}, func(req aggregate.Request) (*aggregate.PeriodTable, error) {
		return aggregate.Periods(req, dim)
	})
}

func (a *Analytics) Products(ctx context.Context, f aggregate.Filters) (*aggregate.ProductReport, error) {
	return memoize(ctx, a, query{op: opProducts, filters: f}, func(req aggregate.Request) (*aggregate.ProductReport, error) {
		return aggregate.Products(req)
	})
}

func (a *Analytics) Turnover(ctx context.Context, f aggregate.Filters, dim aggregate.Dimension) (*aggregate.TurnoverReport, error) {
	return memoize(ctx, a, query{op: opTurnover, filters: f, dimension: dim}, func(req aggregate.Request) (*aggregate.TurnoverReport, error) {
		return aggregate.Turnover(req, dim)
	})
}

func (a *Analytics) Customers(ctx context.Context, f aggregate.Filters, strategy aggregate.PurchaseCount) (*aggregate.CustomerReport, error) {
	return memoize(ctx, a, query{op: opCustomers, filters: f, strategy: strategy}, func(req aggregate.Request) (*aggregate.CustomerReport, error) {
		return aggregate.Customers(req, strategy)
	})
}

type query struct {
	op        string
	filters   aggregate.Filters
	dimension aggregate.Dimension
	strategy  aggregate.PurchaseCount
}

func (q query) key(fp uint64, loc aggregate.Locale) uint64 {
	var buf [8]byte
	d := xxhash.New()

	binary.LittleEndian.PutUint64(buf[:], fp)
	d.Write(buf[:])
	d.WriteString(q.op)
	d.WriteString(loc.Tag.String())

	binary.LittleEndian.PutUint64(buf[:], uint64(q.filters.SentinelCustomerID))
	d.Write(buf[:])
	flags := []byte{0, byte(q.dimension), byte(q.strategy)}
	if q.filters.IgnoreSentinelCustomer {
		flags[0] = 1
	}
	d.Write(flags)
	return d.Sum64()
}

func memoize[T any](ctx context.Context, a *Analytics, q query, compute func(aggregate.Request) (T, error)) (T, error) {
	var zero T

	a.mu.RLock()
	ds := a.data
	a.mu.RUnlock()
	if ds == nil {
		return zero, ErrNoData
	}

	key := q.key(ds.fingerprint, a.opts.Locale)
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			if out, ok := v.(T); ok {
				a.metrics.CacheLookup(q.op, true)
				return out, nil
			}
		}
		a.metrics.CacheLookup(q.op, false)
		a.logger.Debug("aggregation cache miss", "operation", q.op)
	}

	ctx, span := observability.StartSpan(ctx, "aggregate."+q.op)
	if q.dimension != 0 {
		span.SetTag("dimension", q.dimension.String())
	}

	start := time.Now()
	out, err := compute(aggregate.Request{
		Sales:    ds.sales,
		Registry: ds.registry,
		Filters:  q.filters,
		Locale:   a.opts.Locale,
	})
	a.metrics.ObserveAggregation(q.op, time.Since(start), err)
	if err != nil {
		span.SetError(err)
		span.Finish(ctx, a.logger)
		a.logger.Warn("aggregation failed", "operation", q.op, "error", err)
		return zero, err
	}
	span.Finish(ctx, a.logger)

	if a.cache != nil {
		a.cache.Set(key, out, 1)
	}
	return out, nil
}

// fingerprint hashes every field the aggregations read.
func fingerprint(sales *models.SalesTable, registry *models.Registry) uint64 {
	d := xxhash.New()
	var buf [8]byte
	sep := []byte{0}

	if sales != nil {
		for _, c := range sales.Columns.Sorted() {
			d.WriteString(c)
			d.Write(sep)
		}
		for _, tx := range sales.Rows {
			d.WriteString(tx.Control)
			d.Write(sep)
			d.WriteString(tx.Invoice)
			d.Write(sep)
			d.WriteString(tx.ProductCode)
			d.Write(sep)
			if tx.CustomerID.Valid {
				binary.LittleEndian.PutUint64(buf[:], uint64(tx.CustomerID.Int64))
				d.Write(buf[:])
			}
			d.Write(sep)
			if tx.Date.Valid {
				binary.LittleEndian.PutUint64(buf[:], uint64(tx.Date.Time.UnixNano()))
				d.Write(buf[:])
			}
			d.Write(sep)
			if tx.Quantity.Valid {
				d.WriteString(tx.Quantity.Decimal.String())
			}
			d.Write(sep)
			if tx.Value.Valid {
				d.WriteString(tx.Value.Decimal.String())
			}
			d.Write(sep)
		}
	}

	d.Write([]byte{1})
	if registry != nil {
		for _, c := range registry.Columns.Sorted() {
			d.WriteString(c)
			d.Write(sep)
		}
		for _, p := range registry.Products {
			d.WriteString(p.Code)
			d.Write(sep)
			d.WriteString(p.Name)
			d.Write(sep)
		}
	}
	return d.Sum64()
}

// Stats reports what is loaded, for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	ds := a.data
	a.mu.RUnlock()

	if ds == nil {
		return map[string]any{"loaded": false}
	}

	stats := map[string]any{
		"loaded":            true,
		"source":            ds.source,
		"record_count":      ds.salesStats.Rows,
		"unparseable_rows":  ds.salesStats.Unparseable,
		"products":          len(ds.registry.Products),
		"last_processed":    ds.loadedAt,
		"fingerprint":       fmt.Sprintf("%016x", ds.fingerprint),
		"locale":            a.opts.Locale.Tag.String(),
		"purchase_strategy": a.opts.PurchaseCount.String(),
	}
	if a.cache != nil && a.cache.Metrics != nil {
		stats["cache_hits"] = a.cache.Metrics.Hits()
		stats["cache_misses"] = a.cache.Metrics.Misses()
	}
	return stats
}
