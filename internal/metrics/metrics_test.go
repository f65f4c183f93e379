package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()

	p.ObserveAggregation("periods", 3*time.Millisecond, nil)
	p.ObserveAggregation("periods", time.Millisecond, errors.New("missing column"))
	p.CacheLookup("periods", true)
	p.CacheLookup("periods", false)
	p.CacheLookup("periods", false)
	p.RowsLoaded("sales", 120, 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.aggregationsTotal.WithLabelValues("periods", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.aggregationsTotal.WithLabelValues("periods", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.cacheLookups.WithLabelValues("periods", "miss")))
	assert.Equal(t, 120.0, testutil.ToFloat64(p.rowsLoaded.WithLabelValues("sales")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.rowsDropped.WithLabelValues("sales")))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveAggregation("products", time.Millisecond, nil)

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `sales_aggregations_total{operation="products",status="ok"} 1`))
}

func TestNewPrometheus_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheus()
		NewPrometheus()
	})
}
