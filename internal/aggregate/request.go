package aggregate

import (
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// DefaultSentinelCustomerID is the id used for sales to unidentified customers.
const DefaultSentinelCustomerID int64 = 99999

type Filters struct {
	IgnoreSentinelCustomer bool  `json:"ignore_sentinel_customer"`
	SentinelCustomerID     int64 `json:"sentinel_customer_id"`
}

func DefaultFilters() Filters {
	return Filters{
		IgnoreSentinelCustomer: true,
		SentinelCustomerID:     DefaultSentinelCustomerID,
	}
}

// Request carries everything one aggregation pass reads. Aggregators never
// modify it.
type Request struct {
	Sales    *models.SalesTable
	Registry *models.Registry
	Filters  Filters
	Locale   Locale
}

func (r Request) salesColumns() models.ColumnSet {
	if r.Sales == nil {
		return models.ColumnSet{}
	}
	return r.Sales.Columns
}

func (r Request) registryColumns() models.ColumnSet {
	if r.Registry == nil {
		return models.ColumnSet{}
	}
	return r.Registry.Columns
}

// rows returns the transactions left after the sentinel customer filter.
func (r Request) rows() []models.Transaction {
	if r.Sales == nil {
		return nil
	}
	if !r.Filters.IgnoreSentinelCustomer {
		return r.Sales.Rows
	}
	out := make([]models.Transaction, 0, len(r.Sales.Rows))
	for _, tx := range r.Sales.Rows {
		if tx.CustomerID.Valid && tx.CustomerID.Int64 == r.Filters.SentinelCustomerID {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func (r Request) productNames() map[string]string {
	if r.Registry == nil {
		return map[string]string{}
	}
	return r.Registry.Names()
}

// ZeroGuard selects what a ratio yields when its count denominator is zero.
// Each metric picks its own guard; they are deliberately not shared.
type ZeroGuard int

const (
	// FloorAtOne divides by 1 instead of 0, so the ratio equals the numerator.
	FloorAtOne ZeroGuard = iota
	// ZeroWhenEmpty makes the ratio 0.
	ZeroWhenEmpty
)

const (
	AvgPerCustomerGuard = FloorAtOne
	TicketGuard         = ZeroWhenEmpty
	OverviewGuard       = ZeroWhenEmpty
)

// ratioScale is the number of decimal places kept in averages.
const ratioScale = 2

func (g ZeroGuard) Divide(num decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		if g == ZeroWhenEmpty {
			return decimal.Zero
		}
		count = 1
	}
	return num.DivRound(decimal.NewFromInt(int64(count)), ratioScale)
}
