package aggregate

import (
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

type PeriodTable struct {
	Dimension Dimension              `json:"dimension"`
	Rows      []models.PeriodSummary `json:"rows"`
	Dropped   int                    `json:"dropped"`
}

type periodGroup struct {
	bucket       bucket
	total        decimal.Decimal
	rows         int
	transactions int
	customers    map[int64]struct{}
	months       map[string]struct{}
}

// Periods summarises sales per bucket of dim. A table without the dimension's
// date-part column yields an empty result rather than an error.
func Periods(req Request, dim Dimension) (*PeriodTable, error) {
	if err := dim.valid(); err != nil {
		return nil, err
	}
	cols := req.salesColumns()
	if err := requireColumns(salesTable, cols, models.ColCustomer, models.ColValue, models.ColControl); err != nil {
		return nil, err
	}

	table := &PeriodTable{Dimension: dim, Rows: []models.PeriodSummary{}}
	if !cols.Has(dim.Column()) {
		return table, nil
	}

	groups := make(map[int64]*periodGroup)
	for _, tx := range req.rows() {
		if !tx.CustomerID.Valid || !tx.Value.Valid || !tx.Date.Valid {
			table.Dropped++
			continue
		}

		b := dim.periodBucket(tx.Date.Time, req.Locale)
		g := groups[b.key]
		if g == nil {
			g = &periodGroup{
				bucket:    b,
				total:     decimal.Zero,
				customers: make(map[int64]struct{}),
			}
			if dim == Week {
				g.months = make(map[string]struct{})
			}
			groups[b.key] = g
		}

		g.total = g.total.Add(tx.Value.Decimal)
		g.rows++
		if tx.Control != "" {
			g.transactions++
		}
		g.customers[tx.CustomerID.Int64] = struct{}{}
		if g.months != nil {
			g.months[tx.Date.Time.Month().String()[:3]] = struct{}{}
		}
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		g := groups[k]
		table.Rows = append(table.Rows, models.PeriodSummary{
			Period:            g.bucket.label,
			TotalValue:        g.total,
			Customers:         len(g.customers),
			Transactions:      g.transactions,
			AvgPerCustomer:    AvgPerCustomerGuard.Divide(g.total, len(g.customers)),
			AvgPerTransaction: FloorAtOne.Divide(g.total, g.rows),
			Months:            monthsLabel(g.months),
		})
	}
	return table, nil
}

// monthsLabel joins the sorted month abbreviations seen in a week, e.g. "Dec-Jan".
func monthsLabel(months map[string]struct{}) string {
	if len(months) == 0 {
		return ""
	}
	names := make([]string, 0, len(months))
	for m := range months {
		names = append(names, m)
	}
	sort.Strings(names)
	return strings.Join(names, "-")
}
