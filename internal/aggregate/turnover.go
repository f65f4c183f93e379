package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// TurnoverReport holds quantities sold per (period, product name).
type TurnoverReport struct {
	Dimension Dimension            `json:"dimension"`
	Rows      []models.TurnoverRow `json:"rows"`
	Dropped   int                  `json:"dropped"`

	periods []bucket
}

type turnoverKey struct {
	period  int64
	product string
}

// Turnover computes the period labels straight from the transaction date, so
// it does not depend on the derived date-part columns.
func Turnover(req Request, dim Dimension) (*TurnoverReport, error) {
	if err := dim.valid(); err != nil {
		return nil, err
	}
	if err := requireColumns(salesTable, req.salesColumns(), models.ColProduct, models.ColDate, models.ColQuantity); err != nil {
		return nil, err
	}
	if err := requireColumns(registryTable, req.registryColumns(), models.ColProduct, models.ColProductName); err != nil {
		return nil, err
	}

	report := &TurnoverReport{Dimension: dim, Rows: []models.TurnoverRow{}}
	names := req.productNames()
	labels := make(map[int64]string)
	sums := make(map[turnoverKey]decimal.Decimal)

	for _, tx := range req.rows() {
		if tx.ProductCode == "" || !tx.Date.Valid || !tx.Quantity.Valid {
			report.Dropped++
			continue
		}
		name, ok := names[tx.ProductCode]
		if !ok {
			name = models.UnregisteredProduct
		}
		b := dim.turnoverBucket(tx.Date.Time, req.Locale)
		labels[b.key] = b.label

		k := turnoverKey{period: b.key, product: name}
		sums[k] = sums[k].Add(tx.Quantity.Decimal)
	}

	keys := make([]turnoverKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b turnoverKey) int {
		if c := cmp.Compare(a.period, b.period); c != 0 {
			return c
		}
		return cmp.Compare(a.product, b.product)
	})

	for _, k := range keys {
		report.Rows = append(report.Rows, models.TurnoverRow{
			Period:   labels[k.period],
			Product:  k.product,
			Quantity: sums[k],
		})
	}

	for key, label := range labels {
		report.periods = append(report.periods, bucket{key: key, label: label})
	}
	slices.SortFunc(report.periods, func(a, b bucket) int {
		return cmp.Compare(a.key, b.key)
	})
	return report, nil
}

// Periods lists the distinct period labels in chronological order.
func (r *TurnoverReport) Periods() []string {
	out := make([]string, len(r.periods))
	for i, p := range r.periods {
		out[i] = p.label
	}
	return out
}

// ForPeriod returns the rows of one period, largest quantity first.
func (r *TurnoverReport) ForPeriod(label string) []models.TurnoverRow {
	var out []models.TurnoverRow
	for _, row := range r.Rows {
		if row.Period == label {
			out = append(out, row)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TurnoverRow) int {
		return b.Quantity.Cmp(a.Quantity)
	})
	return out
}

// TopTurnover keeps at most k rows.
func TopTurnover(rows []models.TurnoverRow, k int) []models.TurnoverRow {
	if k < 0 || k >= len(rows) {
		return rows
	}
	return rows[:k]
}
