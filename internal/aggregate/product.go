package aggregate

import (
	"slices"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

type ProductReport struct {
	Products     []models.ProductSales `json:"products"`
	Unregistered int                   `json:"unregistered"`
	Dropped      int                   `json:"dropped"`
}

// Products totals value and quantity per product code and joins the registry
// name. Rows whose value or quantity did not parse are dropped. The result is
// sorted by total value, highest first; equal totals keep product code order.
func Products(req Request) (*ProductReport, error) {
	if err := requireColumns(salesTable, req.salesColumns(), models.ColProduct, models.ColValue, models.ColQuantity); err != nil {
		return nil, err
	}
	if err := requireColumns(registryTable, req.registryColumns(), models.ColProduct, models.ColProductName); err != nil {
		return nil, err
	}

	report := &ProductReport{}
	groups := make(map[string]*models.ProductSales)
	for _, tx := range req.rows() {
		if tx.ProductCode == "" || !tx.Value.Valid || !tx.Quantity.Valid {
			report.Dropped++
			continue
		}
		p := groups[tx.ProductCode]
		if p == nil {
			p = &models.ProductSales{
				Code:       tx.ProductCode,
				Quantity:   decimal.Zero,
				TotalValue: decimal.Zero,
			}
			groups[tx.ProductCode] = p
		}
		p.Quantity = p.Quantity.Add(tx.Quantity.Decimal)
		p.TotalValue = p.TotalValue.Add(tx.Value.Decimal)
	}

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	names := req.productNames()
	report.Products = make([]models.ProductSales, 0, len(codes))
	for _, code := range codes {
		p := *groups[code]
		if name, ok := names[code]; ok {
			p.Name = name
			p.Registered = true
		} else {
			p.Name = models.UnregisteredProduct
			report.Unregistered++
		}
		report.Products = append(report.Products, p)
	}

	slices.SortStableFunc(report.Products, func(a, b models.ProductSales) int {
		return b.TotalValue.Cmp(a.TotalValue)
	})
	return report, nil
}

// TopProducts returns the first n rows. Callers clamp n with ClampTopN.
func TopProducts(rows []models.ProductSales, n int) []models.ProductSales {
	return rows[:n]
}

// ClampTopN bounds a requested top-N to [1, count]. It returns 0 only when
// there are no rows.
func ClampTopN(n, count int) int {
	if count <= 0 {
		return 0
	}
	return max(1, min(n, count))
}
