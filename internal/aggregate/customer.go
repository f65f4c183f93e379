package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// PurchaseCount selects how a customer's number of purchases is counted.
type PurchaseCount int

const (
	// PurchasesByInvoice counts distinct non-empty invoice ids.
	PurchasesByInvoice PurchaseCount = iota
	// PurchasesByRow counts transaction rows.
	PurchasesByRow
)

func ParsePurchaseCount(s string) (PurchaseCount, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "invoices", "invoice":
		return PurchasesByInvoice, nil
	case "rows", "row":
		return PurchasesByRow, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

func (p PurchaseCount) String() string {
	if p == PurchasesByRow {
		return "rows"
	}
	return "invoices"
}

func (p PurchaseCount) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type CustomerReport struct {
	Strategy  PurchaseCount            `json:"strategy"`
	Customers []models.CustomerSummary `json:"customers"`
	KPIs      models.CustomerKPIs      `json:"kpis"`
	Dropped   int                      `json:"dropped"`
}

type customerGroup struct {
	summary  models.CustomerSummary
	rows     int
	invoices map[string]struct{}
}

// Customers summarises sales per customer id. The average ticket is zero for a
// customer with no counted purchases.
func Customers(req Request, strategy PurchaseCount) (*CustomerReport, error) {
	required := []string{models.ColCustomer, models.ColValue, models.ColQuantity}
	switch strategy {
	case PurchasesByInvoice:
		required = append(required, models.ColInvoice)
	case PurchasesByRow:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}
	if err := requireColumns(salesTable, req.salesColumns(), required...); err != nil {
		return nil, err
	}

	report := &CustomerReport{Strategy: strategy}
	groups := make(map[int64]*customerGroup)
	for _, tx := range req.rows() {
		if !tx.CustomerID.Valid || !tx.Value.Valid || !tx.Quantity.Valid {
			report.Dropped++
			continue
		}
		id := tx.CustomerID.Int64
		g := groups[id]
		if g == nil {
			g = &customerGroup{
				summary: models.CustomerSummary{
					CustomerID: id,
					TotalValue: decimal.Zero,
					Quantity:   decimal.Zero,
				},
				invoices: make(map[string]struct{}),
			}
			groups[id] = g
		}
		g.summary.TotalValue = g.summary.TotalValue.Add(tx.Value.Decimal)
		g.summary.Quantity = g.summary.Quantity.Add(tx.Quantity.Decimal)
		g.rows++
		if tx.Invoice != "" {
			g.invoices[tx.Invoice] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	report.Customers = make([]models.CustomerSummary, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		s := g.summary
		if strategy == PurchasesByRow {
			s.Purchases = g.rows
		} else {
			s.Purchases = len(g.invoices)
		}
		s.AverageTicket = TicketGuard.Divide(s.TotalValue, s.Purchases)
		report.Customers = append(report.Customers, s)
	}
	report.KPIs = CustomerKPIs(report.Customers)
	return report, nil
}

// CustomerKPIs derives the customer counters from a per-customer table.
func CustomerKPIs(rows []models.CustomerSummary) models.CustomerKPIs {
	kpis := models.CustomerKPIs{Customers: len(rows)}
	for _, r := range rows {
		if r.Purchases > 1 {
			kpis.Returning++
		}
	}
	if kpis.Customers > 0 {
		kpis.ReturnRate = float64(kpis.Returning) / float64(kpis.Customers) * 100
	}
	return kpis
}

// Overview computes the headline indicators: distinct customers, total sold
// and the average sold per customer.
func Overview(req Request) (*models.Overview, error) {
	if err := requireColumns(salesTable, req.salesColumns(), models.ColCustomer, models.ColValue); err != nil {
		return nil, err
	}

	total := decimal.Zero
	customers := make(map[int64]struct{})
	for _, tx := range req.rows() {
		if !tx.CustomerID.Valid || !tx.Value.Valid {
			continue
		}
		total = total.Add(tx.Value.Decimal)
		customers[tx.CustomerID.Int64] = struct{}{}
	}

	return &models.Overview{
		Customers:      len(customers),
		TotalValue:     total,
		AvgPerCustomer: OverviewGuard.Divide(total, len(customers)),
	}, nil
}
