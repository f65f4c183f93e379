package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func TestProducts_TotalsAndOrder(t *testing.T) {
	req := scenarioRequest()

	report, err := Products(req)
	require.NoError(t, err)
	require.Len(t, report.Products, 2)

	assert.Equal(t, "B", report.Products[0].Code)
	assert.Equal(t, "Feijão", report.Products[0].Name)
	assert.True(t, report.Products[0].TotalValue.Equal(dec("50")))
	assert.True(t, report.Products[0].Quantity.Equal(dec("5")))

	assert.Equal(t, "A", report.Products[1].Code)
	assert.True(t, report.Products[1].TotalValue.Equal(dec("30")))
	assert.True(t, report.Products[1].Quantity.Equal(dec("3")))
	assert.Zero(t, report.Unregistered)
}

func TestProducts_UnregisteredKeepsRow(t *testing.T) {
	req := scenarioRequest()
	rows := append([]models.Transaction(nil), req.Sales.Rows...)
	rows = append(rows, tx("9", 3, "Z", "2024-02-02", "1", "99", "104"))
	req.Sales = models.NewSalesTable(salesColumns, rows)

	report, err := Products(req)
	require.NoError(t, err)
	require.Len(t, report.Products, 3)

	top := report.Products[0]
	assert.Equal(t, "Z", top.Code)
	assert.Equal(t, models.UnregisteredProduct, top.Name)
	assert.False(t, top.Registered)
	assert.Equal(t, 1, report.Unregistered)
}

func TestProducts_DropsUnparseableRows(t *testing.T) {
	req := scenarioRequest()
	rows := append([]models.Transaction(nil), req.Sales.Rows...)
	rows = append(rows,
		tx("10", 1, "A", "2024-01-05", "abc", "10", "105"),
		tx("11", 1, "A", "2024-01-05", "1", "n/a", "106"),
		tx("12", 1, "", "2024-01-05", "1", "10", "107"),
	)
	req.Sales = models.NewSalesTable(salesColumns, rows)

	report, err := Products(req)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Dropped)

	for _, p := range report.Products {
		if p.Code == "A" {
			assert.True(t, p.TotalValue.Equal(dec("30")), "A total %s", p.TotalValue)
		}
	}
}

func TestProducts_TiesKeepCodeOrder(t *testing.T) {
	rows := []models.Transaction{
		tx("1", 1, "C", "2024-01-01", "1", "10", "1"),
		tx("2", 1, "A", "2024-01-01", "1", "10", "1"),
		tx("3", 1, "B", "2024-01-01", "1", "10", "1"),
	}
	req := Request{
		Sales:    models.NewSalesTable(salesColumns, rows),
		Registry: models.NewRegistry([]string{models.ColProduct, models.ColProductName}, nil),
	}

	report, err := Products(req)
	require.NoError(t, err)
	var codes []string
	for _, p := range report.Products {
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []string{"A", "B", "C"}, codes)
}

func TestProducts_RegistryFirstEntryWins(t *testing.T) {
	req := scenarioRequest()
	req.Registry = models.NewRegistry([]string{models.ColProduct, models.ColProductName}, []models.Product{
		{Code: "A", Name: "first"},
		{Code: "A", Name: "second"},
	})

	report, err := Products(req)
	require.NoError(t, err)
	for _, p := range report.Products {
		if p.Code == "A" {
			assert.Equal(t, "first", p.Name)
		}
	}
}

func TestProducts_MissingColumns(t *testing.T) {
	req := scenarioRequest()
	req.Registry = models.NewRegistry([]string{models.ColProduct}, nil)
	_, err := Products(req)
	assert.ErrorIs(t, err, ErrMissingColumn)

	req = scenarioRequest()
	req.Registry = nil
	_, err = Products(req)
	assert.ErrorIs(t, err, ErrMissingColumn)

	req = scenarioRequest()
	req.Sales = models.NewSalesTable([]string{models.ColProduct, models.ColValue}, nil)
	_, err = Products(req)
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, models.ColQuantity, mce.Column)
}

func TestProducts_SumMatchesTransactions(t *testing.T) {
	req := randomRequest(newRand(5), 400)

	want := make(map[string]decimal.Decimal)
	for _, r := range req.rows() {
		want[r.ProductCode] = want[r.ProductCode].Add(r.Value.Decimal)
	}

	report, err := Products(req)
	require.NoError(t, err)
	require.Len(t, report.Products, len(want))
	for _, p := range report.Products {
		assert.True(t, want[p.Code].Equal(p.TotalValue), p.Code)
	}
	assert.Equal(t, 2, report.Unregistered)
}

func TestTopProductsAndClamp(t *testing.T) {
	report, err := Products(scenarioRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, ClampTopN(0, 2))
	assert.Equal(t, 2, ClampTopN(10, 2))
	assert.Equal(t, 0, ClampTopN(5, 0))

	top := TopProducts(report.Products, ClampTopN(1, len(report.Products)))
	require.Len(t, top, 1)
	assert.Equal(t, "B", top[0].Code)
}

func TestProducts_BlankRegistryNameIsUnregistered(t *testing.T) {
	req := scenarioRequest()
	req.Registry = models.NewRegistry([]string{models.ColProduct, models.ColProductName},
		[]models.Product{{Code: "A", Name: ""}, {Code: "B", Name: "Feijão"}})

	report, err := Products(req)
	require.NoError(t, err)
	require.Len(t, report.Products, 2)

	assert.Equal(t, "Feijão", report.Products[0].Name)
	assert.True(t, report.Products[0].Registered)
	assert.Equal(t, "A", report.Products[1].Code)
	assert.Equal(t, models.UnregisteredProduct, report.Products[1].Name)
	assert.False(t, report.Products[1].Registered)
	assert.Equal(t, 1, report.Unregistered)
}
