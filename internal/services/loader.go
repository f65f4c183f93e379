package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var (
	ErrEmptyFile = errors.New("empty file")
	ErrNoRecords = errors.New("no records found")
)

// Header aliases, lower-cased. The dashboards exported the value column
// under several names.
var salesHeaders = map[string]string{
	"controle":    models.ColControl,
	"nota fiscal": models.ColInvoice,
	"nota_fiscal": models.ColInvoice,
	"notafiscal":  models.ColInvoice,
	"cliente":     models.ColCustomer,
	"procod":      models.ColProduct,
	"data":        models.ColDate,
	"quantidade":  models.ColQuantity,
	"totalvenda":  models.ColValue,
	"totalitem":   models.ColValue,
	"valor_total": models.ColValue,
}

var registryHeaders = map[string]string{
	"procod": models.ColProduct,
	"pronom": models.ColProductName,
}

var dateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	time.DateTime,
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// LoadStats describes how many rows a table had and how many carried at
// least one cell that failed coercion.
type LoadStats struct {
	Rows        int `json:"rows"`
	Unparseable int `json:"unparseable"`
}

// ReadSales parses a sales CSV. Unparseable cells are kept as invalid values;
// the aggregations decide what to drop.
func ReadSales(ctx context.Context, r io.Reader, delimiter rune) (*models.SalesTable, LoadStats, error) {
	header, records, err := readAll(r, delimiter)
	if err != nil {
		return nil, LoadStats{}, err
	}

	index := mapHeader(header, salesHeaders)
	columns := make([]string, 0, len(index))
	for c := range index {
		columns = append(columns, c)
	}

	rows := make([]models.Transaction, len(records))
	bad := make([]bool, len(records))

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				rows[i], bad[i] = parseTransaction(records[i], index)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Rows: len(rows)}
	for _, b := range bad {
		if b {
			stats.Unparseable++
		}
	}
	return models.NewSalesTable(columns, rows), stats, nil
}

// ReadRegistry parses the product registry CSV.
func ReadRegistry(r io.Reader, delimiter rune) (*models.Registry, error) {
	header, records, err := readAll(r, delimiter)
	if err != nil {
		return nil, err
	}

	index := mapHeader(header, registryHeaders)
	columns := make([]string, 0, len(index))
	for c := range index {
		columns = append(columns, c)
	}

	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		code := cell(rec, index, models.ColProduct)
		name := cell(rec, index, models.ColProductName)
		if code == "" || name == "" {
			continue
		}
		products = append(products, models.Product{Code: code, Name: name})
	}
	return models.NewRegistry(columns, products), nil
}

func readAll(r io.Reader, delimiter rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoRecords
	}
	return header, records, nil
}

// mapHeader returns canonical column -> field index. The first alias found
// for a column wins.
func mapHeader(header []string, aliases map[string]string) map[string]int {
	index := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		col, ok := aliases[h]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	return index
}

func cell(record []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseTransaction(record []string, index map[string]int) (models.Transaction, bool) {
	tx := models.Transaction{
		Control:     cell(record, index, models.ColControl),
		Invoice:     cell(record, index, models.ColInvoice),
		ProductCode: cell(record, index, models.ColProduct),
	}
	bad := false

	if _, ok := index[models.ColCustomer]; ok {
		tx.CustomerID = parseCustomerID(cell(record, index, models.ColCustomer))
		bad = bad || !tx.CustomerID.Valid
	}
	if _, ok := index[models.ColDate]; ok {
		tx.Date = parseDate(cell(record, index, models.ColDate))
		bad = bad || !tx.Date.Valid
	}
	if _, ok := index[models.ColQuantity]; ok {
		tx.Quantity = parseDecimal(cell(record, index, models.ColQuantity))
		bad = bad || !tx.Quantity.Valid
	}
	if _, ok := index[models.ColValue]; ok {
		tx.Value = parseDecimal(cell(record, index, models.ColValue))
		bad = bad || !tx.Value.Valid
	}
	return tx, bad
}

// parseDecimal accepts "1234.56", "1234,56", "1.234,56", "1,234.56" and an
// optional "R$" prefix.
func parseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return decimal.NullDecimal{}
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// parseCustomerID accepts integers and integral decimals such as "123.0".
func parseCustomerID(s string) sql.NullInt64 {
	if s == "" {
		return sql.NullInt64{}
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: id, Valid: true}
	}
	d := parseDecimal(s)
	if !d.Valid || !d.Decimal.Equal(d.Decimal.Truncate(0)) {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Decimal.IntPart(), Valid: true}
}

func parseDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}
