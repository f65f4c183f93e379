package models

import (
	"database/sql"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Column names as they appear in the source spreadsheets.
const (
	ColControl  = "Controle"
	ColInvoice  = "Nota Fiscal"
	ColCustomer = "Cliente"
	ColProduct  = "ProCod"
	ColDate     = "Data"
	ColQuantity = "Quantidade"
	ColValue    = "TotalVenda"

	ColProductName = "ProNom"
)

// Date-part columns derived from ColDate.
const (
	ColYear      = "Ano"
	ColSemester  = "Semestre"
	ColQuarter   = "Trimestre"
	ColMonth     = "MesPeriodo"
	ColWeekStart = "SemanaInicioDt"
	ColWeekday   = "DiaSemana"
	ColDay       = "Dia"
)

// DateParts lists the columns that exist whenever a sales table has a date.
var DateParts = []string{ColYear, ColSemester, ColQuarter, ColMonth, ColWeekStart, ColWeekday, ColDay}

// UnregisteredProduct is the display name given to codes missing from the registry.
const UnregisteredProduct = "Produto não cadastrado"

// Transaction is one sold line item. Cells that failed coercion are kept with
// Valid=false so each aggregation decides whether the row survives.
type Transaction struct {
	Control     string
	Invoice     string
	CustomerID  sql.NullInt64
	ProductCode string
	Date        sql.NullTime
	Quantity    decimal.NullDecimal
	Value       decimal.NullDecimal
}

type Product struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ColumnSet records which columns an input table carried.
type ColumnSet map[string]bool

func NewColumnSet(names ...string) ColumnSet {
	cs := make(ColumnSet, len(names))
	for _, n := range names {
		cs[n] = true
	}
	return cs
}

func (cs ColumnSet) Has(name string) bool {
	return cs[name]
}

// Sorted returns the present column names in lexical order.
func (cs ColumnSet) Sorted() []string {
	names := make([]string, 0, len(cs))
	for n, ok := range cs {
		if ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}

type SalesTable struct {
	Columns ColumnSet
	Rows    []Transaction
}

// NewSalesTable builds a table from its header columns. When the date column
// is present the derived date-part columns are added.
func NewSalesTable(columns []string, rows []Transaction) *SalesTable {
	cs := NewColumnSet(columns...)
	if cs.Has(ColDate) {
		for _, c := range DateParts {
			cs[c] = true
		}
	}
	return &SalesTable{Columns: cs, Rows: rows}
}

type Registry struct {
	Columns  ColumnSet
	Products []Product
}

func NewRegistry(columns []string, products []Product) *Registry {
	return &Registry{Columns: NewColumnSet(columns...), Products: products}
}

// Names returns the code -> name lookup. Entries without a name are
// skipped, so their codes count as unregistered. The first named entry for a
// code wins.
func (r *Registry) Names() map[string]string {
	names := make(map[string]string, len(r.Products))
	for _, p := range r.Products {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		if _, dup := names[p.Code]; dup {
			continue
		}
		names[p.Code] = p.Name
	}
	return names
}
