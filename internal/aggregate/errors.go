package aggregate

import (
	"errors"
	"fmt"

	"sales-dashboard/internal/models"
)

var (
	ErrMissingColumn    = errors.New("missing column")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownStrategy  = errors.New("unknown purchase count strategy")
)

const (
	salesTable    = "sales"
	registryTable = "registry"
)

// MissingColumnError reports an essential column absent from an input table.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s table: missing column %q", e.Table, e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

type UnknownDimensionError struct {
	Name string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown dimension %q", e.Name)
}

func (e *UnknownDimensionError) Unwrap() error {
	return ErrUnknownDimension
}

func requireColumns(table string, cs models.ColumnSet, cols ...string) error {
	for _, c := range cols {
		if !cs.Has(c) {
			return &MissingColumnError{Table: table, Column: c}
		}
	}
	return nil
}
