package catalog

import "fmt"

// Domain errors returned by Catalog operations (spec.md §4.3). Each is a
// sentinel-carrying struct rather than a bare sentinel because most carry
// the identifying context the caller needs to build a wire error.

type ErrSchemaDoesNotExist struct{ Name string }

func (e *ErrSchemaDoesNotExist) Error() string {
	return fmt.Sprintf("schema %q does not exist", e.Name)
}

type ErrSchemaAlreadyExists struct{ Name string }

func (e *ErrSchemaAlreadyExists) Error() string {
	return fmt.Sprintf("schema %q already exists", e.Name)
}

type ErrTableDoesNotExist struct{ Schema, Table string }

func (e *ErrTableDoesNotExist) Error() string {
	return fmt.Sprintf("relation %q does not exist", e.Schema+"."+e.Table)
}

type ErrTableAlreadyExists struct{ Schema, Table string }

func (e *ErrTableAlreadyExists) Error() string {
	return fmt.Sprintf("relation %q already exists", e.Schema+"."+e.Table)
}

type ErrColumnDoesNotExist struct{ Names []string }

func (e *ErrColumnDoesNotExist) Error() string {
	return fmt.Sprintf("column(s) %v do not exist", e.Names)
}

// ConstraintViolation is one failed per-cell validation inside an
// in-progress INSERT row (spec.md §4.3).
type ConstraintViolation struct {
	Kind   sqlViolationKind
	Column ColumnDefinition
	Value  string
}

// sqlViolationKind is the catalog's own copy of sqltypes.ViolationKind
// (without a "none" value), so callers can switch on violation kinds
// without importing sqltypes; see catalog.go for the translation.
type sqlViolationKind int

const (
	ViolationOutOfRange sqlViolationKind = iota
	ViolationTypeMismatch
	ViolationValueTooLong
)

type ErrConstraintViolations struct {
	RowIndex   int
	Violations []ConstraintViolation
}

func (e *ErrConstraintViolations) Error() string {
	return fmt.Sprintf("%d constraint violation(s) at row %d", len(e.Violations), e.RowIndex)
}

type ErrInsertTooManyExpressions struct {
	RowIndex int
}

func (e *ErrInsertTooManyExpressions) Error() string {
	return fmt.Sprintf("row %d has more expressions than target columns", e.RowIndex)
}

// ErrInsertTooFewExpressions is the symmetric case spec.md §8 scenario 6
// calls out as "reported identically" — same wire error, distinct Go
// sentinel so callers can log which direction happened.
type ErrInsertTooFewExpressions struct {
	RowIndex int
}

func (e *ErrInsertTooFewExpressions) Error() string {
	return fmt.Sprintf("row %d has fewer expressions than target columns", e.RowIndex)
}
