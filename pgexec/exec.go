// Package pgexec is the command executor from spec.md §4.4: it takes a
// parsed ast.Statement, drives package catalog, evaluates literal
// expressions (eval.go), and produces either a QueryEvent or a
// *pgerr.WireError for the wire layer to render.
package pgexec

import (
	"context"

	"github.com/minipg/minipg/ast"
	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/pgerr"
)

// Execute runs one parsed statement against cat. rawSQL is only used to
// build the FeatureNotSupported message for statement kinds this dialect
// does not recognize.
func Execute(ctx context.Context, cat *catalog.Catalog, stmt ast.Statement, rawSQL string) (QueryEvent, *pgerr.WireError) {
	switch s := stmt.(type) {
	case *ast.CreateSchema:
		if err := cat.CreateSchema(ctx, s.Name); err != nil {
			return nil, translateCatalogError(err)
		}
		return &SchemaCreated{Name: s.Name}, nil

	case *ast.DropSchema:
		if err := cat.DropSchema(ctx, s.Name); err != nil {
			return nil, translateCatalogError(err)
		}
		return &SchemaDropped{Name: s.Name}, nil

	case *ast.CreateTable:
		cols := make([]catalog.ColumnDefinition, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = catalog.ColumnDefinition{Name: c.Name, Type: c.Type}
		}
		if err := cat.CreateTable(ctx, s.Schema, s.Table, cols); err != nil {
			return nil, translateCatalogError(err)
		}
		return &TableCreated{Schema: s.Schema, Table: s.Table}, nil

	case *ast.DropTable:
		if err := cat.DropTable(ctx, s.Schema, s.Table); err != nil {
			return nil, translateCatalogError(err)
		}
		return &TableDropped{Schema: s.Schema, Table: s.Table}, nil

	case *ast.Insert:
		return execInsert(ctx, cat, s)

	case *ast.Select:
		return execSelect(ctx, cat, s)

	default:
		return nil, pgerr.FeatureNotSupported(rawSQL)
	}
}

func execInsert(ctx context.Context, cat *catalog.Catalog, s *ast.Insert) (QueryEvent, *pgerr.WireError) {
	declared, ok, err := cat.TableColumns(ctx, s.Schema, s.Table)
	if err != nil {
		return nil, pgerr.Internal(err)
	}
	if !ok {
		return nil, pgerr.TableDoesNotExist(s.Schema + "." + s.Table)
	}

	targets := declared
	if len(s.Columns) > 0 {
		byName := make(map[string]catalog.ColumnDefinition, len(declared))
		for _, d := range declared {
			byName[d.Name] = d
		}
		var missing []string
		targets = make([]catalog.ColumnDefinition, 0, len(s.Columns))
		for _, name := range s.Columns {
			d, ok := byName[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			targets = append(targets, d)
		}
		if len(missing) > 0 {
			return nil, pgerr.ColumnDoesNotExist(missing)
		}
	}

	rows := make([][]string, len(s.Rows))
	for rowIdx, exprRow := range s.Rows {
		if len(exprRow) != len(targets) {
			return nil, pgerr.TooManyExpressions()
		}
		row := make([]string, len(exprRow))
		for i, expr := range exprRow {
			text, werr := evalCell(expr, targets[i].Type)
			if werr != nil {
				return nil, werr
			}
			row[i] = text
		}
		rows[rowIdx] = row
	}

	if err := cat.InsertInto(ctx, s.Schema, s.Table, s.Columns, rows); err != nil {
		return nil, translateCatalogError(err)
	}
	return &RecordsInserted{Count: len(s.Rows)}, nil
}

func execSelect(ctx context.Context, cat *catalog.Catalog, s *ast.Select) (QueryEvent, *pgerr.WireError) {
	declared, ok, err := cat.TableColumns(ctx, s.Schema, s.Table)
	if err != nil {
		return nil, pgerr.Internal(err)
	}
	if !ok {
		return nil, pgerr.TableDoesNotExist(s.Schema + "." + s.Table)
	}

	names := s.Projection
	if len(names) == 0 {
		names = make([]string, len(declared))
		for i, d := range declared {
			names[i] = d.Name
		}
	}

	cols, rows, err := cat.SelectAllFrom(ctx, s.Schema, s.Table, names)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return &RowsSelected{Columns: cols, Rows: rows}, nil
}

// translateCatalogError maps a catalog domain/system error onto its wire
// error per spec.md §7's taxonomy.
func translateCatalogError(err error) *pgerr.WireError {
	switch e := err.(type) {
	case *catalog.ErrSchemaDoesNotExist:
		return pgerr.SchemaDoesNotExist(e.Name)
	case *catalog.ErrSchemaAlreadyExists:
		return pgerr.SchemaAlreadyExists(e.Name)
	case *catalog.ErrTableDoesNotExist:
		return pgerr.TableDoesNotExist(e.Schema + "." + e.Table)
	case *catalog.ErrTableAlreadyExists:
		return pgerr.TableAlreadyExists(e.Schema + "." + e.Table)
	case *catalog.ErrColumnDoesNotExist:
		return pgerr.ColumnDoesNotExist(e.Names)
	case *catalog.ErrConstraintViolations:
		return translateConstraintViolations(e)
	case *catalog.ErrInsertTooManyExpressions, *catalog.ErrInsertTooFewExpressions:
		return pgerr.TooManyExpressions()
	default:
		return pgerr.Internal(err)
	}
}

// translateConstraintViolations reports the first violation in row
// order; spec.md §7 mandates a single ErrorResponse per aborted row, and
// the first cell-level violation is the one whose (kind, column, row)
// triple the message templates are built from.
func translateConstraintViolations(e *catalog.ErrConstraintViolations) *pgerr.WireError {
	v := e.Violations[0]
	switch v.Kind {
	case catalog.ViolationOutOfRange:
		return pgerr.OutOfRange(v.Column.Type.String(), v.Column.Name, e.RowIndex)
	case catalog.ViolationTypeMismatch:
		return pgerr.TypeMismatch(v.Value, v.Column.Type.String())
	case catalog.ViolationValueTooLong:
		return pgerr.ValueTooLong(v.Column.Type.BaseName(), v.Column.Type.Len)
	default:
		return pgerr.Internal(e)
	}
}
