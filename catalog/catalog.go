// Package catalog is the "frontend storage" component from spec.md §4.3:
// schema/table/row persistence layered over a kvstore.Backend, guarded by
// a single coarse lock per spec.md §5 (refined here to a sync.RWMutex
// since SELECT is read-only, a refinement spec.md §5 explicitly permits).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/minipg/minipg/kvstore"
	"github.com/minipg/minipg/sqltypes"
)

// ColumnDefinition is a named, typed column as declared by CREATE TABLE.
type ColumnDefinition struct {
	Name string
	Type sqltypes.SqlType
}

const (
	namespaceSchemas = "schemas"
	namespaceTables  = "tables"
)

// Catalog is the frontend storage handle. The zero value is not usable;
// construct with New.
type Catalog struct {
	mu      sync.RWMutex
	backend kvstore.Backend
}

// New wraps backend as a Catalog, provisioning its two metadata
// namespaces if they do not already exist.
func New(ctx context.Context, backend kvstore.Backend) (*Catalog, error) {
	c := &Catalog{backend: backend}
	for _, ns := range []string{namespaceSchemas, namespaceTables} {
		if err := backend.CreateNamespace(ctx, ns); err != nil {
			// Namespace may already exist from a prior run against a
			// persistent backend; Backend.CreateNamespace's contract only
			// guarantees an error on duplicate creation, which is fine here.
			if _, _, getErr := backend.Get(ctx, ns, "__probe__"); getErr != nil {
				return nil, fmt.Errorf("catalog: provisioning namespace %q: %w", ns, err)
			}
		}
	}
	return c, nil
}

func rowNamespace(schema, table string) string {
	return "rows:" + schema + "." + table
}

func tableKey(schema, table string) string {
	return schema + "." + table
}

// CreateSchema implements spec.md §4.3's create_schema.
func (c *Catalog) CreateSchema(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.backend.Get(ctx, namespaceSchemas, name); err != nil {
		return err
	} else if ok {
		return &ErrSchemaAlreadyExists{Name: name}
	}
	return c.backend.Put(ctx, namespaceSchemas, name, []byte{1})
}

// DropSchema implements spec.md §4.3's drop_schema. It does not cascade
// to the schema's tables; spec.md §3/§4.3 is silent on cascading and this
// module does not need it for the scenarios in §8.
func (c *Catalog) DropSchema(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.backend.Get(ctx, namespaceSchemas, name); err != nil {
		return err
	} else if !ok {
		return &ErrSchemaDoesNotExist{Name: name}
	}
	return c.backend.Delete(ctx, namespaceSchemas, name)
}

// CreateTable implements spec.md §4.3's create_table.
func (c *Catalog) CreateTable(ctx context.Context, schema, table string, cols []ColumnDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.backend.Get(ctx, namespaceSchemas, schema); err != nil {
		return err
	} else if !ok {
		return &ErrSchemaDoesNotExist{Name: schema}
	}

	key := tableKey(schema, table)
	if _, ok, err := c.backend.Get(ctx, namespaceTables, key); err != nil {
		return err
	} else if ok {
		return &ErrTableAlreadyExists{Schema: schema, Table: table}
	}

	encoded, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("catalog: encoding columns for %s: %w", key, err)
	}
	if err := c.backend.Put(ctx, namespaceTables, key, encoded); err != nil {
		return err
	}
	return c.backend.CreateNamespace(ctx, rowNamespace(schema, table))
}

// DropTable implements spec.md §4.3's drop_table.
func (c *Catalog) DropTable(ctx context.Context, schema, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tableKey(schema, table)
	if _, ok, err := c.backend.Get(ctx, namespaceTables, key); err != nil {
		return err
	} else if !ok {
		return &ErrTableDoesNotExist{Schema: schema, Table: table}
	}

	if err := c.backend.Delete(ctx, namespaceTables, key); err != nil {
		return err
	}
	return c.backend.DropNamespace(ctx, rowNamespace(schema, table))
}

// TableColumns implements spec.md §4.3's table_columns. It returns
// (nil, false, nil) if the table does not exist, letting callers decide
// whether that is an error in their context.
func (c *Catalog) TableColumns(ctx context.Context, schema, table string) ([]ColumnDefinition, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableColumnsLocked(ctx, schema, table)
}

func (c *Catalog) tableColumnsLocked(ctx context.Context, schema, table string) ([]ColumnDefinition, bool, error) {
	raw, ok, err := c.backend.Get(ctx, namespaceTables, tableKey(schema, table))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var cols []ColumnDefinition
	if err := json.Unmarshal(raw, &cols); err != nil {
		return nil, false, fmt.Errorf("catalog: decoding columns for %s.%s: %w", schema, table, err)
	}
	return cols, true, nil
}

// InsertInto implements spec.md §4.3's insert_into. cols is the explicit
// column projection from the statement; an empty slice means "all
// declared columns in order". rows are the already-evaluated textual
// values for each cell (pgexec's job, not catalog's).
func (c *Catalog) InsertInto(ctx context.Context, schema, table string, cols []string, rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.backend.Get(ctx, namespaceSchemas, schema); err != nil {
		return err
	} else if !ok {
		return &ErrSchemaDoesNotExist{Name: schema}
	}

	declared, ok, err := c.tableColumnsLocked(ctx, schema, table)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrTableDoesNotExist{Schema: schema, Table: table}
	}

	targets := declared
	if len(cols) > 0 {
		byName := make(map[string]ColumnDefinition, len(declared))
		for _, d := range declared {
			byName[d.Name] = d
		}
		var missing []string
		targets = make([]ColumnDefinition, 0, len(cols))
		for _, name := range cols {
			d, ok := byName[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			targets = append(targets, d)
		}
		if len(missing) > 0 {
			return &ErrColumnDoesNotExist{Names: missing}
		}
	}

	ns := rowNamespace(schema, table)
	existing, err := c.backend.Scan(ctx, ns)
	if err != nil {
		return err
	}
	nextSeq := len(existing)

	for rowIdx, row := range rows {
		if len(row) > len(targets) {
			return &ErrInsertTooManyExpressions{RowIndex: rowIdx}
		}
		if len(row) < len(targets) {
			return &ErrInsertTooFewExpressions{RowIndex: rowIdx}
		}

		var violations []ConstraintViolation
		for i, value := range row {
			col := targets[i]
			switch col.Type.Validate(value) {
			case sqltypes.ViolationOutOfRange:
				violations = append(violations, ConstraintViolation{Kind: ViolationOutOfRange, Column: col, Value: value})
			case sqltypes.ViolationTypeMismatch:
				violations = append(violations, ConstraintViolation{Kind: ViolationTypeMismatch, Column: col, Value: value})
			case sqltypes.ViolationValueTooLong:
				violations = append(violations, ConstraintViolation{Kind: ViolationValueTooLong, Column: col, Value: value})
			}
		}
		if len(violations) > 0 {
			return &ErrConstraintViolations{RowIndex: rowIdx, Violations: violations}
		}

		full := make([]string, len(declared))
		if len(cols) == 0 {
			copy(full, row)
		} else {
			byName := make(map[string]string, len(targets))
			for i, col := range targets {
				byName[col.Name] = row[i]
			}
			for i, d := range declared {
				full[i] = byName[d.Name]
			}
		}

		encoded, err := json.Marshal(full)
		if err != nil {
			return fmt.Errorf("catalog: encoding row: %w", err)
		}
		if err := c.backend.Put(ctx, ns, seqKey(nextSeq), encoded); err != nil {
			return err
		}
		nextSeq++
	}
	return nil
}

// SelectAllFrom implements spec.md §4.3's select_all_from: cols is the
// (order- and duplicate-preserving) projection list.
func (c *Catalog) SelectAllFrom(ctx context.Context, schema, table string, cols []string) ([]ColumnDefinition, [][]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok, err := c.backend.Get(ctx, namespaceSchemas, schema); err != nil {
		return nil, nil, err
	} else if !ok {
		return nil, nil, &ErrSchemaDoesNotExist{Name: schema}
	}

	declared, ok, err := c.tableColumnsLocked(ctx, schema, table)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, &ErrTableDoesNotExist{Schema: schema, Table: table}
	}

	byName := make(map[string]int, len(declared))
	for i, d := range declared {
		byName[d.Name] = i
	}

	var outCols []ColumnDefinition
	var indexes []int
	var missing []string
	for _, name := range cols {
		idx, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		outCols = append(outCols, declared[idx])
		indexes = append(indexes, idx)
	}
	if len(missing) > 0 {
		return nil, nil, &ErrColumnDoesNotExist{Names: missing}
	}

	entries, err := c.backend.Scan(ctx, rowNamespace(schema, table))
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		var full []string
		if err := json.Unmarshal(e.Value, &full); err != nil {
			return nil, nil, fmt.Errorf("catalog: decoding row in %s.%s: %w", schema, table, err)
		}
		projected := make([]string, len(indexes))
		for i, idx := range indexes {
			projected[i] = full[idx]
		}
		rows = append(rows, projected)
	}
	return outCols, rows, nil
}

// seqKey renders n as a fixed-width, zero-padded decimal string so that
// lexical (key) order and numeric (insertion) order coincide — this is
// the advisory mapping spec.md §4.3 describes for row storage.
func seqKey(n int) string {
	return fmt.Sprintf("%020d", n)
}
