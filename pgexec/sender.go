package pgexec

import "github.com/minipg/minipg/catalog"

// QueryEvent is the success-path result the executor hands to a Sender
// (spec.md §4.4/§6's "Session interface"). Exactly one concrete variant
// is produced per executed statement.
type QueryEvent interface {
	queryEventNode()
}

// SchemaCreated reports a successful CREATE SCHEMA.
type SchemaCreated struct{ Name string }

// SchemaDropped reports a successful DROP SCHEMA.
type SchemaDropped struct{ Name string }

// TableCreated reports a successful CREATE TABLE.
type TableCreated struct{ Schema, Table string }

// TableDropped reports a successful DROP TABLE.
type TableDropped struct{ Schema, Table string }

// RecordsInserted reports a successful INSERT; Count is the number of
// source VALUES rows (spec.md §4.4 step 4), not an error-recovery count.
type RecordsInserted struct{ Count int }

// RowsSelected reports a successful SELECT: Columns describes the
// projection in RowDescription order, Rows holds the projected textual
// cells in the same order.
type RowsSelected struct {
	Columns []catalog.ColumnDefinition
	Rows    [][]string
}

func (*SchemaCreated) queryEventNode()   {}
func (*SchemaDropped) queryEventNode()   {}
func (*TableCreated) queryEventNode()    {}
func (*TableDropped) queryEventNode()    {}
func (*RecordsInserted) queryEventNode() {}
func (*RowsSelected) queryEventNode()    {}

// Sender is the session-facing outbound interface (spec.md §6): sending
// is infallible from the executor's point of view except for the I/O
// error a broken connection produces, which the wire layer, not the
// executor, is responsible for noticing at teardown.
type Sender interface {
	Send(event QueryEvent) error
	SendError(err error) error
}
