// Package ast defines the statement and expression trees produced by
// package parser and consumed by package pgexec (spec.md §4.4/§4.5). The
// tree is intentionally small: it covers exactly the DDL/DML surface
// spec.md names and nothing else.
package ast

import "github.com/minipg/minipg/sqltypes"

// Statement is implemented by every top-level SQL statement the executor
// can run.
type Statement interface {
	statementNode()
}

// CreateSchema is "CREATE SCHEMA <name>".
type CreateSchema struct {
	Name string
}

// DropSchema is "DROP SCHEMA <name>".
type DropSchema struct {
	Name string
}

// ColumnDef is one entry in a CREATE TABLE column list.
type ColumnDef struct {
	Name string
	Type sqltypes.SqlType
}

// CreateTable is "CREATE TABLE <schema>.<table> (<columns>)".
type CreateTable struct {
	Schema  string
	Table   string
	Columns []ColumnDef
}

// DropTable is "DROP TABLE <schema>.<table>".
type DropTable struct {
	Schema string
	Table  string
}

// Insert is "INSERT INTO <schema>.<table> [(<columns>)] VALUES (<row>), ...".
// Columns is nil when the statement omitted an explicit column list, in
// which case the executor targets the table's declared columns in order.
type Insert struct {
	Schema  string
	Table   string
	Columns []string
	Rows    [][]Expr
}

// Select is "SELECT <projection> FROM <schema>.<table>". spec.md scopes
// SELECT to a column projection over a single table with no predicate,
// ordering, or join clause. Projection is nil for "SELECT *", meaning
// every declared column in declaration order; otherwise it is the
// explicit column list exactly as named, order and duplicates preserved.
type Select struct {
	Schema     string
	Table      string
	Projection []string
}

func (*CreateSchema) statementNode() {}
func (*DropSchema) statementNode()   {}
func (*CreateTable) statementNode()  {}
func (*DropTable) statementNode()    {}
func (*Insert) statementNode()       {}
func (*Select) statementNode()       {}

// Expr is implemented by every literal expression node the evaluator in
// package pgexec can reduce to a value (spec.md §4.5).
type Expr interface {
	exprNode()
}

// NumberLiteral is an unevaluated numeric token; pgexec passes its text
// through unchanged, and the catalog validates it against the target
// column type at insert time.
type NumberLiteral struct {
	Text string
}

// StringLiteral is a quoted string token with quote-escaping already
// resolved by the parser.
type StringLiteral struct {
	Value string
}

// BoolLiteral is the TRUE/FALSE keyword.
type BoolLiteral struct {
	Value bool
}

// Cast is "CAST(<expr> AS <type>)".
type Cast struct {
	Expr Expr
	Type sqltypes.SqlType
}

// UnaryMinus is "-<expr>" applied to a numeric expression.
type UnaryMinus struct {
	Expr Expr
}

// BinaryOp is one of the arithmetic operators spec.md §4.5 names.
type BinaryOp struct {
	Op    string // "+", "-", "*", "/", "%"
	Left  Expr
	Right Expr
}

// ColumnRef is a bare identifier appearing where spec.md's grammar only
// expects a literal; the evaluator always rejects it (columns are not
// readable from expression position in this dialect) but the parser
// still needs to produce a node for it to report a precise syntax error.
type ColumnRef struct {
	Name string
}

func (*NumberLiteral) exprNode() {}
func (*StringLiteral) exprNode() {}
func (*BoolLiteral) exprNode()   {}
func (*Cast) exprNode()          {}
func (*UnaryMinus) exprNode()    {}
func (*BinaryOp) exprNode()      {}
func (*ColumnRef) exprNode()     {}
