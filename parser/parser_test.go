package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/ast"
)

func TestParseCreateSchema(t *testing.T) {
	stmts, err := Parse(context.Background(), "CREATE SCHEMA s")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Equal(t, &ast.CreateSchema{Name: "s"}, stmts[0])
}

func TestParseCreateTable(t *testing.T) {
	stmts, err := Parse(context.Background(), "CREATE TABLE s.t (id INTEGER, name VARCHAR(10))")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ct, ok := stmts[0].(*ast.CreateTable)
	require.True(t, ok)
	require.Equal(t, "s", ct.Schema)
	require.Equal(t, "t", ct.Table)
	require.Len(t, ct.Columns, 2)
	require.Equal(t, "id", ct.Columns[0].Name)
	require.Equal(t, "name", ct.Columns[1].Name)
}

func TestParseDropSchemaAndTable(t *testing.T) {
	stmts, err := Parse(context.Background(), "DROP SCHEMA s; DROP TABLE s.t")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	require.Equal(t, &ast.DropSchema{Name: "s"}, stmts[0])
	require.Equal(t, &ast.DropTable{Schema: "s", Table: "t"}, stmts[1])
}

func TestParseInsertWithoutColumns(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES (1, 'ada')")
	require.NoError(t, err)
	ins, ok := stmts[0].(*ast.Insert)
	require.True(t, ok)
	require.Nil(t, ins.Columns)
	require.Len(t, ins.Rows, 1)
	require.Len(t, ins.Rows[0], 2)
}

func TestParseInsertWithExplicitColumns(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t (name, id) VALUES ('ada', 1)")
	require.NoError(t, err)
	ins, ok := stmts[0].(*ast.Insert)
	require.True(t, ok)
	require.Equal(t, []string{"name", "id"}, ins.Columns)
}

func TestParseSelectStar(t *testing.T) {
	stmts, err := Parse(context.Background(), "SELECT * FROM s.t")
	require.NoError(t, err)
	sel, ok := stmts[0].(*ast.Select)
	require.True(t, ok)
	require.Nil(t, sel.Projection)
}

func TestParseSelectExplicitReorderedDuplicateColumns(t *testing.T) {
	stmts, err := Parse(context.Background(), "SELECT c3, c1, c1 FROM s.t")
	require.NoError(t, err)
	sel, ok := stmts[0].(*ast.Select)
	require.True(t, ok)
	require.Equal(t, []string{"c3", "c1", "c1"}, sel.Projection)
}

func TestParseExpressionPrecedence(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES (1 + 2 * 3)")
	require.NoError(t, err)
	ins := stmts[0].(*ast.Insert)
	top, ok := ins.Rows[0][0].(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "+", top.Op)
	right, ok := top.Right.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "*", right.Op)
}

func TestParseDoubleUnaryMinus(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES (--1)")
	require.NoError(t, err)
	ins := stmts[0].(*ast.Insert)
	outer, ok := ins.Rows[0][0].(*ast.UnaryMinus)
	require.True(t, ok)
	_, ok = outer.Expr.(*ast.UnaryMinus)
	require.True(t, ok)
}

func TestParseSingleUnaryMinus(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES (-1)")
	require.NoError(t, err)
	ins := stmts[0].(*ast.Insert)
	_, ok := ins.Rows[0][0].(*ast.UnaryMinus)
	require.True(t, ok)
}

func TestParseCast(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES (CAST(1 AS BOOLEAN))")
	require.NoError(t, err)
	ins := stmts[0].(*ast.Insert)
	cast, ok := ins.Rows[0][0].(*ast.Cast)
	require.True(t, ok)
	require.Equal(t, "boolean", cast.Type.BaseName())
}

func TestParseBareSingleIdentifierTargetRejected(t *testing.T) {
	_, err := Parse(context.Background(), "SELECT * FROM t")
	require.Error(t, err)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
}

func TestParseTrailingTokenRejected(t *testing.T) {
	_, err := Parse(context.Background(), "CREATE SCHEMA s extra")
	require.Error(t, err)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
}

func TestParseSemicolonInsideStringLiteralDoesNotSplit(t *testing.T) {
	stmts, err := Parse(context.Background(), "INSERT INTO s.t VALUES ('a;b')")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ins := stmts[0].(*ast.Insert)
	lit, ok := ins.Rows[0][0].(*ast.StringLiteral)
	require.True(t, ok)
	require.Equal(t, "a;b", lit.Value)
}

func TestParseMultipleStatementsSplitOnSemicolon(t *testing.T) {
	stmts, err := Parse(context.Background(), "CREATE SCHEMA s; CREATE TABLE s.t (id INTEGER);")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
}

func TestParseEmptyInputYieldsNoStatements(t *testing.T) {
	stmts, err := Parse(context.Background(), "  ;  ; ")
	require.NoError(t, err)
	require.Empty(t, stmts)
}
