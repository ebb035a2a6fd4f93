package pgexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minipg/minipg/ast"
	"github.com/minipg/minipg/pgerr"
	"github.com/minipg/minipg/sqltypes"
)

func TestEvalCellLiterals(t *testing.T) {
	text, werr := evalCell(&ast.NumberLiteral{Text: "42"}, sqltypes.NewInteger())
	require.Nil(t, werr)
	require.Equal(t, "42", text)

	text, werr = evalCell(&ast.StringLiteral{Value: "ada"}, sqltypes.NewVarChar(10))
	require.Nil(t, werr)
	require.Equal(t, "ada", text)

	text, werr = evalCell(&ast.BoolLiteral{Value: true}, sqltypes.NewBoolean())
	require.Nil(t, werr)
	require.Equal(t, "true", text)
}

func TestEvalCastBooleanOnly(t *testing.T) {
	text, werr := evalCast(&ast.Cast{Expr: &ast.StringLiteral{Value: "true"}, Type: sqltypes.NewBoolean()}, sqltypes.NewBoolean())
	require.Nil(t, werr)
	require.Equal(t, "true", text)

	_, werr = evalCast(&ast.Cast{Expr: &ast.NumberLiteral{Text: "1"}, Type: sqltypes.NewInteger()}, sqltypes.NewInteger())
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeFeatureNotSupported, werr.Code)
}

func TestEvalUnaryMinus(t *testing.T) {
	text, werr := evalUnaryMinus(&ast.UnaryMinus{Expr: &ast.NumberLiteral{Text: "5"}})
	require.Nil(t, werr)
	require.Equal(t, "-5", text)

	text, werr = evalUnaryMinus(&ast.UnaryMinus{Expr: &ast.NumberLiteral{Text: "0"}})
	require.Nil(t, werr)
	require.Equal(t, "0", text)

	_, werr = evalUnaryMinus(&ast.UnaryMinus{Expr: &ast.StringLiteral{Value: "x"}})
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeSyntaxError, werr.Code)
}

func TestEvalBinaryOpArithmetic(t *testing.T) {
	cases := []struct {
		op   string
		a, b string
		want string
	}{
		{"+", "2", "3", "5"},
		{"-", "10", "4", "6"},
		{"*", "6", "7", "42"},
		{"/", "9", "2", "4"},
		{"%", "9", "2", "1"},
	}
	for _, c := range cases {
		result, werr := evalBinaryOp(&ast.BinaryOp{
			Op:    c.op,
			Left:  &ast.NumberLiteral{Text: c.a},
			Right: &ast.NumberLiteral{Text: c.b},
		})
		require.Nil(t, werr)
		require.Equal(t, c.want, result)
	}
}

func TestEvalBinaryOpDivisionByZero(t *testing.T) {
	_, werr := evalBinaryOp(&ast.BinaryOp{Op: "/", Left: &ast.NumberLiteral{Text: "1"}, Right: &ast.NumberLiteral{Text: "0"}})
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeDivisionByZero, werr.Code)

	_, werr = evalBinaryOp(&ast.BinaryOp{Op: "%", Left: &ast.NumberLiteral{Text: "1"}, Right: &ast.NumberLiteral{Text: "0"}})
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeDivisionByZero, werr.Code)
}

func TestEvalBinaryOpOverflow(t *testing.T) {
	_, werr := evalBinaryOp(&ast.BinaryOp{
		Op:    "+",
		Left:  &ast.NumberLiteral{Text: "9223372036854775807"},
		Right: &ast.NumberLiteral{Text: "1"},
	})
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeOutOfRange, werr.Code)
}

func TestEvalBinaryOpNestedExpressions(t *testing.T) {
	// (1 + 2) * -3
	inner := &ast.BinaryOp{Op: "+", Left: &ast.NumberLiteral{Text: "1"}, Right: &ast.NumberLiteral{Text: "2"}}
	neg := &ast.UnaryMinus{Expr: &ast.NumberLiteral{Text: "3"}}
	result, werr := evalBinaryOp(&ast.BinaryOp{Op: "*", Left: inner, Right: neg})
	require.Nil(t, werr)
	require.Equal(t, "-9", result)
}

func TestEvalCellRejectsColumnRef(t *testing.T) {
	_, werr := evalCell(&ast.ColumnRef{Name: "c1"}, sqltypes.NewInteger())
	require.NotNil(t, werr)
	require.Equal(t, pgerr.CodeSyntaxError, werr.Code)
}
