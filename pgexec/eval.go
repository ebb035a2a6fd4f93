package pgexec

import (
	"github.com/shopspring/decimal"

	"github.com/minipg/minipg/ast"
	"github.com/minipg/minipg/pgerr"
	"github.com/minipg/minipg/sqltypes"
)

// evalCell reduces one VALUES-row expression to the textual form catalog
// stores (spec.md §4.5). target is the declared type of the destination
// column; it is handed to evalCast, but no branch's result depends on it:
// a bare NumberLiteral's text is returned unchanged, and CAST legality is
// decided by the cast's own type. Checking the value against the column
// type happens later, in catalog.InsertInto.
func evalCell(e ast.Expr, target sqltypes.SqlType) (string, *pgerr.WireError) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return n.Text, nil

	case *ast.StringLiteral:
		return n.Value, nil

	case *ast.BoolLiteral:
		if n.Value {
			return "true", nil
		}
		return "false", nil

	case *ast.Cast:
		return evalCast(n, target)

	case *ast.UnaryMinus:
		return evalUnaryMinus(n)

	case *ast.BinaryOp:
		return evalBinaryOp(n)

	case *ast.ColumnRef:
		return "", pgerr.SyntaxError(n.Name)

	default:
		return "", pgerr.SyntaxError("<expr>")
	}
}

// evalCast implements spec.md §4.5's restricted CAST support: only
// bool←bool and bool←string are legal; any other combination is a
// feature this dialect does not support.
func evalCast(c *ast.Cast, target sqltypes.SqlType) (string, *pgerr.WireError) {
	if c.Type.Kind != sqltypes.Boolean {
		return "", pgerr.FeatureNotSupported("CAST to non-boolean type")
	}

	switch inner := c.Expr.(type) {
	case *ast.BoolLiteral:
		if inner.Value {
			return "true", nil
		}
		return "false", nil

	case *ast.StringLiteral:
		// Validation happens at insert time per spec.md §4.5; the cast
		// itself just forwards the text form.
		return inner.Value, nil

	default:
		return "", pgerr.FeatureNotSupported("CAST from this expression shape to boolean")
	}
}

// evalUnaryMinus implements "- <numeric literal>" by prepending "-" to
// the literal text, per spec.md §4.5 (unary minus only applies to a
// numeric literal, not to an arbitrary sub-expression).
func evalUnaryMinus(u *ast.UnaryMinus) (string, *pgerr.WireError) {
	lit, ok := u.Expr.(*ast.NumberLiteral)
	if !ok {
		return "", pgerr.SyntaxError("-")
	}
	if lit.Text == "0" {
		return "0", nil
	}
	return "-" + lit.Text, nil
}

// evalBinaryOp implements the integer arithmetic evaluator from spec.md
// §4.5: two numeric literals, operator in {+,-,*,/,%}, overflow detected
// by comparing against int64's own range (the widest declared SqlType),
// division/modulo by zero reported before the division is attempted.
//
// decimal.Decimal carries the intermediate result so overflow is
// detected by explicit comparison rather than by silent int64 wraparound
// (mirrors the teacher's fail-closed error style).
func evalBinaryOp(b *ast.BinaryOp) (string, *pgerr.WireError) {
	leftText, rightText, err := binaryOperands(b)
	if err != nil {
		return "", err
	}

	left, lerr := decimal.NewFromString(leftText)
	if lerr != nil {
		return "", pgerr.TypeMismatch(leftText, "integer")
	}
	right, rerr := decimal.NewFromString(rightText)
	if rerr != nil {
		return "", pgerr.TypeMismatch(rightText, "integer")
	}

	if (b.Op == "/" || b.Op == "%") && right.IsZero() {
		return "", pgerr.DivisionByZero()
	}

	var result decimal.Decimal
	switch b.Op {
	case "+":
		result = left.Add(right)
	case "-":
		result = left.Sub(right)
	case "*":
		result = left.Mul(right)
	case "/":
		result = left.Div(right).Truncate(0)
	case "%":
		result = left.Mod(right)
	default:
		return "", pgerr.SyntaxError(b.Op)
	}

	min := decimal.NewFromInt(sqltypesBigIntMin)
	max := decimal.NewFromInt(sqltypesBigIntMax)
	if result.LessThan(min) || result.GreaterThan(max) {
		return "", pgerr.OutOfRange("bigint", "", 0)
	}

	return result.String(), nil
}

const (
	sqltypesBigIntMin = -9223372036854775808
	sqltypesBigIntMax = 9223372036854775807
)

// binaryOperands resolves both sides of a BinaryOp down to their numeric
// literal text, recursing through nested unary/binary expressions so
// that e.g. "1 + -2" and "(1+2)*3" evaluate correctly.
func binaryOperands(b *ast.BinaryOp) (string, string, *pgerr.WireError) {
	left, err := evalNumeric(b.Left)
	if err != nil {
		return "", "", err
	}
	right, err := evalNumeric(b.Right)
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

// evalNumeric reduces an expression to numeric text without committing
// to a target SqlType; it is used only inside binary/unary evaluation
// where the surrounding arithmetic, not a column, determines legality.
func evalNumeric(e ast.Expr) (string, *pgerr.WireError) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return n.Text, nil
	case *ast.UnaryMinus:
		return evalUnaryMinus(n)
	case *ast.BinaryOp:
		return evalBinaryOp(n)
	default:
		return "", pgerr.SyntaxError("<expr>")
	}
}
