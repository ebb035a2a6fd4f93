// Package parser is the default, built-in implementation of the
// parsed-SQL interface spec.md §6 treats as an external collaborator. It
// covers exactly the statement and expression grammar spec.md §4.4/§4.5
// requires and nothing more; anything outside that grammar produces a
// *SyntaxError so the caller can map it straight onto the wire (see
// toSyntaxError in the root package's command.go, which turns it into a
// pgerr syntax error).
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/minipg/minipg/ast"
	"github.com/minipg/minipg/sqltypes"
)

// SyntaxError reports the offending token alongside the underlying
// complaint. Only Token reaches the wire: toSyntaxError passes it to
// pgerr.SyntaxError, falling back to Error() when Token is empty.
type SyntaxError struct {
	Token   string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return e.Message
	}
	return fmt.Sprintf("%s at or near %q", e.Message, e.Token)
}

type parser struct {
	lex  *lexer
	cur  token
	curErr error
}

// Parse splits sql on top-level semicolons and parses each statement in
// turn. A trailing semicolon is optional; anything left over after the
// last recognized statement is a SyntaxError. ctx is unused by this
// grammar but is part
// of the ParseFn signature so a future parser can honor cancellation.
func Parse(ctx context.Context, sql string) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for _, piece := range splitStatements(sql) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		p := &parser{lex: newLexer(piece)}
		p.advance()
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokEOF {
			return nil, &SyntaxError{Token: p.cur.raw, Message: "unexpected trailing input"}
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// splitStatements breaks sql on ';' that are not inside a quoted string.
func splitStatements(sql string) []string {
	var out []string
	var cur strings.Builder
	inString := false
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			inString = !inString
			cur.WriteRune(r)
		case r == ';' && !inString:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}

func (p *parser) advance() {
	p.cur, p.curErr = p.lex.next()
}

func (p *parser) fail(msg string) error {
	if p.curErr != nil {
		return &SyntaxError{Message: p.curErr.Error()}
	}
	return &SyntaxError{Token: p.cur.raw, Message: msg}
}

func (p *parser) expectKeyword(kw string) error {
	if p.cur.kind != tokKeyword || p.cur.text != kw {
		return p.fail(fmt.Sprintf("expected %s", kw))
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if p.cur.kind != tokPunct || p.cur.text != s {
		return p.fail(fmt.Sprintf("expected %q", s))
	}
	p.advance()
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *parser) isPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *parser) parseIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", p.fail("expected identifier")
	}
	name := p.cur.text
	p.advance()
	return name, nil
}

// parseQualifiedName parses "schema.table", rejecting the bare
// single-identifier form per SPEC_FULL.md §11 (open question 2).
func (p *parser) parseQualifiedName() (schema, table string, err error) {
	schema, err = p.parseIdent()
	if err != nil {
		return "", "", err
	}
	if !p.isPunct(".") {
		return "", "", p.fail("expected schema-qualified name (schema.table)")
	}
	p.advance()
	table, err = p.parseIdent()
	if err != nil {
		return "", "", err
	}
	return schema, table, nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		p.advance()
		switch {
		case p.isKeyword("SCHEMA"):
			p.advance()
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			return &ast.CreateSchema{Name: name}, nil
		case p.isKeyword("TABLE"):
			p.advance()
			return p.parseCreateTable()
		default:
			return nil, p.fail("expected SCHEMA or TABLE")
		}

	case p.isKeyword("DROP"):
		p.advance()
		switch {
		case p.isKeyword("SCHEMA"):
			p.advance()
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			return &ast.DropSchema{Name: name}, nil
		case p.isKeyword("TABLE"):
			p.advance()
			schema, table, err := p.parseQualifiedName()
			if err != nil {
				return nil, err
			}
			return &ast.DropTable{Schema: schema, Table: table}, nil
		default:
			return nil, p.fail("expected SCHEMA or TABLE")
		}

	case p.isKeyword("INSERT"):
		p.advance()
		return p.parseInsert()

	case p.isKeyword("SELECT"):
		p.advance()
		return p.parseSelect()

	default:
		return nil, p.fail("expected a statement")
	}
}

func (p *parser) parseCreateTable() (ast.Statement, error) {
	schema, table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var cols []ast.ColumnDef
	for {
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		cols = append(cols, ast.ColumnDef{Name: name, Type: typ})

		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.CreateTable{Schema: schema, Table: table, Columns: cols}, nil
}

func (p *parser) parseType() (sqltypes.SqlType, error) {
	switch {
	case p.isKeyword("SMALLINT"):
		p.advance()
		return sqltypes.NewSmallInt(), nil
	case p.isKeyword("INTEGER"), p.isKeyword("INT"):
		p.advance()
		return sqltypes.NewInteger(), nil
	case p.isKeyword("BIGINT"):
		p.advance()
		return sqltypes.NewBigInt(), nil
	case p.isKeyword("BOOLEAN"), p.isKeyword("BOOL"):
		p.advance()
		return sqltypes.NewBoolean(), nil
	case p.isKeyword("CHAR"), p.isKeyword("CHARACTER"):
		p.advance()
		if p.isKeyword("VARYING") {
			p.advance()
			n, err := p.parseLenParen()
			if err != nil {
				return sqltypes.SqlType{}, err
			}
			return sqltypes.NewVarChar(n), nil
		}
		n, err := p.parseLenParen()
		if err != nil {
			return sqltypes.SqlType{}, err
		}
		return sqltypes.NewChar(n), nil
	case p.isKeyword("VARCHAR"):
		p.advance()
		n, err := p.parseLenParen()
		if err != nil {
			return sqltypes.SqlType{}, err
		}
		return sqltypes.NewVarChar(n), nil
	default:
		return sqltypes.SqlType{}, p.fail("expected a column type")
	}
}

func (p *parser) parseLenParen() (int, error) {
	if err := p.expectPunct("("); err != nil {
		return 0, err
	}
	if p.cur.kind != tokNumber {
		return 0, p.fail("expected a length")
	}
	n := 0
	fmt.Sscanf(p.cur.text, "%d", &n)
	p.advance()
	if err := p.expectPunct(")"); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *parser) parseInsert() (ast.Statement, error) {
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	schema, table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}

	var columns []string
	if p.isPunct("(") {
		p.advance()
		for {
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			columns = append(columns, name)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	var rows [][]ast.Expr
	for {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var row []ast.Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)

		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}

	return &ast.Insert{Schema: schema, Table: table, Columns: columns, Rows: rows}, nil
}

func (p *parser) parseSelect() (ast.Statement, error) {
	// A bare "*" leaves Projection nil, meaning every declared column in
	// declaration order; an explicit list is carried through verbatim so
	// pgexec can honor its order and duplicates (spec.md §4.3).
	var projection []string
	if p.isPunct("*") {
		p.advance()
	} else {
		for {
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			projection = append(projection, name)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	schema, table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	return &ast.Select{Schema: schema, Table: table, Projection: projection}, nil
}

// --- expression grammar (spec.md §4.5) ---
//
// expr      := additive
// additive  := multiplicative ( ("+"|"-") multiplicative )*
// multiplicative := unary ( ("*"|"/"|"%") unary )*
// unary     := "-" unary | primary
// primary   := NUMBER | STRING | TRUE | FALSE | CAST "(" expr AS type ")"
//            | "(" expr ")" | IDENT

func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.cur.text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.cur.text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.isPunct("-") {
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryMinus{Expr: e}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.cur.kind == tokNumber:
		text := p.cur.text
		p.advance()
		return &ast.NumberLiteral{Text: text}, nil

	case p.cur.kind == tokString:
		val := p.cur.text
		p.advance()
		return &ast.StringLiteral{Value: val}, nil

	case p.isKeyword("TRUE"):
		p.advance()
		return &ast.BoolLiteral{Value: true}, nil

	case p.isKeyword("FALSE"):
		p.advance()
		return &ast.BoolLiteral{Value: false}, nil

	case p.isKeyword("CAST"):
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AS"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Cast{Expr: inner, Type: typ}, nil

	case p.isPunct("("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil

	case p.cur.kind == tokIdent:
		name := p.cur.text
		p.advance()
		return &ast.ColumnRef{Name: name}, nil

	default:
		return nil, p.fail("expected an expression")
	}
}
