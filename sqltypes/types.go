// Package sqltypes implements the SqlType tagged variant from spec.md §3:
// canonical names, PostgreSQL OIDs for wire replies, and per-type
// validation predicates over candidate string values.
package sqltypes

import (
	"fmt"
	"strconv"

	"github.com/lib/pq/oid"
)

// Kind distinguishes the SqlType variants.
type Kind int

const (
	SmallInt Kind = iota
	Integer
	BigInt
	Char
	VarChar
	Boolean
)

// SqlType is a tagged variant: Char/VarChar carry a length in Len, the
// others ignore it.
type SqlType struct {
	Kind Kind
	Len  int // only meaningful for Char and VarChar
}

func NewSmallInt() SqlType        { return SqlType{Kind: SmallInt} }
func NewInteger() SqlType         { return SqlType{Kind: Integer} }
func NewBigInt() SqlType          { return SqlType{Kind: BigInt} }
func NewBoolean() SqlType         { return SqlType{Kind: Boolean} }
func NewChar(n int) SqlType       { return SqlType{Kind: Char, Len: n} }
func NewVarChar(n int) SqlType    { return SqlType{Kind: VarChar, Len: n} }

// String returns the canonical textual representation of the type, as
// used in error messages (spec.md §7).
func (t SqlType) String() string {
	switch t.Kind {
	case SmallInt:
		return "smallint"
	case Integer:
		return "integer"
	case BigInt:
		return "bigint"
	case Char:
		return fmt.Sprintf("character(%d)", t.Len)
	case VarChar:
		return fmt.Sprintf("character varying(%d)", t.Len)
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// BaseName returns the type's name without a Char/VarChar length suffix,
// for error templates that add the length themselves (spec.md §7's
// "value too long for type <type>(<n>)").
func (t SqlType) BaseName() string {
	switch t.Kind {
	case Char:
		return "character"
	case VarChar:
		return "character varying"
	default:
		return t.String()
	}
}

// OID returns the PostgreSQL type OID used in RowDescription replies.
func (t SqlType) OID() oid.Oid {
	switch t.Kind {
	case SmallInt:
		return oid.T_int2
	case Integer:
		return oid.T_int4
	case BigInt:
		return oid.T_int8
	case Char:
		return oid.T_bpchar
	case VarChar:
		return oid.T_varchar
	case Boolean:
		return oid.T_bool
	default:
		return oid.T_text
	}
}

// Width returns the wire RowDescription "typlen" for the type: fixed
// widths for numerics/booleans, -1 ("varlena") for character types.
func (t SqlType) Width() int16 {
	switch t.Kind {
	case SmallInt:
		return 2
	case Integer:
		return 4
	case BigInt:
		return 8
	case Boolean:
		return 1
	default:
		return -1
	}
}

// Bounds returns the inclusive [min, max] range for integer kinds. It
// panics if called on a non-integer kind; callers must check Kind first.
func (t SqlType) Bounds() (min, max int64) {
	switch t.Kind {
	case SmallInt:
		return -32768, 32767
	case Integer:
		return -2147483648, 2147483647
	case BigInt:
		return -9223372036854775808, 9223372036854775807
	default:
		panic("sqltypes: Bounds called on a non-integer SqlType")
	}
}

func (t SqlType) isInteger() bool {
	return t.Kind == SmallInt || t.Kind == Integer || t.Kind == BigInt
}

// ViolationKind enumerates the ways a candidate value can fail Validate.
type ViolationKind int

const (
	ViolationNone ViolationKind = iota
	ViolationOutOfRange
	ViolationTypeMismatch
	ViolationValueTooLong
)

// Validate checks value against the type's range-in-type and
// length-in-type rules (spec.md §3 invariants, §4.3 constraint kinds).
// It returns ViolationNone when value satisfies the type.
func (t SqlType) Validate(value string) ViolationKind {
	switch t.Kind {
	case SmallInt, Integer, BigInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ViolationTypeMismatch
		}
		min, max := t.Bounds()
		if n < min || n > max {
			return ViolationOutOfRange
		}
		return ViolationNone
	case Boolean:
		switch value {
		case "true", "false":
			return ViolationNone
		default:
			return ViolationTypeMismatch
		}
	case Char, VarChar:
		if len(value) > t.Len {
			return ViolationValueTooLong
		}
		return ViolationNone
	default:
		return ViolationTypeMismatch
	}
}
