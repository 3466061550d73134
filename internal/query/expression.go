// Package query builds immutable boolean filter expressions over article fields.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/articles/internal/models"
)

// Kind identifies an Expression node. The set is closed; consumers switch over
// every Kind and treat anything else as an error.
type Kind int

const (
	KindMatchAll Kind = iota
	KindTerm
	KindMatch
	KindPhrase
	KindPrefix
	KindRange
	KindExists
	KindAnd
	KindOr
	KindNot
)

var kindNames = map[Kind]string{
	KindMatchAll: "match_all",
	KindTerm:     "term",
	KindMatch:    "match",
	KindPhrase:   "phrase",
	KindPrefix:   "prefix",
	KindRange:    "range",
	KindExists:   "exists",
	KindAnd:      "and",
	KindOr:       "or",
	KindNot:      "not",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsLeaf reports whether k binds a single field.
func (k Kind) IsLeaf() bool {
	return k >= KindTerm && k <= KindExists
}

// Range is an inclusive interval over a date or numeric field. A nil bound is open.
type Range struct {
	from, to *time.Time
	min, max *float64
}

// From returns the inclusive lower date bound.
func (r Range) From() *time.Time { return r.from }

// To returns the inclusive upper date bound.
func (r Range) To() *time.Time { return r.to }

// Min returns the inclusive lower numeric bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the inclusive upper numeric bound.
func (r Range) Max() *float64 { return r.max }

// IsDate reports whether r bounds instants rather than numbers.
func (r Range) IsDate() bool { return r.from != nil || r.to != nil }

// Expression is an immutable filter tree. The zero value matches everything.
type Expression struct {
	kind     Kind
	field    models.Field
	value    string
	rng      Range
	children []Expression
}

// MatchAll returns the expression that matches every document.
func MatchAll() Expression { return Expression{kind: KindMatchAll} }

// Term matches documents whose stored field equals value exactly (case-sensitive, untokenized).
func Term(field models.Field, value string) Expression {
	return Expression{kind: KindTerm, field: field, value: value}
}

// Match matches documents sharing at least one token with text.
func Match(field models.Field, text string) Expression {
	return Expression{kind: KindMatch, field: field, value: text}
}

// Phrase matches documents containing the tokens of text contiguously and in order.
func Phrase(field models.Field, text string) Expression {
	return Expression{kind: KindPhrase, field: field, value: text}
}

// Prefix matches documents whose stored field value begins with the literal prefix.
func Prefix(field models.Field, prefix string) Expression {
	return Expression{kind: KindPrefix, field: field, value: prefix}
}

// Exists matches documents where field carries a value.
func Exists(field models.Field) Expression {
	return Expression{kind: KindExists, field: field}
}

// DateRange matches instants in [from, to]. Either bound may be nil; bounds are normalized to UTC.
func DateRange(field models.Field, from, to *time.Time) Expression {
	var r Range
	if from != nil {
		f := from.UTC()
		r.from = &f
	}
	if to != nil {
		t := to.UTC()
		r.to = &t
	}
	return Expression{kind: KindRange, field: field, rng: r}
}

// ExactDate is the closed single-instant range [at, at] in UTC.
func ExactDate(field models.Field, at time.Time) Expression {
	return DateRange(field, &at, &at)
}

// NumericRange matches numbers in [min, max]. Either bound may be nil.
func NumericRange(field models.Field, min, max *float64) Expression {
	var r Range
	if min != nil {
		v := *min
		r.min = &v
	}
	if max != nil {
		v := *max
		r.max = &v
	}
	return Expression{kind: KindRange, field: field, rng: r}
}

// And is the conjunction of exprs. Match-all operands are dropped, nested
// conjunctions are flattened, no operands yields MatchAll and one operand
// yields that operand.
func And(exprs ...Expression) Expression {
	return combine(KindAnd, exprs)
}

// Or is the disjunction of exprs. A match-all operand makes the whole
// disjunction match-all; no operands yields MatchAll.
func Or(exprs ...Expression) Expression {
	for _, e := range exprs {
		if e.kind == KindMatchAll {
			return MatchAll()
		}
	}
	return combine(KindOr, exprs)
}

// Not negates e.
func Not(e Expression) Expression {
	if e.kind == KindNot {
		return e.children[0]
	}
	return Expression{kind: KindNot, children: []Expression{e}}
}

func combine(kind Kind, exprs []Expression) Expression {
	children := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		switch {
		case e.kind == KindMatchAll:
			continue
		case e.kind == kind:
			children = append(children, e.children...)
		default:
			children = append(children, e)
		}
	}
	switch len(children) {
	case 0:
		return MatchAll()
	case 1:
		return children[0]
	}
	return Expression{kind: kind, children: children}
}

// Kind returns the node kind.
func (e Expression) Kind() Kind { return e.kind }

// Field returns the field a leaf is bound to.
func (e Expression) Field() models.Field { return e.field }

// Value returns the comparison value of term, match, phrase and prefix leaves.
func (e Expression) Value() string { return e.value }

// Range returns the bounds of a range leaf.
func (e Expression) Range() Range { return e.rng }

// Children returns a copy of the operands of and, or and not nodes.
func (e Expression) Children() []Expression {
	if len(e.children) == 0 {
		return nil
	}
	out := make([]Expression, len(e.children))
	copy(out, e.children)
	return out
}

// IsMatchAll reports whether e places no restriction.
func (e Expression) IsMatchAll() bool { return e.kind == KindMatchAll }

// Validate checks leaf fields and bounds across the whole tree.
func (e Expression) Validate() error {
	switch e.kind {
	case KindMatchAll:
		return nil
	case KindTerm, KindMatch, KindPhrase, KindPrefix:
		if err := e.field.Validate(); err != nil {
			return err
		}
		if e.kind != KindTerm && e.field.Kind() != models.KindText {
			return fmt.Errorf("%s filter requires a text field, got %s", e.kind, e.field)
		}
		return nil
	case KindExists:
		return e.field.Validate()
	case KindRange:
		if err := e.field.Validate(); err != nil {
			return err
		}
		switch e.field.Kind() {
		case models.KindDate:
			if e.rng.min != nil || e.rng.max != nil {
				return fmt.Errorf("numeric bounds on date field %s", e.field)
			}
			if e.rng.from == nil && e.rng.to == nil {
				return fmt.Errorf("range on %s has no bounds", e.field)
			}
			if e.rng.from != nil && e.rng.to != nil && e.rng.from.After(*e.rng.to) {
				return fmt.Errorf("range on %s: lower bound after upper bound", e.field)
			}
		case models.KindNumeric:
			if e.rng.from != nil || e.rng.to != nil {
				return fmt.Errorf("date bounds on numeric field %s", e.field)
			}
			if e.rng.min == nil && e.rng.max == nil {
				return fmt.Errorf("range on %s has no bounds", e.field)
			}
			if e.rng.min != nil && e.rng.max != nil && *e.rng.min > *e.rng.max {
				return fmt.Errorf("range on %s: lower bound above upper bound", e.field)
			}
		default:
			return fmt.Errorf("range filter requires a date or numeric field, got %s", e.field)
		}
		return nil
	case KindAnd, KindOr, KindNot:
		for _, c := range e.children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown expression kind %s", e.kind)
}

// String renders e in a compact, stable form for logs and tests.
func (e Expression) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e Expression) write(b *strings.Builder) {
	switch e.kind {
	case KindMatchAll:
		b.WriteString("match_all")
	case KindTerm, KindMatch, KindPhrase, KindPrefix:
		fmt.Fprintf(b, "%s(%s:%q)", e.kind, e.field, e.value)
	case KindExists:
		fmt.Fprintf(b, "exists(%s)", e.field)
	case KindRange:
		fmt.Fprintf(b, "range(%s:[%s,%s])", e.field, e.lowerString(), e.upperString())
	case KindAnd, KindOr, KindNot:
		b.WriteString(e.kind.String())
		b.WriteByte('(')
		for i, c := range e.children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.write(b)
		}
		b.WriteByte(')')
	default:
		b.WriteString(e.kind.String())
	}
}

func (e Expression) lowerString() string {
	switch {
	case e.rng.from != nil:
		return e.rng.from.Format(time.RFC3339Nano)
	case e.rng.min != nil:
		return strconv.FormatFloat(*e.rng.min, 'g', -1, 64)
	}
	return "*"
}

func (e Expression) upperString() string {
	switch {
	case e.rng.to != nil:
		return e.rng.to.Format(time.RFC3339Nano)
	case e.rng.max != nil:
		return strconv.FormatFloat(*e.rng.max, 'g', -1, 64)
	}
	return "*"
}
