// Package query parses and evaluates strata's content filter language.
//
// A query selects records by owning module and field values:
//
//	(pages:: tags in go, draft not in true) // (data:: kind in author)
//
// Each parenthesized clause names a record type followed by "::" and one or
// more comma-separated predicates. "in" requires the field to contain every
// listed value; "not in" requires it to contain none of them. Clauses are
// combined left to right with "//" (union), "&&" (intersection) and "--"
// (difference).
package query

import (
	"strconv"
	"strings"
)

// SetOp combines the results of two clauses.
type SetOp int

const (
	Union SetOp = iota
	Intersect
	Difference
)

// String returns the operator's token.
func (op SetOp) String() string {
	switch op {
	case Intersect:
		return "&&"
	case Difference:
		return "--"
	default:
		return "//"
	}
}

// Predicate tests one field of a record against a value list.
type Predicate struct {
	Field  string
	Negate bool
	Values []string
}

// String renders the predicate in query syntax.
func (p Predicate) String() string {
	var b strings.Builder
	b.WriteString(p.Field)
	if p.Negate {
		b.WriteString(" not in ")
	} else {
		b.WriteString(" in ")
	}

	for i, v := range p.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIfNeeded(v))
	}

	return b.String()
}

// Clause selects records of one type that satisfy all predicates.
type Clause struct {
	Type       string
	Predicates []Predicate
	// Offset is the rune offset of the opening parenthesis.
	Offset int
}

// String renders the clause in query syntax.
func (c Clause) String() string {
	parts := make([]string, len(c.Predicates))
	for i, p := range c.Predicates {
		parts[i] = p.String()
	}

	return "(" + c.Type + ":: " + strings.Join(parts, ", ") + ")"
}

// Query is a parsed filter expression. Ops[i] combines the running result
// with Clauses[i+1].
type Query struct {
	Text    string
	Clauses []Clause
	Ops     []SetOp
}

// String renders the query in canonical form.
func (q *Query) String() string {
	var b strings.Builder
	for i, c := range q.Clauses {
		if i > 0 {
			b.WriteString(" ")
			b.WriteString(q.Ops[i-1].String())
			b.WriteString(" ")
		}
		b.WriteString(c.String())
	}

	return b.String()
}

// Types returns the record types the query refers to, in order of first use.
func (q *Query) Types() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range q.Clauses {
		if !seen[c.Type] {
			seen[c.Type] = true
			out = append(out, c.Type)
		}
	}

	return out
}

func quoteIfNeeded(v string) string {
	if v == "" || v == "in" || v == "not" || strings.ContainsAny(v, " \t\n(),\":") ||
		strings.HasPrefix(v, "//") || strings.HasPrefix(v, "&&") || strings.HasPrefix(v, "--") {
		return strconv.Quote(v)
	}

	return v
}
