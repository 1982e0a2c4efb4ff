package query

import (
	"errors"
	"fmt"

	siteerrors "github.com/conneroisu/strata/internal/errors"
)

// TypeSet reports which record types exist. Clauses naming any other type
// are rejected at parse time.
type TypeSet interface {
	HasType(name string) bool
}

// Types is a TypeSet over a fixed list of names.
type Types []string

// HasType implements TypeSet.
func (ts Types) HasType(name string) bool {
	for _, t := range ts {
		if t == name {
			return true
		}
	}

	return false
}

type parser struct {
	src   []rune
	toks  []token
	pos   int
	types TypeSet
}

// Parse parses text into a Query. A nil TypeSet accepts every type name.
func Parse(text string, types TypeSet) (*Query, error) {
	src := []rune(text)

	toks, err := lex(src)
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			return nil, siteerrors.NewQuerySyntaxError(le.fragment, le.offset, le.msg)
		}

		return nil, err
	}

	p := &parser{src: src, toks: toks, types: types}

	return p.parseExpression(text)
}

func (p *parser) at(i int) token {
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[i]
}

func (p *parser) peek() token { return p.at(p.pos) }

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}

	return t
}

// fail reports a syntax error at tok. At the end of input the fragment is
// the remainder of the text starting at from.
func (p *parser) fail(tok token, from int, format string, args ...interface{}) error {
	fragment := tok.text
	offset := tok.offset
	if tok.kind == tokEOF {
		fragment = string(p.src[from:])
		offset = from
	}

	return siteerrors.NewQuerySyntaxError(fragment, offset, fmt.Sprintf(format, args...))
}

func (p *parser) parseExpression(text string) (*Query, error) {
	q := &Query{Text: text}

	if p.peek().kind == tokEOF {
		return nil, siteerrors.NewQuerySyntaxError("", 0, "empty query")
	}

	clause, err := p.parseClause()
	if err != nil {
		return nil, err
	}
	q.Clauses = append(q.Clauses, clause)

	for {
		tok := p.peek()
		switch {
		case tok.kind == tokEOF:
			return q, nil
		case tok.isOperator():
			p.next()
			if p.peek().kind == tokEOF {
				return nil, siteerrors.NewQuerySyntaxError(tok.text, tok.offset,
					fmt.Sprintf("operator %s has no right-hand clause", tok.text))
			}

			clause, err := p.parseClause()
			if err != nil {
				return nil, err
			}
			q.Ops = append(q.Ops, opFor(tok.kind))
			q.Clauses = append(q.Clauses, clause)
		case tok.kind == tokRParen:
			return nil, p.fail(tok, tok.offset, "unbalanced parentheses: unexpected ')'")
		default:
			return nil, siteerrors.NewQuerySyntaxError(string(p.src[tok.offset:]), tok.offset,
				"unexpected input after clause, expected '//', '&&' or '--'")
		}
	}
}

func opFor(kind tokenKind) SetOp {
	switch kind {
	case tokIntersect:
		return Intersect
	case tokDifference:
		return Difference
	default:
		return Union
	}
}

func (p *parser) parseClause() (Clause, error) {
	open := p.next()
	if open.kind != tokLParen {
		return Clause{}, p.fail(open, open.offset, "expected '(' to start a clause, found %s", open.kind)
	}

	typ := p.next()
	if typ.kind != tokWord {
		return Clause{}, p.fail(typ, open.offset, "expected a record type after '(', found %s", typ.kind)
	}

	if p.types != nil && !p.types.HasType(typ.value) {
		return Clause{}, siteerrors.NewQuerySyntaxError(typ.text, typ.offset,
			fmt.Sprintf("unknown record type %q", typ.value))
	}

	if scope := p.peek(); scope.kind != tokScope {
		return Clause{}, p.fail(scope, open.offset, "missing '::' after record type %q", typ.value)
	}
	p.next()

	clause := Clause{Type: typ.value, Offset: open.offset}

	for {
		pred, err := p.parsePredicate(open)
		if err != nil {
			return Clause{}, err
		}
		clause.Predicates = append(clause.Predicates, pred)

		if p.peek().kind == tokComma && p.startsPredicate(p.pos+1) {
			p.next()

			continue
		}

		break
	}

	closing := p.next()
	switch closing.kind {
	case tokRParen:
		return clause, nil
	case tokEOF:
		return Clause{}, siteerrors.NewQuerySyntaxError(string(p.src[open.offset:]), open.offset,
			"unbalanced parentheses: missing ')'")
	default:
		return Clause{}, p.fail(closing, open.offset, "expected ')' or ',', found %s", closing.kind)
	}
}

// startsPredicate reports whether the tokens at i read "<name> in" or
// "<name> not in".
func (p *parser) startsPredicate(i int) bool {
	if p.at(i).kind != tokWord {
		return false
	}

	after := p.at(i + 1)

	return after.isWord("in") || (after.isWord("not") && p.at(i+2).isWord("in"))
}

func (p *parser) parsePredicate(open token) (Predicate, error) {
	field := p.next()
	if field.kind != tokWord {
		return Predicate{}, p.fail(field, open.offset, "expected a field name, found %s", field.kind)
	}

	pred := Predicate{Field: field.value}

	switch {
	case p.peek().isWord("in"):
		p.next()
	case p.peek().isWord("not") && p.at(p.pos+1).isWord("in"):
		p.next()
		p.next()
		pred.Negate = true
	default:
		return Predicate{}, p.fail(p.peek(), open.offset, "missing 'in' or 'not in' after field %q", field.value)
	}

	first := p.peek()
	if !isValue(first) {
		return Predicate{}, p.fail(first, open.offset, "empty value list for field %q", field.value)
	}
	p.next()
	pred.Values = append(pred.Values, first.value)

	for p.peek().kind == tokComma && !p.startsPredicate(p.pos+1) {
		comma := p.next()
		value := p.peek()
		if !isValue(value) {
			return Predicate{}, p.fail(value, comma.offset, "expected a value after ','")
		}
		p.next()
		pred.Values = append(pred.Values, value.value)
	}

	return pred, nil
}

func isValue(t token) bool {
	return t.kind == tokWord || t.kind == tokString
}
