package query

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokScope
	tokComma
	tokWord
	tokString
	tokUnion
	tokIntersect
	tokDifference
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokScope:
		return "'::'"
	case tokComma:
		return "','"
	case tokWord:
		return "word"
	case tokString:
		return "string"
	case tokUnion:
		return "'//'"
	case tokIntersect:
		return "'&&'"
	case tokDifference:
		return "'--'"
	default:
		return "token"
	}
}

// token is one lexeme. offset and end are rune offsets into the query text;
// text is the raw source slice and value the decoded payload.
type token struct {
	kind   tokenKind
	text   string
	value  string
	offset int
	end    int
}

func (t token) isOperator() bool {
	return t.kind == tokUnion || t.kind == tokIntersect || t.kind == tokDifference
}

// isWord reports whether t is the bare word w.
func (t token) isWord(w string) bool {
	return t.kind == tokWord && t.value == w
}

var operators = map[string]tokenKind{
	"//": tokUnion,
	"&&": tokIntersect,
	"--": tokDifference,
}

type lexError struct {
	fragment string
	offset   int
	msg      string
}

func (e *lexError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.msg, e.offset)
}

// lex splits the query into tokens. Operators and "::" are only recognized
// where a token starts, so words such as "e-mail" stay intact.
func lex(src []rune) ([]token, error) {
	var toks []token
	i := 0

	emit := func(kind tokenKind, start, end int, value string) {
		toks = append(toks, token{
			kind:   kind,
			text:   string(src[start:end]),
			value:  value,
			offset: start,
			end:    end,
		})
	}

	for i < len(src) {
		r := src[i]

		if unicode.IsSpace(r) {
			i++

			continue
		}

		if i+1 < len(src) {
			pair := string(src[i : i+2])
			if kind, ok := operators[pair]; ok {
				emit(kind, i, i+2, pair)
				i += 2

				continue
			}
			if pair == "::" {
				emit(tokScope, i, i+2, pair)
				i += 2

				continue
			}
		}

		switch r {
		case '(':
			emit(tokLParen, i, i+1, "(")
			i++
		case ')':
			emit(tokRParen, i, i+1, ")")
			i++
		case ',':
			emit(tokComma, i, i+1, ",")
			i++
		case '"':
			end, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			value, uerr := strconv.Unquote(string(src[i:end]))
			if uerr != nil {
				return nil, &lexError{fragment: string(src[i:end]), offset: i, msg: "invalid quoted value"}
			}
			emit(tokString, i, end, value)
			i = end
		default:
			start := i
			for i < len(src) && !endsWord(src, i) {
				i++
			}
			emit(tokWord, start, i, string(src[start:i]))
		}
	}

	toks = append(toks, token{kind: tokEOF, offset: len(src), end: len(src)})

	return toks, nil
}

func endsWord(src []rune, i int) bool {
	r := src[i]
	if unicode.IsSpace(r) {
		return true
	}

	switch r {
	case '(', ')', ',', '"':
		return true
	case ':':
		return i+1 < len(src) && src[i+1] == ':'
	}

	return false
}

// scanString returns the offset just past the closing quote of the string
// starting at start.
func scanString(src []rune, start int) (int, error) {
	escaped := false
	for i := start + 1; i < len(src); i++ {
		switch {
		case escaped:
			escaped = false
		case src[i] == '\\':
			escaped = true
		case src[i] == '"':
			return i + 1, nil
		}
	}

	return 0, &lexError{fragment: string(src[start:]), offset: start, msg: "unterminated quoted value"}
}
