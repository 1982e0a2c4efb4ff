package conftree

import (
	"fmt"
	"strconv"
	"strings"

	siteerrors "github.com/conneroisu/strata/internal/errors"
)

// ParentDirective is the reserved key that may open a document.
const ParentDirective = "parent"

// ParentResolver returns the previously parsed document with the given name.
type ParentResolver func(name string) (*Tree, error)

type parseOptions struct {
	indentWidth int
	file        string
	parent      *Tree
	resolver    ParentResolver
}

// Option configures Parse.
type Option func(*parseOptions)

// WithIndentWidth fixes the indentation step. Zero detects it from the first
// indented line.
func WithIndentWidth(width int) Option {
	return func(o *parseOptions) {
		o.indentWidth = width
	}
}

// WithFile sets the file path reported in format errors.
func WithFile(path string) Option {
	return func(o *parseOptions) {
		o.file = path
	}
}

// WithParent merges the document over parent. A "parent:" directive naming a
// different document is resolved through the resolver instead.
func WithParent(parent *Tree) Option {
	return func(o *parseOptions) {
		o.parent = parent
	}
}

// WithResolver resolves names given in a "parent:" directive.
func WithResolver(resolver ParentResolver) Option {
	return func(o *parseOptions) {
		o.resolver = resolver
	}
}

// frame is one open map on the indentation stack. key and owner are where
// the map is attached once it completes; the root frame has no owner.
type frame struct {
	level int
	m     *Map
	key   string
	owner *Map
}

// pendingKey is a key whose value was left empty: either a nested block
// follows on deeper lines, or the value is the empty string.
type pendingKey struct {
	key   string
	level int
}

type parser struct {
	opts   parseOptions
	width  int
	stack  []frame
	open   *pendingKey
	parent string
	// parentLine is the line of the parent directive, 0 when absent.
	parentLine int
}

// Parse parses src into a finalized Tree called name.
func Parse(name string, src []byte, opts ...Option) (*Tree, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.indentWidth < 0 {
		return nil, siteerrors.NewFormatError(o.file, 0, "indent width must not be negative")
	}

	p := &parser{
		opts:  o,
		width: o.indentWidth,
	}

	root, err := p.parse(string(src))
	if err != nil {
		return nil, err
	}

	tree := &Tree{Map: root, name: name, file: o.file}

	parent, err := p.resolveParent()
	if err != nil {
		return nil, err
	}

	if parent != nil {
		tree.Map = merge(parent.Map, root)
		tree.parent = parent
	}

	return tree, nil
}

func (p *parser) formatErr(line int, format string, args ...interface{}) error {
	return siteerrors.NewFormatError(p.fileLabel(), line, fmt.Sprintf(format, args...))
}

func (p *parser) fileLabel() string {
	if p.opts.file != "" {
		return p.opts.file
	}

	return "<config>"
}

func (p *parser) parse(src string) (*Map, error) {
	root := newMap()
	p.stack = []frame{{level: 0, m: root}}
	sawContent := false

	for i, raw := range strings.Split(src, "\n") {
		num := i + 1
		line := strings.TrimSuffix(raw, "\r")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		level, err := p.levelOf(line, num)
		if err != nil {
			return nil, err
		}

		if err := p.enter(level, num); err != nil {
			return nil, err
		}

		keyRaw, valueRaw, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, p.formatErr(num, "missing ':' separator in %q", trimmed)
		}

		key := strings.ToLower(strings.TrimSpace(keyRaw))
		if key == "" {
			return nil, p.formatErr(num, "empty key")
		}

		value := strings.TrimSpace(valueRaw)

		if !sawContent && level == 0 && key == ParentDirective {
			sawContent = true
			if value == "" {
				return nil, p.formatErr(num, "parent directive needs a document name")
			}
			p.parent = value
			p.parentLine = num

			continue
		}
		sawContent = true

		if value == "" {
			p.open = &pendingKey{key: key, level: level}

			continue
		}

		v, err := parseValue(value)
		if err != nil {
			return nil, p.formatErr(num, "%v", err)
		}

		p.top().m.set(key, v)
	}

	p.closeOpenKey()
	p.popTo(0)

	return root, nil
}

// levelOf converts the leading indentation of line into a nesting level.
func (p *parser) levelOf(line string, num int) (int, error) {
	indent := 0
	for _, r := range line {
		if r == ' ' {
			indent++

			continue
		}
		if r == '\t' {
			return 0, p.formatErr(num, "tab character in indentation")
		}

		break
	}

	if indent == 0 {
		return 0, nil
	}

	if p.width == 0 {
		p.width = indent
	}

	if indent%p.width != 0 {
		return 0, p.formatErr(num, "indentation of %d columns is not a multiple of %d", indent, p.width)
	}

	return indent / p.width, nil
}

// enter adjusts the frame stack for a line at level: it opens the nested
// block of a pending key, or pops completed frames.
func (p *parser) enter(level, num int) error {
	if p.open != nil {
		open := p.open
		p.open = nil

		if level == open.level+1 {
			owner := p.top().m
			p.stack = append(p.stack, frame{level: level, m: newMap(), key: open.key, owner: owner})

			return nil
		}

		p.top().m.set(open.key, StringValue(""))
	}

	if level > p.top().level {
		return p.formatErr(num, "unexpected indentation: level %d is deeper than the open block at level %d", level, p.top().level)
	}

	p.popTo(level)

	return nil
}

func (p *parser) top() *frame {
	return &p.stack[len(p.stack)-1]
}

// popTo closes frames deeper than level, attaching each completed map to
// its owner.
func (p *parser) popTo(level int) {
	for len(p.stack) > 1 && p.top().level > level {
		done := *p.top()
		p.stack = p.stack[:len(p.stack)-1]
		done.owner.set(done.key, mapValue(done.m))
	}
}

func (p *parser) closeOpenKey() {
	if p.open != nil {
		p.top().m.set(p.open.key, StringValue(""))
		p.open = nil
	}
}

func (p *parser) resolveParent() (*Tree, error) {
	if p.parent == "" {
		return p.opts.parent, nil
	}

	if p.opts.parent != nil && p.opts.parent.Name() == p.parent {
		return p.opts.parent, nil
	}

	if p.opts.resolver == nil {
		return nil, p.formatErr(p.parentLine, "unknown parent document %q", p.parent)
	}

	parent, err := p.opts.resolver(p.parent)
	if err != nil {
		return nil, siteerrors.NewFormatError(p.fileLabel(), p.parentLine,
			fmt.Sprintf("cannot load parent document %q", p.parent)).WithCause(err)
	}

	if parent == nil {
		return nil, p.formatErr(p.parentLine, "unknown parent document %q", p.parent)
	}

	return parent, nil
}

// parseValue interprets the text after a key's separator.
func parseValue(s string) (Value, error) {
	if isQuoted(s) {
		str, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid quoted string %s", s)
		}

		return StringValue(str), nil
	}

	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return Value{}, fmt.Errorf("unterminated list %q", s)
		}

		return parseList(s[1 : len(s)-1])
	}

	var (
		v   Value
		err error
	)
	if hasUnquotedComma(s) {
		v, err = parseList(s)
	} else {
		v, err = parseScalar(s)
	}
	if err != nil {
		return Value{}, err
	}
	v.raw = s

	return v, nil
}

func parseList(s string) (Value, error) {
	parts, err := splitItems(s)
	if err != nil {
		return Value{}, err
	}

	items := make([]Value, 0, len(parts))
	for _, part := range parts {
		item, err := parseScalar(part)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}

	return Value{kind: KindList, list: items}, nil
}

// splitItems splits on commas outside double quotes, dropping empty items.
func splitItems(s string) ([]string, error) {
	var (
		items   []string
		current strings.Builder
		quoted  bool
		escaped bool
	)

	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			flush()

			continue
		}
		current.WriteRune(r)
	}

	if quoted {
		return nil, fmt.Errorf("unterminated quoted string in list %q", s)
	}
	flush()

	return items, nil
}

func hasUnquotedComma(s string) bool {
	quoted := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			return true
		}
	}

	return false
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// parseScalar infers integer, float, boolean or string.
func parseScalar(tok string) (Value, error) {
	if isQuoted(tok) {
		str, err := strconv.Unquote(tok)
		if err != nil {
			return Value{}, fmt.Errorf("invalid quoted string %s", tok)
		}

		return StringValue(str), nil
	}

	switch {
	case isInteger(tok):
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("integer %s out of range; quote it to keep it as a string", tok)
		}

		return IntValue(n), nil
	case isDecimal(tok):
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return FloatValue(f), nil
		}
	case strings.EqualFold(tok, "true"):
		return BoolValue(true), nil
	case strings.EqualFold(tok, "false"):
		return BoolValue(false), nil
	}

	return StringValue(tok), nil
}

func isInteger(tok string) bool {
	digits := strings.TrimPrefix(tok, "-")
	if digits == "" {
		return false
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// isDecimal reports digits with exactly one decimal point.
func isDecimal(tok string) bool {
	body := strings.TrimPrefix(tok, "-")
	intPart, fracPart, ok := strings.Cut(body, ".")
	if !ok || intPart+fracPart == "" {
		return false
	}

	return (intPart == "" || isInteger(intPart)) && (fracPart == "" || isInteger(fracPart)) &&
		!strings.HasPrefix(fracPart, "-") && !strings.HasPrefix(intPart, "-")
}
