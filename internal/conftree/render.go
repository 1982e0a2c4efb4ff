package conftree

import (
	"strconv"
	"strings"
)

// Render writes m back out in the config language using width-space
// indentation. Parsing the output yields a tree equal to m as long as m has
// no empty nested maps and its first key is not "parent".
func Render(m *Map, width int) string {
	if width <= 0 {
		width = 2
	}

	var b strings.Builder
	renderMap(&b, m, 0, width)

	return b.String()
}

func renderMap(b *strings.Builder, m *Map, depth, width int) {
	pad := strings.Repeat(" ", depth*width)
	for _, k := range m.Keys() {
		v := m.values[k]
		b.WriteString(pad)
		b.WriteString(k)
		b.WriteString(":")

		if sub, ok := v.AsMap(); ok {
			b.WriteString("\n")
			renderMap(b, sub, depth+1, width)

			continue
		}

		b.WriteString(" ")
		b.WriteString(renderValue(v))
		b.WriteString("\n")
	}
}

func renderValue(v Value) string {
	switch v.kind {
	case KindList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = renderScalar(item)
		}

		return "[" + strings.Join(items, ", ") + "]"
	default:
		return renderScalar(v)
	}
}

// renderScalar quotes strings whenever the bare text would not read back as
// the same string.
func renderScalar(v Value) string {
	if v.kind != KindString {
		return v.String()
	}

	if needsQuoting(v.str) {
		return strconv.Quote(v.str)
	}

	return v.str
}

func needsQuoting(s string) bool {
	if s == "" || s != strings.TrimSpace(s) {
		return true
	}

	if strings.ContainsAny(s, ",\"[]#\n\r\t\\") {
		return true
	}

	parsed, err := parseScalar(s)

	return err != nil || parsed.kind != KindString
}
