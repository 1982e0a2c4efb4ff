package build

import (
	"html/template"
	"io"
	"slices"
	"strings"

	"github.com/conneroisu/strata/internal/types"
)

// Page is one output document handed to a Renderer.
type Page struct {
	// Record is the page, data entry or listing being written.
	Record *types.Record
	// URL is where the document is served; for listing pages after the
	// first it differs from Record.URL.
	URL   string
	Title string
	// Items, Number, Total, PrevURL and NextURL are only set for listings.
	Items   []*types.Record
	Number  int
	Total   int
	PrevURL string
	NextURL string
	Site    SiteInfo
}

// SiteInfo carries site-wide values from the site config.
type SiteInfo struct {
	Title   string
	BaseURL string
}

// Renderer turns a Page into an output document. Real templating engines
// plug in here.
type Renderer interface {
	Render(w io.Writer, page *Page) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, page *Page) error

// Render implements Renderer.
func (f RendererFunc) Render(w io.Writer, page *Page) error { return f(w, page) }

var defaultTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"body":   pageBody,
	"fields": visibleFields,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}{{with .Site.Title}} | {{.}}{{end}}</title>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
{{- if .Total}}
<ul>
{{- range .Items}}
<li><a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
</ul>
<nav>
{{- with .PrevURL}}<a rel="prev" href="{{.}}">Previous</a>{{end}}
<span>Page {{.Number}} of {{.Total}}</span>
{{- with .NextURL}}<a rel="next" href="{{.}}">Next</a>{{end}}
</nav>
{{- else}}
{{- with fields .Record}}
<dl>
{{- range .}}
<dt>{{.Name}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
{{- end}}
{{body .Record}}
{{- end}}
</main>
</body>
</html>
`))

// DefaultRenderer writes a minimal HTML document: listings as linked lists,
// HTML pages with their body inline and everything else as escaped text.
func DefaultRenderer() Renderer {
	return RendererFunc(func(w io.Writer, page *Page) error {
		return defaultTemplate.Execute(w, page)
	})
}

func pageBody(rec *types.Record) template.HTML {
	body := rec.Fields.Text("body")
	if body == "" {
		return ""
	}

	if strings.HasSuffix(strings.ToLower(rec.Path), ".html") {
		return template.HTML(body) //nolint:gosec // page sources are trusted site content
	}

	return template.HTML("<pre>" + template.HTMLEscapeString(body) + "</pre>")
}

type fieldView struct {
	Name  string
	Value string
}

// visibleFields lists the fields of data records for display.
func visibleFields(rec *types.Record) []fieldView {
	if rec.Module != "data" {
		return nil
	}

	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]fieldView, 0, len(names))
	for _, name := range names {
		out = append(out, fieldView{Name: name, Value: rec.Fields[name].String()})
	}

	return out
}
