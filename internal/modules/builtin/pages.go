package builtin

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// PagesName is the record type of content pages.
const PagesName = "pages"

var pageExtensions = []string{".md", ".markdown", ".html"}

var pageSchema = types.Schema{
	"title":  types.FieldText,
	"tags":   types.FieldList,
	"date":   types.FieldText,
	"draft":  types.FieldBoolean,
	"weight": types.FieldInteger,
}

// Pages loads Markdown and HTML documents with optional YAML front matter.
type Pages struct {
	env  Env
	deps []string
}

// NewPages returns the pages module.
func NewPages(env Env) *Pages {
	return &Pages{env: env, deps: env.dependencies(PagesName)}
}

func (p *Pages) Name() string           { return PagesName }
func (p *Pages) Dependencies() []string { return append([]string(nil), p.deps...) }

// Schema implements modules.SchemaProvider.
func (p *Pages) Schema() types.Schema { return pageSchema }

// Load registers one record per page, skipping drafts unless
// modules.pages.drafts is true.
func (p *Pages) Load(ctx context.Context, s *store.Store) error {
	files, err := p.env.Scanner.Scan(ctx, p.env.ContentDir, pageExtensions...)
	if err != nil {
		return err
	}

	drafts := p.env.boolSetting(PagesName, "drafts", false)
	logger := p.env.logger(PagesName)

	for _, f := range files {
		rec, err := p.record(f)
		if err != nil {
			return err
		}

		if draft, ok := rec.Field("draft"); ok && draft.Bool && !drafts {
			logger.Debug(ctx, "Skipping draft", "path", f.Path)

			continue
		}

		if err := s.Register(rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pages) record(f scanner.File) (*types.Record, error) {
	meta, body, line, err := splitFrontMatter(f.Content)
	if err != nil {
		return nil, siteerrors.NewFormatError(f.Path, line, "invalid front matter").WithCause(err)
	}

	rec := &types.Record{
		Path:    f.Path,
		Module:  PagesName,
		Fields:  types.Fields{},
		Source:  f.Abs,
		Hash:    f.Hash,
		LastMod: f.ModTime,
	}

	for key, raw := range meta {
		key = strings.ToLower(key)
		switch key {
		case "id":
			rec.ID = fmt.Sprint(raw)

			continue
		case "url":
			rec.URL = fmt.Sprint(raw)

			continue
		}

		value, err := pageSchema.Coerce(key, normalizeYAML(raw))
		if err != nil {
			return nil, siteerrors.NewFormatError(f.Path, 1, "invalid front matter field").WithCause(err)
		}
		rec.Fields[key] = value
	}

	rec.Fields["body"] = types.Text(string(body))

	if rec.URL == "" {
		rec.URL = PageURL(f.Rel)
	}

	if rec.Fields.Text("title") == "" {
		rec.Fields["title"] = types.Text(pageTitle(f.Rel, body))
	}

	return rec, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. line is the line an error refers to.
func splitFrontMatter(content []byte) (map[string]interface{}, []byte, int, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, []byte(text), 0, nil
	}

	rest := text[len("---\n"):]
	var block, body string
	switch {
	case strings.HasPrefix(rest, "---\n") || rest == "---":
		body = strings.TrimPrefix(strings.TrimPrefix(rest, "---"), "\n")
	default:
		end := strings.Index(rest, "\n---\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n---") {
				return nil, nil, 1, fmt.Errorf("front matter is not closed")
			}
			end = len(rest) - len("\n---")
			block, body = rest[:end], ""
		} else {
			block, body = rest[:end], rest[end+len("\n---\n"):]
		}
	}

	meta := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, nil, frontMatterLine(err), err
	}

	return meta, []byte(body), 0, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// frontMatterLine maps the first line a YAML error names to a file line.
// The block starts on line 2, after the opening delimiter.
func frontMatterLine(err error) int {
	m := yamlLine.FindStringSubmatch(err.Error())
	if m == nil {
		return 2
	}

	n, convErr := strconv.Atoi(m[1])
	if convErr != nil || n < 1 {
		return 2
	}

	return n + 1
}

// normalizeYAML renders date-only timestamps without a clock.
func normalizeYAML(raw interface{}) interface{} {
	t, ok := raw.(time.Time)
	if !ok {
		return raw
	}

	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}

	return t.Format(time.RFC3339)
}

// PageURL derives a page URL from its path below the content directory:
// "posts/hello.md" is served at "/posts/hello/" and "posts/index.md" at
// "/posts/".
func PageURL(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if rel == "index" {
		return "/"
	}

	rel = strings.TrimSuffix(rel, "/index")

	return "/" + rel + "/"
}

var titleCaser = cases.Title(language.English)

// pageTitle finds a title in HTML content, falling back to the file name.
func pageTitle(rel string, body []byte) string {
	if strings.EqualFold(path.Ext(rel), ".html") {
		if title := htmlTitle(body); title != "" {
			return title
		}
	}

	return TitleFromName(rel)
}

// TitleFromName title-cases a file name: "posts/hello-world.md" becomes
// "Hello World". Index pages take their directory's name.
func TitleFromName(rel string) string {
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if name == "index" {
		dir := path.Base(path.Dir(rel))
		if dir == "." || dir == "/" {
			return "Home"
		}
		name = dir
	}

	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	return titleCaser.String(name)
}

// htmlTitle returns the text of the <title> element, or else of the first
// <h1>.
func htmlTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	if n := findElement(doc, "title"); n != nil {
		if title := strings.TrimSpace(textContent(n)); title != "" {
			return title
		}
	}

	if n := findElement(doc, "h1"); n != nil {
		return strings.TrimSpace(textContent(n))
	}

	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}

	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
