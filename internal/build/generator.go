package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
	"github.com/conneroisu/strata/internal/modules/builtin"
	"github.com/conneroisu/strata/internal/query"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// EmitResult lists what the generator wrote.
type EmitResult struct {
	// Written are output paths relative to the output directory, in
	// emission order.
	Written []string
	// Unchanged counts files whose content already matched.
	Unchanged int

	// targets maps each output path to the URL that claimed it.
	targets map[string]string
}

// Generator writes the records of a finished store to the output
// directory. Every file is written atomically.
type Generator struct {
	outputDir string
	renderer  Renderer
	site      SiteInfo
	logger    logging.Logger
}

// NewGenerator returns a generator writing below outputDir. A nil renderer
// uses DefaultRenderer.
func NewGenerator(outputDir string, site SiteInfo, renderer Renderer, logger logging.Logger) *Generator {
	if renderer == nil {
		renderer = DefaultRenderer()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Generator{
		outputDir: outputDir,
		renderer:  renderer,
		site:      site,
		logger:    logger.WithComponent("generator"),
	}
}

// Emit writes every record: static records are copied, dynamic listing
// records are expanded into paginated documents and everything else is
// rendered. A sitemap is written when the site has a base URL.
func (g *Generator) Emit(ctx context.Context, s *store.Store) (*EmitResult, error) {
	res := &EmitResult{targets: make(map[string]string)}
	var sitemap []sitemapEntry

	for rec := range s.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case rec.Module == builtin.StaticName:
			if err := g.copyStatic(res, rec); err != nil {
				return nil, err
			}
		case rec.Dynamic:
			urls, err := g.expandListing(res, s, rec)
			if err != nil {
				return nil, err
			}
			for _, u := range urls {
				sitemap = append(sitemap, sitemapEntry{URL: u, LastMod: rec.LastMod})
			}
		default:
			page := &Page{Record: rec, URL: rec.URL, Title: rec.Title(), Site: g.site}
			if err := g.render(res, page); err != nil {
				return nil, err
			}
			sitemap = append(sitemap, sitemapEntry{URL: rec.URL, LastMod: rec.LastMod})
		}
	}

	if g.site.BaseURL != "" {
		content := renderSitemap(g.site.BaseURL, sitemap)
		if err := g.claim(res, "sitemap.xml", "/sitemap.xml"); err != nil {
			return nil, err
		}
		if err := g.write(res, "sitemap.xml", content); err != nil {
			return nil, err
		}
	}

	g.logger.Debug(ctx, "Emitted output", "written", len(res.Written), "unchanged", res.Unchanged)

	return res, nil
}

func (g *Generator) render(res *EmitResult, page *Page) error {
	var buf bytes.Buffer
	if err := g.renderer.Render(&buf, page); err != nil {
		return fmt.Errorf("rendering %s: %w", page.URL, err)
	}

	target := TargetPath(page.URL)
	if err := g.claim(res, target, page.URL); err != nil {
		return err
	}

	return g.write(res, target, buf.Bytes())
}

func (g *Generator) copyStatic(res *EmitResult, rec *types.Record) error {
	// Extensionless files such as CNAME carry a directory URL.
	target := strings.Trim(rec.URL, "/")
	if err := g.claim(res, target, rec.URL); err != nil {
		return err
	}

	content, err := os.ReadFile(rec.Source)
	if err != nil {
		return siteerrors.NewIOError(rec.Source, "cannot read static file", err)
	}

	return g.write(res, target, content)
}

// claim reserves an output path for url. Two URLs mapping to one file, such
// as a static "/x/index.html" and a page "/x/", are a DuplicateURLError.
func (g *Generator) claim(res *EmitResult, target, url string) error {
	if existing, ok := res.targets[target]; ok {
		return siteerrors.NewDuplicateURLError(url, existing).WithCode("output_path")
	}
	res.targets[target] = url

	return nil
}

// expandListing runs the listing's query against the finished store and
// writes one document per page. It returns the URLs written.
func (g *Generator) expandListing(res *EmitResult, s *store.Store, rec *types.Record) ([]string, error) {
	text := rec.Fields.Text("query")
	result, err := s.Filter(text)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", rec.URL, err)
	}

	perPage := builtin.DefaultPerPage
	if v, ok := rec.Field("per_page"); ok && v.Int > 0 {
		perPage = int(v.Int)
	}

	total := result.Pages(perPage)
	urls := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		page := &Page{
			Record: rec,
			URL:    PageURL(rec.URL, n),
			Title:  rec.Title(),
			Items:  pageItems(result, n, perPage),
			Number: n,
			Total:  total,
			Site:   g.site,
		}
		if n > 1 {
			page.PrevURL = PageURL(rec.URL, n-1)
		}
		if n < total {
			page.NextURL = PageURL(rec.URL, n+1)
		}

		if err := g.render(res, page); err != nil {
			return nil, err
		}
		urls = append(urls, page.URL)
	}

	return urls, nil
}

func pageItems(result *query.Result, n, perPage int) []*types.Record {
	items := result.Page(n, perPage)
	if items == nil {
		return []*types.Record{}
	}

	return items
}

// PageURL returns the URL of page n of a listing served at base.
func PageURL(base string, n int) string {
	if n <= 1 {
		return base
	}

	return path.Join(base, "page", fmt.Sprint(n)) + "/"
}

// TargetPath maps a URL to an output path relative to the output
// directory: directory URLs get an index.html.
func TargetPath(url string) string {
	rel := strings.TrimPrefix(url, "/")
	if rel == "" || strings.HasSuffix(rel, "/") || path.Ext(rel) == "" {
		return path.Join(rel, "index.html")
	}

	return rel
}

// write stores content at rel below the output directory unless an
// identical file is already there.
func (g *Generator) write(res *EmitResult, rel string, content []byte) error {
	target := filepath.Join(g.outputDir, filepath.FromSlash(rel))

	if existing, err := os.ReadFile(target); err == nil && scanner.Checksum(existing) == scanner.Checksum(content) {
		res.Unchanged++

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return siteerrors.NewIOError(target, "cannot create output directory", err)
	}

	if err := atomic.WriteFile(target, bytes.NewReader(content)); err != nil {
		return siteerrors.NewIOError(target, "cannot write output file", err)
	}

	res.Written = append(res.Written, filepath.ToSlash(rel))

	return nil
}

type sitemapEntry struct {
	URL     string
	LastMod time.Time
}

func renderSitemap(baseURL string, entries []sitemapEntry) []byte {
	base := strings.TrimSuffix(baseURL, "/")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	b.WriteString("\n")

	for _, e := range entries {
		b.WriteString("  <url>\n")
		fmt.Fprintf(&b, "    <loc>%s%s</loc>\n", xmlEscape(base), xmlEscape(e.URL))
		if !e.LastMod.IsZero() {
			fmt.Fprintf(&b, "    <lastmod>%s</lastmod>\n", e.LastMod.UTC().Format(time.DateOnly))
		}
		b.WriteString("  </url>\n")
	}

	b.WriteString("</urlset>\n")

	return []byte(b.String())
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func xmlEscape(s string) string { return xmlReplacer.Replace(s) }
