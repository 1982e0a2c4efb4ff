package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/modules"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func siteOptions(root string) Options {
	return Options{
		Root:       root,
		Output:     "public",
		SiteConfig: "site.conf",
		ContentDir: "content",
		StaticDir:  "static",
		DataDir:    "data",
		Exclude:    []string{".*"},
	}
}

func TestPipelineRun(t *testing.T) {
	root := writeSite(t, map[string]string{
		"base.conf": "title: Base\nbase_url: https://example.org\n",
		"site.conf": `parent: base
title: Strata
listings:
  blog:
    query: (pages:: tags in blog)
    per_page: 1
`,
		"content/index.md":        "---\ntitle: Home\n---\nhi\n",
		"content/posts/first.md":  "---\ntags: blog\n---\n",
		"content/posts/second.md": "---\ntags: blog, go\n---\n",
		"static/robots.txt":       "User-agent: *\n",
		"data/team.json":          `[{"id": "ada", "name": "Ada"}]`,
	})

	metrics := NewMetrics()
	p := NewPipeline(siteOptions(root), nil)
	p.AddCallback(metrics.Record)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	gen := report.Generation
	require.NotNil(t, gen)
	assert.Equal(t, []string{"pages", "static", "data", "listing"}, modules.Names(gen.Order))
	assert.Equal(t, "Strata", gen.Site.String("title"))
	assert.Equal(t, 6, report.Records)
	assert.Equal(t, 1, report.Dynamic)
	assert.Contains(t, report.Phases, "config")
	assert.Contains(t, report.Phases, "load")
	assert.Contains(t, report.Phases, "emit")

	assert.ElementsMatch(t, []string{
		"index.html",
		"posts/first/index.html",
		"posts/second/index.html",
		"robots.txt",
		"team/ada/index.html",
		"blog/index.html",
		"blog/page/2/index.html",
		"sitemap.xml",
	}, report.Written)

	out := filepath.Join(root, "public")
	assert.Contains(t, readOutput(t, out, "index.html"), "<title>Home | Strata</title>")
	assert.Contains(t, readOutput(t, out, "sitemap.xml"), "<loc>https://example.org/blog/page/2/</loc>")
	assert.Contains(t, readOutput(t, out, "team/ada/index.html"), "<dt>name</dt><dd>Ada</dd>")

	again, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Written)
	assert.Equal(t, 8, again.Unchanged)
	assert.NotEqual(t, gen.ID, again.Generation.ID)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.TotalBuilds)
	assert.Equal(t, int64(8), snap.FilesWritten)
	assert.Equal(t, int64(8), snap.FilesUnchanged)
	assert.InDelta(t, 100.0, snap.SuccessRate(), 0.001)
	assert.Same(t, again, metrics.Last())
}

func TestPipelineMissingSiteConfig(t *testing.T) {
	root := writeSite(t, map[string]string{"content/about.md": "About"})

	gen, err := NewPipeline(siteOptions(root), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gen.Site.Len())

	_, ok := gen.Store.GetByURL("/about/")
	assert.True(t, ok)
}

func TestPipelineClean(t *testing.T) {
	root := writeSite(t, map[string]string{
		"content/index.md":  "x",
		"public/stale.html": "old",
	})

	opts := siteOptions(root)
	opts.Clean = true

	_, err := NewPipeline(opts, nil).Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "public", "stale.html"))
	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
}

func TestPipelineExtraModule(t *testing.T) {
	root := writeSite(t, map[string]string{"content/a.md": "---\ntags: x\n---\n"})

	feed := modules.New("feed", []string{"pages"}, func(_ context.Context, s *store.Store) error {
		res, err := s.Filter("(pages:: tags in x)")
		if err != nil {
			return err
		}

		return s.Register(&types.Record{
			URL:    "/feed.xml",
			Module: "feed",
			Fields: types.Fields{"count": types.Int(int64(res.Len()))},
		})
	})

	opts := siteOptions(root)
	opts.Modules = []modules.Module{feed}

	report, err := NewPipeline(opts, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Written, "feed.xml")

	rec, ok := report.Generation.Store.GetByURL("/feed.xml")
	require.True(t, ok)
	assert.Equal(t, types.Int(1), rec.Fields["count"])
}

func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		mutate func(*Options)
		kind   error
	}{
		{
			name:  "bad site config",
			files: map[string]string{"site.conf": "no colon here\n"},
			kind:  siteerrors.ErrFormat,
		},
		{
			name:  "unknown parent",
			files: map[string]string{"site.conf": "parent: ghost\n"},
			kind:  siteerrors.ErrFormat,
		},
		{
			name:  "duplicate url",
			files: map[string]string{"content/a.md": "---\nurl: /x/\n---\n", "content/b.md": "---\nurl: /x/\n---\n"},
			kind:  siteerrors.ErrDuplicateURL,
		},
		{
			name:  "directory url without slash",
			files: map[string]string{"content/about.md": "About", "content/other.md": "---\nurl: /about\n---\n"},
			kind:  siteerrors.ErrDuplicateURL,
		},
		{
			name:  "static index shadows page",
			files: map[string]string{"content/docs.md": "Docs", "static/docs/index.html": "<p>docs</p>"},
			kind:  siteerrors.ErrDuplicateURL,
		},
		{
			name:  "module cycle",
			files: map[string]string{"site.conf": "modules:\n  pages:\n    depends: listing\n"},
			kind:  siteerrors.ErrCircularDependency,
		},
		{
			name:  "missing dependency",
			files: map[string]string{"site.conf": "modules:\n  static:\n    depends: ghost\n"},
			kind:  siteerrors.ErrMissingDependency,
		},
		{
			name:   "no output",
			files:  map[string]string{},
			mutate: func(o *Options) { o.Output = "" },
			kind:   siteerrors.ErrConfig,
		},
		{
			name:   "bad exclude pattern",
			files:  map[string]string{},
			mutate: func(o *Options) { o.Exclude = []string{"["} },
			kind:   siteerrors.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := siteOptions(writeSite(t, tt.files))
			if tt.mutate != nil {
				tt.mutate(&opts)
			}

			var seen error
			p := NewPipeline(opts, nil)
			p.AddCallback(func(_ *Report, err error) { seen = err })

			report, err := p.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, err, seen)
		})
	}
}

func TestPipelineCancelled(t *testing.T) {
	root := writeSite(t, map[string]string{"content/a.md": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(siteOptions(root), nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
