package builtin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/strata/internal/conftree"
	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/modules"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testEnv(t *testing.T, root, site string) Env {
	t.Helper()

	sc, err := scanner.New(root, []string{"*.bak", ".*"})
	require.NoError(t, err)

	tree, err := conftree.Parse("site", []byte(site))
	require.NoError(t, err)

	return Env{
		Scanner:    sc,
		Site:       tree,
		ContentDir: "content",
		StaticDir:  "static",
		DataDir:    "data",
	}
}

func load(t *testing.T, env Env) (*store.Store, []*modules.Descriptor, error) {
	t.Helper()

	r := modules.NewRegistry(nil)
	for _, m := range Enabled(env) {
		require.NoError(t, r.Register(m))
	}

	s := store.New()
	order, err := r.ResolveAndLoad(context.Background(), s)

	return s, order, err
}

func TestPages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/index.md", "Welcome home")
	writeFile(t, root, "content/posts/hello-world.md", `---
id: hello
title: Hello
tags: [go, web]
date: 2024-03-01
weight: 2
author: sam
---
Body text
`)
	writeFile(t, root, "content/posts/draft.md", "---\ndraft: true\n---\nwip\n")
	writeFile(t, root, "content/about/index.html", "<html><head><title> About Us </title></head><body><h1>x</h1></body></html>")
	writeFile(t, root, "content/contact.html", "<h1>Get in touch</h1>")
	writeFile(t, root, "content/custom.md", "---\nurl: /elsewhere\n---\n")

	s, _, err := load(t, testEnv(t, root, "title: test\n"))
	require.NoError(t, err)

	hello, ok := s.GetByID(PagesName, "hello")
	require.True(t, ok)
	assert.Equal(t, "/posts/hello-world/", hello.URL)
	assert.Equal(t, "content/posts/hello-world.md", hello.Path)
	assert.Equal(t, "Hello", hello.Title())
	assert.Equal(t, types.List("go", "web"), hello.Fields["tags"])
	assert.Equal(t, types.Text("2024-03-01"), hello.Fields["date"])
	assert.Equal(t, types.Int(2), hello.Fields["weight"])
	assert.Equal(t, types.Text("sam"), hello.Fields["author"])
	assert.Equal(t, "Body text\n", hello.Fields.Text("body"))
	assert.NotEmpty(t, hello.Hash)

	home, ok := s.GetByURL("/")
	require.True(t, ok)
	assert.Equal(t, "Home", home.Title())

	about, ok := s.GetByURL("/about/")
	require.True(t, ok)
	assert.Equal(t, "About Us", about.Title())

	contact, ok := s.GetByPath("content/contact.html")
	require.True(t, ok)
	assert.Equal(t, "Get in touch", contact.Title())

	_, ok = s.GetByURL("/elsewhere")
	assert.True(t, ok)

	_, ok = s.GetByURL("/posts/draft/")
	assert.False(t, ok)
}

func TestPagesIncludeDrafts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/draft.md", "---\ndraft: true\n---\n")

	s, _, err := load(t, testEnv(t, root, "modules:\n  pages:\n    drafts: true\n"))
	require.NoError(t, err)

	_, ok := s.GetByURL("/draft/")
	assert.True(t, ok)
}

func TestPagesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    error
	}{
		{"unclosed front matter", "---\ntitle: x\n", siteerrors.ErrFormat},
		{"bad yaml", "---\ntitle: [x\n---\n", siteerrors.ErrFormat},
		{"bad weight", "---\nweight: heavy\n---\n", siteerrors.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "content/bad.md", tt.content)

			_, _, err := load(t, testEnv(t, root, ""))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), err.Error())
			assert.Contains(t, err.Error(), "module pages")
		})
	}
}

func TestPagesFrontMatterErrorLine(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/bad.md", "---\ntitle: a\nauthor: b\ntitle: c\n---\nbody\n")

	_, _, err := load(t, testEnv(t, root, ""))
	require.Error(t, err)

	var se *siteerrors.SiteError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, siteerrors.KindFormat, se.Kind)
	assert.Equal(t, "content/bad.md", se.FilePath)
	assert.Equal(t, 4, se.Line)
}

func TestFrontMatterLine(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"yaml: line 3: did not find expected key", 4},
		{"yaml: unmarshal errors:\n  line 5: cannot unmarshal", 6},
		{"yaml: control characters are not allowed", 2},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, frontMatterLine(errors.New(tt.msg)))
		})
	}
}

func TestPagesDuplicateURL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/a.md", "---\nurl: /same/\n---\n")
	writeFile(t, root, "content/b.md", "---\nurl: /same/\n---\n")

	_, _, err := load(t, testEnv(t, root, ""))
	assert.True(t, errors.Is(err, siteerrors.ErrDuplicateURL))
}

func TestStatic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "static/css/site.css", "body{}")
	writeFile(t, root, "static/.DS_Store", "junk")

	s, _, err := load(t, testEnv(t, root, ""))
	require.NoError(t, err)

	rec, ok := s.GetByURL("/css/site.css")
	require.True(t, ok)
	assert.Equal(t, StaticName, rec.Module)
	assert.Equal(t, types.Int(6), rec.Fields["size"])

	var count int
	for range s.ByModule(StaticName) {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestData(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "data/authors.json", `[
  // people
  {"id": "ada", "name": "Ada", "langs": ["en", "fr"], "age": 36},
  {"name": "Anonymous", "score": 1.5, "active": false,},
]`)
	writeFile(t, root, "data/site.json", `{"title": "Data", "nested": {"a": 1}}`)

	s, _, err := load(t, testEnv(t, root, ""))
	require.NoError(t, err)

	ada, ok := s.GetByID(DataName, "ada")
	require.True(t, ok)
	assert.Equal(t, "/authors/ada/", ada.URL)
	assert.Equal(t, types.List("en", "fr"), ada.Fields["langs"])
	assert.Equal(t, types.Int(36), ada.Fields["age"])
	assert.Empty(t, ada.Path)

	anon, ok := s.GetByURL("/authors/1/")
	require.True(t, ok)
	assert.Equal(t, types.Float(1.5), anon.Fields["score"])
	assert.Equal(t, types.Bool(false), anon.Fields["active"])

	site, ok := s.GetByPath("data/site.json")
	require.True(t, ok)
	assert.Equal(t, "/site/", site.URL)
	assert.Equal(t, `{"a":1}`, site.Fields.Text("nested"))

	res, err := s.Filter("(data:: langs in fr)")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
}

func TestDataRejectsScalars(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "data/n.json", "42")

	_, _, err := load(t, testEnv(t, root, ""))
	assert.True(t, errors.Is(err, siteerrors.ErrFormat))
}

func TestListing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/a.md", "---\ntags: blog\n---\n")

	site := `listings:
  blog:
    query: (pages:: tags in blog)
    url: /blog/
    per_page: 5
  archive:
    query: (pages:: tags not in none) // (pages:: tags in blog)
`
	s, order, err := load(t, testEnv(t, root, site))
	require.NoError(t, err)

	assert.Equal(t, []string{"pages", "static", "data", "listing"}, modules.Names(order))

	blog, ok := s.GetByURL("/blog/")
	require.True(t, ok)
	assert.True(t, blog.Dynamic)
	assert.Equal(t, types.Int(5), blog.Fields["per_page"])
	assert.Equal(t, "Blog", blog.Title())

	archive, ok := s.GetByID(ListingName, "listing:archive")
	require.True(t, ok)
	assert.Equal(t, "/archive/", archive.URL)
	assert.Equal(t, types.Int(DefaultPerPage), archive.Fields["per_page"])

	var dynamic int
	for range s.Dynamic() {
		dynamic++
	}
	assert.Equal(t, 2, dynamic)
}

func TestListingQueryKeepsSourceText(t *testing.T) {
	site := `listings:
  weighted:
    query: (pages:: weight in 007, 1.50, TRUE)
`
	s, _, err := load(t, testEnv(t, t.TempDir(), site))
	require.NoError(t, err)

	rec, ok := s.GetByID(ListingName, "listing:weighted")
	require.True(t, ok)
	assert.Equal(t, "(pages:: weight in 007, 1.50, TRUE)", rec.Fields.Text("query"))
}

func TestListingErrors(t *testing.T) {
	tests := []struct {
		name string
		site string
	}{
		{"unknown type", "listings:\n  x:\n    query: (ghost:: a in b)\n"},
		{"no query", "listings:\n  x:\n    url: /x/\n"},
		{"bad per_page", "listings:\n  x:\n    query: (pages:: a in b)\n    per_page: 0\n"},
		{"not a block", "listings:\n  x: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := load(t, testEnv(t, t.TempDir(), tt.site))
			assert.True(t, errors.Is(err, siteerrors.ErrConfig), err)
		})
	}
}

func TestEnabledAndDepends(t *testing.T) {
	env := testEnv(t, t.TempDir(), `modules:
  data:
    enabled: false
  listing:
    depends: static, pages
`)

	mods := Enabled(env)
	var names []string
	for _, m := range mods {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"pages", "static", "listing"}, names)
	assert.Equal(t, []string{"pages", "static"}, mods[2].Dependencies())

	_, err := New("nope", env)
	assert.Error(t, err)
}

func TestTitleFromName(t *testing.T) {
	tests := map[string]string{
		"hello-world.md":      "Hello World",
		"posts/my_first.html": "My First",
		"index.md":            "Home",
		"guides/index.md":     "Guides",
	}

	for in, want := range tests {
		assert.Equal(t, want, TitleFromName(in), in)
	}
}

func TestPageURL(t *testing.T) {
	tests := map[string]string{
		"index.md":           "/",
		"posts/index.html":   "/posts/",
		"posts/hello.md":     "/posts/hello/",
		"about.markdown":     "/about/",
		"deep/nested/doc.md": "/deep/nested/doc/",
	}

	for in, want := range tests {
		assert.Equal(t, want, PageURL(in), in)
	}
}
