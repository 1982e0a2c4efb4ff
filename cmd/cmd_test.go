package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/strata/internal/build"
	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/version"
)

func writeTestSite(t *testing.T) string {
	t.Helper()

	files := map[string]string{
		"site.conf": `title: Strata
listings:
  go:
    query: (pages:: tags in go)
`,
		"content/index.md":        "---\ntitle: Home\n---\nhi\n",
		"content/posts/first.md":  "---\ntitle: First\ntags: blog\n---\n",
		"content/posts/second.md": "---\ntitle: Second\ntags: blog, go\n---\n",
		"static/robots.txt":       "User-agent: *\n",
		"data/team.json":          `[{"id": "ada", "name": "Ada"}]`,
	}

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)

	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	cfgFile = ""
	resetFlags(rootCmd)
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func TestBuildCommand(t *testing.T) {
	root := writeTestSite(t)

	out, _, err := execute(t, "build", "--source", root, "--list")
	require.NoError(t, err)

	assert.Contains(t, out, "modules:   pages -> static -> data -> listing")
	assert.Contains(t, out, "records:   6 (1 dynamic)")
	assert.Contains(t, out, "written:   6")
	assert.Contains(t, out, "  posts/second/index.html")
	assert.FileExists(t, filepath.Join(root, "public", "go", "index.html"))

	out, _, err = execute(t, "build", "--source", root, "--output", "dist", "--base-url", "https://example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "written:   7")
	assert.FileExists(t, filepath.Join(root, "dist", "sitemap.xml"))
}

func TestBuildCommandFromEnvironment(t *testing.T) {
	root := writeTestSite(t)
	t.Setenv("STRATA_SOURCE", root)
	t.Setenv("STRATA_OUTPUT", "site")

	_, _, err := execute(t, "build")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "site", "index.html"))
}

func TestBuildCommandInvalidSettings(t *testing.T) {
	root := writeTestSite(t)

	_, _, err := execute(t, "build", "--source", root, "--base-url", "example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, siteerrors.ErrConfig)
}

func TestQueryCommand(t *testing.T) {
	root := writeTestSite(t)

	tests := []struct {
		name string
		expr string
		urls []string
	}{
		{
			name: "single clause",
			expr: "(pages:: tags in go)",
			urls: []string{"/posts/second/"},
		},
		{
			name: "union",
			expr: "(pages:: tags in go) // (data:: name in Ada)",
			urls: []string{"/posts/second/", "/team/ada/"},
		},
		{
			name: "difference",
			expr: "(pages:: tags in blog) -- (pages:: tags in go)",
			urls: []string{"/posts/first/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "query", "--source", root, "--format", "json", tt.expr)
			require.NoError(t, err)

			var views []recordView
			require.NoError(t, json.Unmarshal([]byte(out), &views))

			urls := make([]string, len(views))
			for i, v := range views {
				urls[i] = v.URL
			}
			assert.ElementsMatch(t, tt.urls, urls)
		})
	}
}

func TestQueryCommandTable(t *testing.T) {
	root := writeTestSite(t)

	out, _, err := execute(t, "query", "--source", root, "(pages:: tags in blog)")
	require.NoError(t, err)

	assert.Contains(t, out, "MODULE")
	assert.Contains(t, out, "/posts/first/")
	assert.Contains(t, out, "Total: 2 records")
}

func TestQueryCommandErrors(t *testing.T) {
	root := writeTestSite(t)

	_, _, err := execute(t, "query", "--source", root, "(pages:: tags go)")
	assert.ErrorIs(t, err, siteerrors.ErrQuerySyntax)

	_, _, err = execute(t, "query", "--source", root, "--format", "xml", "(pages:: tags in go)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")

	_, _, err = execute(t, "query", "--source", root)
	require.Error(t, err)
}

func TestModulesCommand(t *testing.T) {
	root := writeTestSite(t)

	out, _, err := execute(t, "modules", "--source", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "pages")
	assert.Contains(t, lines[4], "listing")

	out, _, err = execute(t, "modules", "--source", root, "--format", "json")
	require.NoError(t, err)

	var views []moduleView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 4)
	assert.Equal(t, "pages", views[0].Name)
	assert.Equal(t, 3, views[0].Records)
	assert.Equal(t, "loaded", views[0].State)
	assert.Equal(t, 1, views[3].Records)
}

func TestConfigCommand(t *testing.T) {
	root := writeTestSite(t)

	out, _, err := execute(t, "config", "--source", root)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Strata")
	assert.Contains(t, out, "(pages:: tags in go)")

	out, _, err = execute(t, "config", "--source", root, "title", "--format", "conf")
	require.NoError(t, err)
	assert.Equal(t, "Strata\n", out)

	out, _, err = execute(t, "config", "--source", root, "listings", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"go": {"query": "(pages:: tags in go)"}}`, out)

	_, _, err = execute(t, "config", "--source", root, "missing.key")
	assert.ErrorIs(t, err, siteerrors.ErrConfig)

	out, _, err = execute(t, "config", "--source", root, "--settings", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "site_config: site.conf")
	assert.Contains(t, out, "level: debug")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)

	out, _, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "strata "))
}

type fakePrompter struct {
	lines   []string
	history []string
}

func (p *fakePrompter) Prompt(string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]

	return line, nil
}

func (p *fakePrompter) AppendHistory(item string) {
	p.history = append(p.history, item)
}

func loadTestStore(t *testing.T) *store.Store {
	t.Helper()

	opts := build.Options{
		Root:       writeTestSite(t),
		Output:     "public",
		SiteConfig: "site.conf",
		ContentDir: "content",
		StaticDir:  "static",
		DataDir:    "data",
	}
	gen, err := build.NewPipeline(opts, nil).Load(context.Background())
	require.NoError(t, err)

	return gen.Store
}

func TestShell(t *testing.T) {
	s := loadTestStore(t)

	queryFormat = FormatTable
	p := &fakePrompter{lines: []string{
		":types",
		"",
		"(pages:: tags in go)",
		"(pages:: tags",
		":format xml",
		":format yaml",
		"(data:: name in Ada)",
		":show /posts/first/",
		":show /nope/",
		":quit",
		"(pages:: tags in blog)",
	}}

	var out bytes.Buffer
	require.NoError(t, shell(context.Background(), s, p, &out))

	got := out.String()
	assert.Contains(t, got, "6 records of pages, static, data, listing")
	assert.Contains(t, got, "/posts/second/")
	assert.Contains(t, got, "Total: 1 records")
	assert.Contains(t, got, "Error:")
	assert.Contains(t, got, "format must be one of: table, json, yaml")
	assert.Contains(t, got, "url: /team/ada/")
	assert.Contains(t, got, "pages /posts/first/\n  tags=blog title=First")
	assert.Contains(t, got, `no record at "/nope/"`)

	assert.Len(t, p.history, 9)
	assert.Equal(t, []string{"(pages:: tags in blog)"}, p.lines)
}

func TestShellEOF(t *testing.T) {
	s := loadTestStore(t)

	var out bytes.Buffer
	require.NoError(t, shell(context.Background(), s, &fakePrompter{}, &out))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := shell(ctx, s, &fakePrompter{lines: []string{":types"}}, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "plain",
			err:  io.ErrUnexpectedEOF,
			want: "Error: unexpected EOF",
		},
		{
			name: "cycle",
			err:  siteerrors.NewCircularDependencyError([]string{"a", "b", "a"}),
			want: "Hint: check the depends lists",
		},
		{
			name: "duplicate",
			err:  siteerrors.NewDuplicateURLError("/x/", "content/x.md"),
			want: "Hint: two records claim the same identifier",
		},
		{
			name: "config",
			err:  siteerrors.NewConfigError("output", "required"),
			want: "Hint: see strata config --settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describeError(tt.err), tt.want)
		})
	}
}

func TestChoiceValue(t *testing.T) {
	var format string
	v := newChoiceValue(&format, FormatTable, FormatTable, FormatJSON)
	assert.Equal(t, FormatTable, format)

	require.NoError(t, v.Set(" JSON "))
	assert.Equal(t, FormatJSON, format)
	assert.Equal(t, FormatJSON, v.String())

	assert.Error(t, v.Set("yaml"))
	assert.Equal(t, FormatJSON, format)
}
