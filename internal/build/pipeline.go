// Package build runs one build generation over a site tree: it parses the
// site config, resolves and loads the content modules into a fresh store,
// then emits the output directory.
package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/strata/internal/conftree"
	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
	"github.com/conneroisu/strata/internal/modules"
	"github.com/conneroisu/strata/internal/modules/builtin"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/store"
)

// Options configures a pipeline. Relative directories are resolved against
// Root.
type Options struct {
	Root        string
	Output      string
	SiteConfig  string
	ContentDir  string
	StaticDir   string
	DataDir     string
	IndentWidth int
	Exclude     []string
	// BaseURL overrides the site config's base_url.
	BaseURL string
	// Clean removes the output directory before emitting.
	Clean    bool
	Renderer Renderer
	// Modules are registered after the enabled built-in modules.
	Modules []modules.Module
}

// Generation holds the per-build objects of one load.
type Generation struct {
	ID       uuid.UUID
	Site     *conftree.Tree
	Registry *modules.Registry
	Store    *store.Store
	Order    []*modules.Descriptor
}

// Report summarizes a finished build.
type Report struct {
	Generation *Generation
	Records    int
	Dynamic    int
	Written    []string
	Unchanged  int
	// Phases maps phase names (config, load, emit) to their durations.
	Phases   map[string]time.Duration
	Duration time.Duration
}

// Callback is called after every Run, successful or not.
type Callback func(report *Report, err error)

// Pipeline runs build generations. Every Load or Run starts from a fresh
// config tree, registry and store, so a pipeline can be reused by the
// watcher.
type Pipeline struct {
	opts      Options
	logger    logging.Logger
	callbacks []Callback
}

// NewPipeline returns a pipeline for opts. A nil logger discards output.
func NewPipeline(opts Options, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	return &Pipeline{opts: opts, logger: logger.WithComponent("build")}
}

// AddCallback registers fn to run after every build.
func (p *Pipeline) AddCallback(fn Callback) {
	p.callbacks = append(p.callbacks, fn)
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

func (p *Pipeline) path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(p.opts.Root, rel)
}

// LoadSite parses the site config with its parents. A missing site config
// yields an empty tree.
func (p *Pipeline) LoadSite(ctx context.Context) (*conftree.Tree, error) {
	if p.opts.SiteConfig == "" {
		return conftree.Parse("site", nil)
	}

	file := p.path(p.opts.SiteConfig)
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		p.logger.Info(ctx, "No site config, using defaults", "file", file)

		return conftree.Parse("site", nil)
	}

	return conftree.NewLoader(filepath.Dir(file), p.opts.IndentWidth).LoadFile(file)
}

// Load runs the config and load phases and returns the populated
// generation. Emission is left to the caller.
func (p *Pipeline) Load(ctx context.Context) (*Generation, error) {
	gen, _, err := p.load(ctx, map[string]time.Duration{})

	return gen, err
}

func (p *Pipeline) load(ctx context.Context, phases map[string]time.Duration) (*Generation, logging.Logger, error) {
	gen := &Generation{ID: uuid.New()}
	logger := p.logger.With("generation", gen.ID.String())

	op := logging.StartOperation(logger, "config")
	site, err := p.LoadSite(ctx)
	if err != nil {
		phases["config"] = op.EndWithError(ctx, err)

		return nil, logger, err
	}
	phases["config"] = op.End(ctx)
	gen.Site = site

	if err := ctx.Err(); err != nil {
		return nil, logger, err
	}

	sc, err := scanner.New(p.opts.Root, p.opts.Exclude)
	if err != nil {
		return nil, logger, err
	}

	env := builtin.Env{
		Scanner:    sc,
		Site:       site,
		ContentDir: p.opts.ContentDir,
		StaticDir:  p.opts.StaticDir,
		DataDir:    p.opts.DataDir,
		Logger:     logger,
	}

	gen.Registry = modules.NewRegistry(logger)
	for _, m := range append(builtin.Enabled(env), p.opts.Modules...) {
		if err := gen.Registry.Register(m); err != nil {
			return nil, logger, err
		}
	}

	op = logging.StartOperation(logger, "load")
	gen.Store = store.New()
	gen.Order, err = gen.Registry.ResolveAndLoad(ctx, gen.Store)
	if err != nil {
		phases["load"] = op.EndWithError(ctx, err)

		return nil, logger, err
	}
	phases["load"] = op.End(ctx)

	return gen, logger, nil
}

// Run executes one full build generation.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Phases: map[string]time.Duration{}}

	err := p.run(ctx, report)
	report.Duration = time.Since(start)

	for _, fn := range p.callbacks {
		fn(report, err)
	}

	if err != nil {
		return nil, err
	}

	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	if p.opts.Output == "" {
		return siteerrors.NewConfigError("output", "output directory is required")
	}

	gen, logger, err := p.load(ctx, report.Phases)
	if err != nil {
		return err
	}
	report.Generation = gen

	stats := gen.Store.Stats()
	report.Records = stats.All
	report.Dynamic = stats.Dynamic

	if err := ctx.Err(); err != nil {
		return err
	}

	output := p.path(p.opts.Output)
	if p.opts.Clean {
		if err := os.RemoveAll(output); err != nil {
			return siteerrors.NewIOError(output, "cannot clean output directory", err)
		}
	}

	emitter := NewGenerator(output, p.siteInfo(gen.Site), p.opts.Renderer, logger)

	op := logging.StartOperation(logger, "emit")
	res, err := emitter.Emit(ctx, gen.Store)
	if err != nil {
		report.Phases["emit"] = op.EndWithError(ctx, err)

		return err
	}
	report.Phases["emit"] = op.End(ctx)

	report.Written = res.Written
	report.Unchanged = res.Unchanged

	logger.Info(ctx, "Build finished",
		"records", report.Records,
		"dynamic", report.Dynamic,
		"written", len(report.Written),
		"unchanged", report.Unchanged)

	return nil
}

func (p *Pipeline) siteInfo(site *conftree.Tree) SiteInfo {
	info := SiteInfo{BaseURL: p.opts.BaseURL}
	if site == nil {
		return info
	}

	info.Title = site.String("title")
	if info.BaseURL == "" {
		info.BaseURL = site.String("base_url")
	}

	return info
}
