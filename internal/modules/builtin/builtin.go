// Package builtin provides strata's content modules: pages, static, data
// and listing. Each is configured by its block under "modules:" in the site
// config, for example:
//
//	modules:
//	  pages:
//	    drafts: true
//	  data:
//	    enabled: false
//	  listing:
//	    depends: data
package builtin

import (
	"fmt"
	"slices"

	"github.com/conneroisu/strata/internal/conftree"
	"github.com/conneroisu/strata/internal/logging"
	"github.com/conneroisu/strata/internal/modules"
	"github.com/conneroisu/strata/internal/scanner"
)

// Env is what the built-in modules read during a build.
type Env struct {
	Scanner    *scanner.Scanner
	Site       *conftree.Tree
	ContentDir string
	StaticDir  string
	DataDir    string
	Logger     logging.Logger
}

func (e Env) logger(module string) logging.Logger {
	if e.Logger == nil {
		return logging.Nop()
	}

	return e.Logger.WithComponent(module)
}

// setting returns the config value at modules.<module>.<key>.
func (e Env) setting(module, key string) (conftree.Value, bool) {
	if e.Site == nil {
		return conftree.Value{}, false
	}

	return e.Site.Path("modules", module, key)
}

func (e Env) boolSetting(module, key string, fallback bool) bool {
	v, ok := e.setting(module, key)
	if !ok {
		return fallback
	}

	if b, ok := v.AsBool(); ok {
		return b
	}

	return fallback
}

// dependencies merges a module's built-in dependencies with the ones the
// site config adds under modules.<module>.depends.
func (e Env) dependencies(module string, builtin ...string) []string {
	deps := slices.Clone(builtin)
	if v, ok := e.setting(module, "depends"); ok {
		for _, d := range v.Strings() {
			if d != "" && !slices.Contains(deps, d) {
				deps = append(deps, d)
			}
		}
	}

	return deps
}

// Names lists the built-in modules in registration order.
var Names = []string{PagesName, StaticName, DataName, ListingName}

// New returns the built-in module called name.
func New(name string, env Env) (modules.Module, error) {
	switch name {
	case PagesName:
		return NewPages(env), nil
	case StaticName:
		return NewStatic(env), nil
	case DataName:
		return NewData(env), nil
	case ListingName:
		return NewListing(env), nil
	default:
		return nil, fmt.Errorf("unknown built-in module %q", name)
	}
}

// Enabled returns every built-in module not switched off with
// modules.<name>.enabled: false, in registration order.
func Enabled(env Env) []modules.Module {
	var out []modules.Module
	for _, name := range Names {
		if !env.boolSetting(name, "enabled", true) {
			continue
		}

		m, _ := New(name, env)
		out = append(out, m)
	}

	return out
}
