package builtin

import (
	"context"

	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// StaticName is the record type of static assets.
const StaticName = "static"

// Static registers every file under the static directory. Emission copies
// the file verbatim to its URL.
type Static struct {
	env  Env
	deps []string
}

// NewStatic returns the static module.
func NewStatic(env Env) *Static {
	return &Static{env: env, deps: env.dependencies(StaticName)}
}

func (m *Static) Name() string           { return StaticName }
func (m *Static) Dependencies() []string { return append([]string(nil), m.deps...) }

// Schema implements modules.SchemaProvider.
func (m *Static) Schema() types.Schema {
	return types.Schema{"source": types.FieldText, "size": types.FieldInteger}
}

func (m *Static) Load(ctx context.Context, s *store.Store) error {
	files, err := m.env.Scanner.Scan(ctx, m.env.StaticDir)
	if err != nil {
		return err
	}

	for _, f := range files {
		rec := &types.Record{
			Path:   f.Path,
			URL:    "/" + f.Rel,
			Module: StaticName,
			Fields: types.Fields{
				"source": types.Text(f.Path),
				"size":   types.Int(f.Size),
			},
			Source:  f.Abs,
			Hash:    f.Hash,
			LastMod: f.ModTime,
		}

		if err := s.Register(rec); err != nil {
			return err
		}
	}

	return nil
}
