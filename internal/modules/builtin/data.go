package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// DataName is the record type of data entries.
const DataName = "data"

// Data loads JSON files, comments and trailing commas allowed. A top-level
// array yields one record per object at /<file>/<id>/; a top-level object
// yields a single record at /<file>/.
type Data struct {
	env  Env
	deps []string
}

// NewData returns the data module.
func NewData(env Env) *Data {
	return &Data{env: env, deps: env.dependencies(DataName)}
}

func (m *Data) Name() string           { return DataName }
func (m *Data) Dependencies() []string { return append([]string(nil), m.deps...) }

func (m *Data) Load(ctx context.Context, s *store.Store) error {
	files, err := m.env.Scanner.Scan(ctx, m.env.DataDir, ".json")
	if err != nil {
		return err
	}

	for _, f := range files {
		records, err := dataRecords(f)
		if err != nil {
			return err
		}

		for _, rec := range records {
			if err := s.Register(rec); err != nil {
				return err
			}
		}
	}

	return nil
}

func dataRecords(f scanner.File) ([]*types.Record, error) {
	standard, err := hujson.Standardize(f.Content)
	if err != nil {
		return nil, siteerrors.NewFormatError(f.Path, 0, "invalid JSON data").WithCause(err)
	}

	var doc interface{}
	if err := json.Unmarshal(standard, &doc); err != nil {
		return nil, siteerrors.NewFormatError(f.Path, 0, "invalid JSON data").WithCause(err)
	}

	stem := strings.TrimSuffix(f.Rel, path.Ext(f.Rel))
	base := func() *types.Record {
		return &types.Record{
			Module:  DataName,
			Fields:  types.Fields{"file": types.Text(stem)},
			Source:  f.Abs,
			Hash:    f.Hash,
			LastMod: f.ModTime,
		}
	}

	switch v := doc.(type) {
	case map[string]interface{}:
		rec := base()
		rec.Path = f.Path
		rec.URL = "/" + stem + "/"
		if id, ok := v["id"]; ok {
			rec.ID = scalarString(id)
		}
		if err := fillFields(rec, v); err != nil {
			return nil, siteerrors.NewFormatError(f.Path, 0, "invalid data entry").WithCause(err)
		}

		return []*types.Record{rec}, nil
	case []interface{}:
		records := make([]*types.Record, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, siteerrors.NewFormatError(f.Path, 0,
					fmt.Sprintf("entry %d is not an object", i))
			}

			rec := base()
			key := strconv.Itoa(i)
			if id, ok := obj["id"]; ok {
				rec.ID = scalarString(id)
				key = rec.ID
			}
			rec.URL = "/" + stem + "/" + key + "/"
			rec.Fields["index"] = types.Int(int64(i))

			if err := fillFields(rec, obj); err != nil {
				return nil, siteerrors.NewFormatError(f.Path, 0,
					fmt.Sprintf("invalid data entry %d", i)).WithCause(err)
			}
			records = append(records, rec)
		}

		return records, nil
	default:
		return nil, siteerrors.NewFormatError(f.Path, 0, "data file must hold an object or an array of objects")
	}
}

func fillFields(rec *types.Record, obj map[string]interface{}) error {
	for key, raw := range obj {
		if key == "id" {
			continue
		}

		value, err := jsonField(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		rec.Fields[strings.ToLower(key)] = value
	}

	return nil
}

// jsonField converts a decoded JSON value into a typed field. Nested objects
// are kept as compact JSON text.
func jsonField(raw interface{}) (types.FieldValue, error) {
	switch v := raw.(type) {
	case nil:
		return types.Text(""), nil
	case string:
		return types.Text(v), nil
	case bool:
		return types.Bool(v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return types.Int(int64(v)), nil
		}

		return types.Float(v), nil
	case []interface{}:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = scalarString(item)
		}

		return types.List(items...), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return types.FieldValue{}, err
		}

		return types.Text(string(b)), nil
	}
}

func scalarString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(b)
	}
}
