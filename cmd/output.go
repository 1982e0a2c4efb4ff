package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/strata/internal/types"
)

// recordView is the serialized form of a record.
type recordView struct {
	ID      string                 `json:"id,omitempty" yaml:"id,omitempty"`
	URL     string                 `json:"url" yaml:"url"`
	Path    string                 `json:"path,omitempty" yaml:"path,omitempty"`
	Module  string                 `json:"module" yaml:"module"`
	Dynamic bool                   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func viewRecord(rec *types.Record, withFields bool) recordView {
	v := recordView{
		ID:      rec.ID,
		URL:     rec.URL,
		Path:    rec.Path,
		Module:  rec.Module,
		Dynamic: rec.Dynamic,
	}

	if withFields && len(rec.Fields) > 0 {
		v.Fields = make(map[string]interface{}, len(rec.Fields))
		for name, value := range rec.Fields {
			if name == "body" {
				continue
			}
			v.Fields[name] = value.Interface()
		}
	}

	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}

	return encoder.Close()
}

// writeRecords prints records in the chosen format.
func writeRecords(w io.Writer, format string, records []*types.Record) error {
	views := make([]recordView, len(records))
	for i, rec := range records {
		views[i] = viewRecord(rec, format != FormatTable)
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, views)
	case FormatYAML:
		return writeYAML(w, views)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODULE\tID\tURL\tTITLE")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Module, dash(rec.ID), rec.URL, rec.Title())
		}
		fmt.Fprintf(tw, "\nTotal: %d records\n", len(records))

		return tw.Flush()
	}
}

// fieldSummary renders fields as sorted name=value pairs.
func fieldSummary(fields types.Fields) string {
	names := slices.Sorted(maps.Keys(fields))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == "body" {
			continue
		}
		parts = append(parts, name+"="+fields[name].String())
	}

	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
