package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/conftree"
	siteerrors "github.com/conneroisu/strata/internal/errors"
)

// FormatConf prints the site tree back in the config language.
const FormatConf = "conf"

var configCmd = &cobra.Command{
	Use:     "config [key.path]",
	Aliases: []string{"c"},
	Short:   "Print the merged site config or the resolved settings",
	Long: `Parse the site config, merge it over its parent chain and print the
result. With a dotted key path only that value is printed. With --settings the
resolved command settings (flags, environment, settings file and defaults) are
printed instead.

Examples:
  strata config                   # Merged tree as YAML
  strata config modules.pages     # One subtree
  strata config --format conf     # Back in the config language
  strata config --settings        # Resolved settings`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

var (
	configFormat   string
	configSettings bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	addFormatFlag(configCmd, &configFormat, FormatYAML, FormatYAML, FormatJSON, FormatConf)
	configCmd.Flags().BoolVar(&configSettings, "settings", false, "print the resolved settings instead of the site config")
}

func runConfig(cmd *cobra.Command, args []string) error {
	p, cfg, _, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if configSettings {
		if configFormat == FormatJSON {
			return writeJSON(w, cfg)
		}

		return writeYAML(w, cfg)
	}

	site, err := p.LoadSite(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return writeTree(w, site.Map, cfg.IndentWidth)
	}

	value, ok := site.Lookup(args[0])
	if !ok {
		return siteerrors.NewConfigError(args[0], "no such key in "+site.Name())
	}
	if sub, ok := value.AsMap(); ok {
		return writeTree(w, sub, cfg.IndentWidth)
	}

	switch configFormat {
	case FormatJSON:
		return writeJSON(w, value.Interface())
	case FormatConf:
		_, err := fmt.Fprintln(w, value.String())
		return err
	default:
		return writeYAML(w, value)
	}
}

func writeTree(w io.Writer, m *conftree.Map, width int) error {
	switch configFormat {
	case FormatJSON:
		return writeJSON(w, m.Interface())
	case FormatConf:
		_, err := fmt.Fprint(w, conftree.Render(m, width))
		return err
	default:
		return writeYAML(w, m)
	}
}
