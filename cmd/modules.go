package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/modules"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Aliases: []string{"m"},
	Short:   "Show module load order and record counts",
	Long: `Resolve the module dependency graph, load every module and print them in
load order with their dependencies and the number of records each produced.
A dependency cycle is reported with the full cycle path.

Examples:
  strata modules
  strata modules --format yaml`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

var modulesFormat string

func init() {
	rootCmd.AddCommand(modulesCmd)

	addFormatFlag(modulesCmd, &modulesFormat, FormatTable, FormatTable, FormatJSON, FormatYAML)
}

type moduleView struct {
	Name         string   `json:"name" yaml:"name"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	Dependents   []string `json:"dependents" yaml:"dependents"`
	State        string   `json:"state" yaml:"state"`
	Records      int      `json:"records" yaml:"records"`
	Duration     string   `json:"duration" yaml:"duration"`
}

func viewModules(reg *modules.Registry, order []*modules.Descriptor) ([]moduleView, error) {
	views := make([]moduleView, 0, len(order))
	for _, d := range order {
		count, err := d.RecordCount()
		if err != nil {
			return nil, err
		}
		took, err := d.Duration()
		if err != nil {
			return nil, err
		}

		views = append(views, moduleView{
			Name:         d.Name(),
			Dependencies: d.Dependencies(),
			Dependents:   reg.Dependents(d.Name()),
			State:        d.State().String(),
			Records:      count,
			Duration:     took.Round(time.Microsecond).String(),
		})
	}

	return views, nil
}

func runModules(cmd *cobra.Command, _ []string) error {
	p, _, _, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	gen, err := p.Load(cmd.Context())
	if err != nil {
		return err
	}

	views, err := viewModules(gen.Registry, gen.Order)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	switch modulesFormat {
	case FormatJSON:
		return writeJSON(w, views)
	case FormatYAML:
		return writeYAML(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMODULE\tDEPENDS ON\tRECORDS\tDURATION")
	for i, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, v.Name, dash(strings.Join(v.Dependencies, ", ")), v.Records, v.Duration)
	}

	return tw.Flush()
}
