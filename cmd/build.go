package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/build"
	"github.com/conneroisu/strata/internal/modules"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site into the output directory",
	Long: `Run one build generation: parse the site config, load every enabled
module into a fresh content store and write the output directory. Files whose
content did not change are left untouched.

Examples:
  strata build                    # Build into ./public
  strata build --output dist      # Build into ./dist
  strata build --clean            # Remove the output directory first
  strata build --list             # Also list every written file`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var buildList bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "public", "output directory, relative to the source directory")
	buildCmd.Flags().Bool("clean", false, "remove the output directory before building")
	buildCmd.Flags().String("base-url", "", "absolute site URL; enables sitemap.xml")
	buildCmd.Flags().BoolVar(&buildList, "list", false, "list written files")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	p, _, _, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	printReport(cmd, report)

	if buildList {
		for _, file := range report.Written {
			fmt.Fprintln(stdout(cmd), "  "+file)
		}
	}

	return nil
}

func printReport(cmd *cobra.Command, report *build.Report) {
	w := stdout(cmd)

	fmt.Fprintf(w, "Build %s\n", report.Generation.ID)
	fmt.Fprintf(w, "  modules:   %s\n", strings.Join(modules.Names(report.Generation.Order), " -> "))
	fmt.Fprintf(w, "  records:   %d (%d dynamic)\n", report.Records, report.Dynamic)
	fmt.Fprintf(w, "  written:   %d\n", len(report.Written))
	fmt.Fprintf(w, "  unchanged: %d\n", report.Unchanged)

	phases := make([]string, 0, len(report.Phases))
	for _, name := range []string{"config", "load", "emit"} {
		if d, ok := report.Phases[name]; ok {
			phases = append(phases, fmt.Sprintf("%s %s", name, d.Round(time.Microsecond)))
		}
	}
	if len(phases) > 0 {
		fmt.Fprintf(w, "  phases:    %s\n", strings.Join(phases, ", "))
	}
	fmt.Fprintf(w, "  duration:  %s\n", report.Duration.Round(time.Microsecond))
}
