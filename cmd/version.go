package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for strata: the version, git commit,
build time, Go version and target platform.

Examples:
  strata version                  # Full version information
  strata version --short          # Version and short commit only
  strata version --format json    # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addFormatFlag(versionCmd, &versionFormat, FormatText, FormatText, FormatJSON, FormatYAML)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "show the short version only")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.Get()
	w := stdout(cmd)

	switch versionFormat {
	case FormatJSON:
		return writeJSON(w, info)
	case FormatYAML:
		return writeYAML(w, info)
	}

	if versionShort {
		_, err := fmt.Fprintln(w, "strata "+info.Short())
		return err
	}

	_, err := fmt.Fprintln(w, info.String())

	return err
}
