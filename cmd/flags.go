package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatText  = "text"
)

// choiceValue is a pflag.Value that only accepts one of a fixed set of
// strings, so bad values fail during flag parsing.
type choiceValue struct {
	value   *string
	choices []string
}

var _ pflag.Value = (*choiceValue)(nil)

func newChoiceValue(p *string, def string, choices ...string) *choiceValue {
	*p = def

	return &choiceValue{value: p, choices: choices}
}

func (c *choiceValue) String() string { return *c.value }

func (c *choiceValue) Type() string { return "string" }

func (c *choiceValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(c.choices, s) {
		return fmt.Errorf("must be one of: %s", strings.Join(c.choices, ", "))
	}
	*c.value = s

	return nil
}

// addFormatFlag registers --format/-f on cmd, limited to choices.
func addFormatFlag(cmd *cobra.Command, p *string, def string, choices ...string) {
	cmd.Flags().VarP(newChoiceValue(p, def, choices...), "format", "f",
		fmt.Sprintf("output format (%s)", strings.Join(choices, "|")))
	_ = cmd.RegisterFlagCompletionFunc("format",
		func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return choices, cobra.ShellCompDirectiveNoFileComp
		})
}
