package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/store"
)

var queryCmd = &cobra.Command{
	Use:     "query [expression]",
	Aliases: []string{"q"},
	Short:   "Evaluate a filter expression against the site content",
	Long: `Load the site into a content store and print the records matching a
filter expression. Clauses select records of one module by field values and
combine left to right with // (union), && (intersection) and -- (difference).

Examples:
  strata query '(pages:: tags in go)'
  strata query '(pages:: tags in go, web) // (data:: langs not in fr)'
  strata query '(pages:: draft not in true)' --format json
  strata query --interactive      # Shell with history`,
	Args: func(cmd *cobra.Command, args []string) error {
		if queryInteractive {
			return cobra.NoArgs(cmd, args)
		}

		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runQuery,
}

var (
	queryFormat      string
	queryInteractive bool
)

func init() {
	rootCmd.AddCommand(queryCmd)

	addFormatFlag(queryCmd, &queryFormat, FormatTable, FormatTable, FormatJSON, FormatYAML)
	queryCmd.Flags().BoolVarP(&queryInteractive, "interactive", "i", false, "start an interactive query shell")
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, _, _, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	gen, err := p.Load(cmd.Context())
	if err != nil {
		return err
	}

	if queryInteractive {
		return runShell(cmd.Context(), gen.Store, stdout(cmd))
	}

	res, err := gen.Store.Filter(args[0])
	if err != nil {
		return err
	}

	return writeRecords(stdout(cmd), queryFormat, res.Records())
}

// prompter is the part of liner.State the shell uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "strata", "query_history")
}

func runShell(ctx context.Context, s *store.Store, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(text string) []string {
		var matches []string
		for _, typ := range s.Types() {
			if candidate := "(" + typ + ":: "; strings.HasPrefix(candidate, text) {
				matches = append(matches, candidate)
			}
		}

		return matches
	})

	history := historyFile()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	err := shell(ctx, s, line, out)

	if history != "" {
		if err := os.MkdirAll(filepath.Dir(history), 0o755); err == nil {
			if f, err := os.Create(history); err == nil {
				_, _ = line.WriteHistory(f)
				f.Close()
			}
		}
	}

	return err
}

// shell reads expressions until EOF. Besides expressions it understands
// :types, :format <name>, :show <url> and :quit.
func shell(ctx context.Context, s *store.Store, p prompter, out io.Writer) error {
	format := queryFormat

	fmt.Fprintf(out, "%d records of %s. Type :quit to leave.\n", s.Len(), strings.Join(s.Types(), ", "))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := p.Prompt("strata> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)

			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		p.AppendHistory(input)

		switch command, arg, _ := strings.Cut(input, " "); command {
		case ":quit", ":q":
			return nil
		case ":types":
			fmt.Fprintln(out, strings.Join(s.Types(), "\n"))
		case ":format":
			choice := newChoiceValue(new(string), format, FormatTable, FormatJSON, FormatYAML)
			if err := choice.Set(arg); err != nil {
				fmt.Fprintln(out, "format "+err.Error())
				continue
			}
			format = choice.String()
		case ":show":
			rec, ok := s.GetByURL(strings.TrimSpace(arg))
			if !ok {
				fmt.Fprintf(out, "no record at %q\n", arg)
				continue
			}
			fmt.Fprintf(out, "%s %s\n  %s\n", rec.Module, rec.URL, fieldSummary(rec.Fields))
		default:
			res, err := s.Filter(input)
			if err != nil {
				fmt.Fprintln(out, describeError(err))
				continue
			}
			if err := writeRecords(out, format, res.Records()); err != nil {
				return err
			}
		}
	}
}
