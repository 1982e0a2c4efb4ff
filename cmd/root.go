package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/strata/internal/build"
	"github.com/conneroisu/strata/internal/config"
	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "A static-site build core with a config language and content queries",
	Long: `strata builds a static site from a source tree in one pass: it parses the
site config, loads content modules in dependency order into a content store,
and writes every page, data entry, static file and listing to the output
directory.

Quick Start:
  strata build                    Build the site in the current directory
  strata query '(pages:: tags in go)'
  strata modules                  Show module load order
  strata watch                    Rebuild on every change`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bindFlags,
}

// flagKeys maps flag names to the settings keys they override.
var flagKeys = map[string]string{
	"source":       "source",
	"output":       "output",
	"site-config":  "site_config",
	"indent-width": "indent_width",
	"base-url":     "base_url",
	"clean":        "clean",
	"debounce":     "watch.debounce",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// Execute runs the root command and prints any error with its location.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), describeError(err))
	}

	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "settings file (default is .strata.yml, can also use STRATA_CONFIG_FILE)")
	flags.StringP("source", "s", ".", "site root directory")
	flags.String("site-config", "site.conf", "site config file, relative to the source directory")
	flags.Int("indent-width", 0, "site config indent width (0 detects it)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
}

// initConfig points viper at the settings file and the environment.
func initConfig() {
	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	case os.Getenv("STRATA_CONFIG_FILE") != "":
		viper.SetConfigFile(os.Getenv("STRATA_CONFIG_FILE"))
	default:
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using settings file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds the flags of the running command to their settings
// keys, so flags set on the command line win over every other source.
func bindFlags(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = viper.BindPFlag(key, f)
	})

	return err
}

// loadSettings reads the settings and builds the logger every command
// uses. Warnings about the settings are logged.
func loadSettings(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	logger := logging.NewLogger(lc)

	for _, w := range cfg.Warnings() {
		logger.Warn(cmd.Context(), nil, w)
	}

	return cfg, logger, nil
}

func newPipeline(cmd *cobra.Command) (*build.Pipeline, *config.Config, logging.Logger, error) {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	return build.NewPipeline(cfg.BuildOptions(), logger), cfg, logger, nil
}

// describeError renders an error for the terminal with a hint for the
// common kinds.
func describeError(err error) string {
	var se *siteerrors.SiteError
	if !errors.As(err, &se) {
		return "Error: " + err.Error()
	}

	msg := "Error: " + err.Error()
	switch se.Kind {
	case siteerrors.KindCircularDependency, siteerrors.KindMissingDependency:
		msg += "\nHint: check the depends lists under modules: in the site config"
	case siteerrors.KindDuplicateID, siteerrors.KindDuplicatePath, siteerrors.KindDuplicateURL:
		msg += "\nHint: two records claim the same identifier; set a distinct id or url in front matter"
	case siteerrors.KindConfig:
		msg += "\nHint: see strata config --settings"
	}

	return msg
}

func stdout(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
