package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/packages/config"
	"github.com/caseflow/caseflow/packages/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
	flagVerbose  bool

	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "caseflow",
	Short: "Declarative HTTP API testing",
	Long: `caseflow runs YAML-described API test suites: each case sends a request,
extracts values into shared variables, and validates the response. Cases run
in order, so a login case can feed its token to everything after it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}

		fileCfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = fileCfg

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") || level == "" {
			level = flagLogLevel
		}
		if flagVerbose {
			level = "debug"
		}
		log = logging.New(logging.Options{Level: level, NoColor: flagNoColor})
		return nil
	},
}

// Execute runs the CLI. Errors are printed here since cobra's own error
// output is silenced.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", envOr("CASEFLOW_CONFIG", ""), "config file path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("CASEFLOW_LOG_LEVEL", "warning"), "log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
