package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsense/finsense/cmd/finsense/internal/config"
	"github.com/finsense/finsense/pkg/cli"
	"github.com/finsense/finsense/pkg/genx/modelloader"
)

var (
	// Global flags
	verbose      bool
	contextName  string
	formatOutput string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "finsense",
	Short: "Personal budgeting assistant",
	Long: `finsense - a personal budgeting assistant driven by a language model.

The assistant parses bank statements, categorizes transactions, tracks
income and checks spending against the 50/30/20 rule.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/finsense/
  Linux:   ~/.config/finsense/
  Windows: %AppData%/finsense/

Examples:
  # Create a context and make it current
  finsense config add-context personal --user alice --model gpt-4o-mini
  finsense config use-context personal

  # Import a statement and chat about it
  finsense statement import ~/Downloads/march.txt
  finsense chat --session march`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		_, err := cli.ParseFormat(formatOutput)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
	rootCmd.PersistentFlags().StringVarP(&formatOutput, "output", "o", "", "output format: yaml, json or raw")
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	modelloader.Verbose = verbose
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Reported by GetConfig so commands like 'finsense version' still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// output writes v to the command's stdout in the --output format.
func output(cmd *cobra.Command, v any) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
}
