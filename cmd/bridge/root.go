package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	projectDir string
	cfgFile    string
	output     string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge Iteration Engine CLI",
	Long: `bridge drives the Bridge Iteration Engine: a multi-phase,
model-driven iteration loop (JACK_IN -> ITERATING -> RESEARCHING ->
EXPLORING -> FINALIZING -> JACKED_OUT) over a sprint plan, with a
Vision Registry, a Context Query Facade, and a multi-pass reviewer
behind it.

Core Commands:
  run      Start or resume a bridge run
  state    Inspect or edit a bridge's persisted state document
  doctor   Check the health of a project's bridge installation
  version  Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "Project directory (a .bridge project root, or a fresh tree to initialize)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Project config overlay (default: <project-dir>/.bridge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug-level) logging")
}

// newLogger builds the process-wide logger: human-readable and
// debug-level under --verbose, JSON and info-level otherwise, matching
// the two zap presets the library itself ships.
func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
