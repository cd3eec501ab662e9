package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "binder",
	Short: "Packet assembly from scattered client documents",
	Long: `Binder assembles a single PDF packet from source files scattered across
a client folder, following a declarative manifest of named, ordered slots.

The pipeline includes:
  - Heuristic slot matching (folder hints, fuzzy filename words, patterns)
  - A required-content gate that aborts before any download or merge work
  - Generated separator pages between named document groups
  - DOCX bridging through a managed Gotenberg container`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.binder/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "binder home directory (default: ~/.binder)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
