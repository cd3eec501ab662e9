package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Binder server via HTTP.

These commands require a running server (binder serve).
Use --server to specify a custom server URL.

Examples:
  binder api health                       # Check server health
  binder api packets assemble C ./src     # Assemble a packet synchronously
  binder api packets enqueue C ./src      # Enqueue an assembly job
  binder api jobs list                    # List all jobs
  binder api jobs get <id>                # Get a specific job`,
}

var packetsCmd = &cobra.Command{
	Use:   "packets",
	Short: "Packet assembly commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

var manifestsCmd = &cobra.Command{
	Use:   "manifests",
	Short: "Manifest commands",
}

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "OCR page extraction commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// System endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.VersionEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SettingsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	// Packets as subcommand group
	packetsCmd.AddCommand((&endpoints.AssemblePacketEndpoint{}).Command(getServerURL))
	packetsCmd.AddCommand((&endpoints.EnqueuePacketEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	jobsCmd.AddCommand((&endpoints.ListJobsEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.GetJobEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.DeleteJobEndpoint{}).Command(getServerURL))

	// Manifests as subcommand group
	manifestsCmd.AddCommand((&endpoints.DefaultManifestEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.ValidateManifestEndpoint{}).Command(getServerURL))

	// OCR as subcommand group
	ocrCmd.AddCommand((&endpoints.OCRExtractEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(packetsCmd)
	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(manifestsCmd)
	apiCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(apiCmd)
}
