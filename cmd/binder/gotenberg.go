package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/config"
	"github.com/jackzampolin/binder/internal/convert"
)

var gotenbergCmd = &cobra.Command{
	Use:   "gotenberg",
	Short: "Manage the Gotenberg container",
	Long: `Manage the Gotenberg container lifecycle.

Gotenberg performs the DOCX to PDF conversions during packet assembly.
It runs in a Docker container; 'binder serve' manages it automatically
when gotenberg.managed is true, but these commands let you run it
standalone (for 'binder assemble') or inspect it.

Examples:
  binder gotenberg start   # Start the Gotenberg container
  binder gotenberg stop    # Stop the container
  binder gotenberg status  # Check container status
  binder gotenberg logs    # View container logs`,
}

var gotenbergStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Gotenberg container",
	Long: `Start the Gotenberg container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting Gotenberg...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start Gotenberg: %w", err)
		}

		fmt.Printf("Gotenberg is running at %s\n", mgr.URL())
		return nil
	},
}

var gotenbergStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Gotenberg container",
	Long: `Stop the Gotenberg container.

This stops the container but does not remove it. Use 'binder gotenberg
start' to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping Gotenberg...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop Gotenberg: %w", err)
		}

		fmt.Println("Gotenberg stopped")
		return nil
	},
}

var gotenbergStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Gotenberg container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case convert.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			// Try health check
			client := convert.NewGotenberg(convert.GotenbergConfig{BaseURL: mgr.URL()})
			if err := client.Healthy(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case convert.StatusStopped:
			fmt.Printf("Status: %s (use 'binder gotenberg start' to start)\n", status)
		case convert.StatusNotFound:
			fmt.Printf("Status: %s (use 'binder gotenberg start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var gotenbergLogsTail string

var gotenbergLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Gotenberg container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, gotenbergLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var gotenbergRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Gotenberg container",
	Long: `Remove the Gotenberg container.

This stops and removes the container. Gotenberg is stateless, so
nothing is lost; 'binder gotenberg start' recreates it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing Gotenberg container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Gotenberg container removed")
		return nil
	},
}

var gotenbergWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for Gotenberg to be ready",
	Long: `Wait for Gotenberg to be ready to accept conversions.

This is useful in scripts to ensure Gotenberg is fully started before
running 'binder assemble'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGotenbergManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for Gotenberg (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("Gotenberg not ready: %w", err)
		}

		fmt.Println("Gotenberg is ready")
		return nil
	},
}

func init() {
	// Add subcommands
	gotenbergCmd.AddCommand(gotenbergStartCmd)
	gotenbergCmd.AddCommand(gotenbergStopCmd)
	gotenbergCmd.AddCommand(gotenbergStatusCmd)
	gotenbergCmd.AddCommand(gotenbergLogsCmd)
	gotenbergCmd.AddCommand(gotenbergRemoveCmd)
	gotenbergCmd.AddCommand(gotenbergWaitCmd)

	// Logs flags
	gotenbergLogsCmd.Flags().StringVar(&gotenbergLogsTail, "tail", "100", "Number of lines to show from the end")

	// Wait flags
	gotenbergWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for Gotenberg")

	// Add to root
	rootCmd.AddCommand(gotenbergCmd)
}

// getGotenbergManager creates a DockerManager from the current config.
func getGotenbergManager() (*convert.DockerManager, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	return convert.NewDockerManager(convert.DockerConfig{
		ContainerName: cfg.Gotenberg.ContainerName,
		Image:         cfg.Gotenberg.Image,
		HostPort:      cfg.Gotenberg.Port,
	})
}
