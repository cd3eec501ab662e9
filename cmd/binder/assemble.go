package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/config"
	"github.com/jackzampolin/binder/internal/convert"
	"github.com/jackzampolin/binder/internal/home"
	"github.com/jackzampolin/binder/internal/index"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/packet"
	"github.com/jackzampolin/binder/internal/pdf"
	"github.com/jackzampolin/binder/internal/report"
)

var (
	assembleManifest string
	assembleClient   string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <source-dir>",
	Short: "Assemble a packet from a local folder",
	Long: `Assemble a packet from a local source folder without going through
the server.

The manifest defaults to the embedded standard packet; pass --manifest
to use a JSON or YAML manifest file instead. Slots that allow DOCX
sources need a reachable Gotenberg instance (binder gotenberg start).

The merged packet is written to ~/.binder/output/.

Examples:
  binder assemble ./clients/carolina
  binder assemble ./clients/carolina --client "Carolina"
  binder assemble ./clients/carolina --manifest custom.yaml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cm.Get()

		m, err := loadManifest(assembleManifest)
		if err != nil {
			return err
		}

		client := assembleClient
		if client == "" {
			client = filepath.Base(args[0])
		}

		converter := convert.NewGotenberg(convert.GotenbergConfig{
			BaseURL: cfg.GotenbergBaseURL(),
			Retries: cfg.Gotenberg.Retries,
			Timeout: time.Duration(cfg.Gotenberg.TimeoutSeconds) * time.Second,
			Logger:  logger,
		})

		engine := assembly.New(assembly.Config{
			Converter: converter,
			Separators: &pdf.SeparatorFactory{
				FontName: cfg.Assembly.SeparatorFont,
				FontSize: cfg.Assembly.SeparatorFontSize,
				Paper:    cfg.Assembly.SeparatorPaper,
			},
			Logger: logger,
		})

		svc := packet.NewService(packet.Config{
			Engine:     engine,
			Reporter:   report.NewSlog(logger),
			WorkRoot:   h.WorkPath(),
			OutputRoot: h.OutputPath(),
			Logger:     logger,
		})

		rep, err := svc.Run(ctx, packet.Request{Client: client, Manifest: m}, index.NewFS(args[0], logger))
		if err != nil {
			return err
		}

		return api.Output(rep)
	},
}

// loadManifest reads a manifest file, falling back to the embedded
// default when no path is given.
func loadManifest(path string) (*manifest.Manifest, error) {
	if path == "" {
		return manifest.Default()
	}
	return manifest.Load(path)
}

func init() {
	assembleCmd.Flags().StringVar(&assembleManifest, "manifest", "", "manifest file (JSON or YAML; default: embedded standard packet)")
	assembleCmd.Flags().StringVar(&assembleClient, "client", "", "client label for the run (default: source directory name)")

	rootCmd.AddCommand(assembleCmd)
}
