// Package packet orchestrates one packet run end to end: list the source
// folder, resolve slots, gate on required content, download, assemble, and
// report progress at fixed milestones.
package packet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/index"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/report"
	"github.com/jackzampolin/binder/internal/resolver"
)

// Request describes one packet run.
type Request struct {
	// Client labels the run and names the output artifact.
	Client string

	// Manifest defines the slots to fill.
	Manifest *manifest.Manifest
}

// Artifact is the result contract of a completed run.
type Artifact struct {
	// Path of the merged PDF.
	Path string `json:"path"`

	// PresenceMask marks resolved slots in manifest order.
	PresenceMask string `json:"presence_mask"`

	// MissingRequired is empty after a successful run; the gate aborts
	// otherwise. Kept for symmetry with pre-gate previews.
	MissingRequired []int `json:"missing_required"`
}

// Report carries the artifact plus the per-slot detail of how the run got
// there.
type Report struct {
	Artifact    Artifact              `json:"artifact"`
	Resolutions []resolver.Resolution `json:"resolutions"`
	Dropped     []assembly.Drop       `json:"dropped"`
}

// Service runs the packet pipeline.
type Service struct {
	resolver   *resolver.Resolver
	engine     *assembly.Engine
	reporter   report.StatusReporter
	workRoot   string
	outputRoot string
	log        *slog.Logger
}

// Config holds the collaborators for a packet service.
type Config struct {
	Resolver   *resolver.Resolver
	Engine     *assembly.Engine
	Reporter   report.StatusReporter
	WorkRoot   string
	OutputRoot string
	Logger     *slog.Logger
}

// NewService creates a packet service.
func NewService(cfg Config) *Service {
	if cfg.Reporter == nil {
		cfg.Reporter = report.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.New(cfg.Logger)
	}
	return &Service{
		resolver:   cfg.Resolver,
		engine:     cfg.Engine,
		reporter:   cfg.Reporter,
		workRoot:   cfg.WorkRoot,
		outputRoot: cfg.OutputRoot,
		log:        cfg.Logger,
	}
}

// Run executes the pipeline against one source folder. The returned error
// is a *RequiredMissingError when mandatory content is absent, or wraps
// assembly.ErrEmpty when nothing survives to merge.
func (s *Service) Run(ctx context.Context, req Request, source index.Provider) (*Report, error) {
	s.log.Info("starting packet run", "client", req.Client, "slots", req.Manifest.Len())
	s.report(ctx, req, report.StageResolving, report.PercentResolving, "")

	files, err := source.List(ctx)
	if err != nil {
		s.fail(ctx, req, fmt.Sprintf("listing source folder: %v", err))
		return nil, fmt.Errorf("listing source folder: %w", err)
	}

	resolutions := s.resolver.Resolve(req.Manifest.Slots(), files)
	mask := req.Manifest.PresenceMask(resolver.ResolvedPositions(resolutions))

	if missing := resolver.CheckRequired(resolutions); len(missing) > 0 {
		s.fail(ctx, req, fmt.Sprintf("missing required slots: %v", missing))
		return nil, &RequiredMissingError{Positions: missing, Stage: GateResolution, Mask: mask}
	}

	s.report(ctx, req, report.StageDownloading, report.PercentDownloading, "")

	workDir, err := s.prepareWorkDir(req.Client)
	if err != nil {
		s.fail(ctx, req, fmt.Sprintf("preparing working directory: %v", err))
		return nil, err
	}

	downloaded, err := s.download(ctx, resolutions, source, workDir)
	if err != nil {
		s.fail(ctx, req, err.Error())
		return nil, err
	}

	s.report(ctx, req, report.StageAssembling, report.PercentAssembling, "")

	if err := os.MkdirAll(s.outputRoot, 0755); err != nil {
		s.fail(ctx, req, fmt.Sprintf("preparing output directory: %v", err))
		return nil, fmt.Errorf("preparing output directory: %w", err)
	}
	outPath := filepath.Join(s.outputRoot, "packet_"+safeName(req.Client)+".pdf")

	result, err := s.engine.Assemble(ctx, downloaded, workDir, outPath)
	if err != nil {
		s.fail(ctx, req, fmt.Sprintf("assembling packet: %v", err))
		return nil, fmt.Errorf("assembling packet: %w", err)
	}

	if missing := requiredDrops(result.Dropped); len(missing) > 0 {
		s.fail(ctx, req, fmt.Sprintf("missing required slots: %v", missing))
		return nil, &RequiredMissingError{Positions: missing, Stage: GateAssembly, Mask: mask}
	}

	s.report(ctx, req, report.StageCompleted, report.PercentCompleted, result.Path)

	// The working directory only holds downloads and separators; the
	// artifact lives under the output root.
	if err := os.RemoveAll(workDir); err != nil {
		s.log.Warn("could not clean working directory", "dir", workDir, "error", err)
	}

	s.log.Info("finished packet run",
		"client", req.Client,
		"output", result.Path,
		"merged", len(result.Sources),
		"dropped", len(result.Dropped))

	return &Report{
		Artifact: Artifact{
			Path:            result.Path,
			PresenceMask:    mask,
			MissingRequired: []int{},
		},
		Resolutions: resolutions,
		Dropped:     result.Dropped,
	}, nil
}

// download fetches every resolved candidate into the working directory. A
// slot whose download fails is treated as missing: fatal for required
// slots, silently skipped for optional ones.
func (s *Service) download(ctx context.Context, resolutions []resolver.Resolution, source index.Provider, workDir string) ([]assembly.ResolvedFile, error) {
	var (
		files           []assembly.ResolvedFile
		missingRequired []int
	)
	for _, res := range resolutions {
		if res.Missing {
			continue
		}

		local, err := source.Fetch(ctx, res.CandidatePath, workDir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error("failed to download slot",
				"position", res.Slot.Position,
				"path", res.CandidatePath,
				"error", err)
			if res.Slot.Required {
				missingRequired = append(missingRequired, res.Slot.Position)
			}
			continue
		}

		s.log.Debug("downloaded slot",
			"position", res.Slot.Position,
			"name", res.Slot.Name,
			"local", local)
		files = append(files, assembly.ResolvedFile{Slot: res.Slot, LocalPath: local})
	}

	if len(missingRequired) > 0 {
		return nil, &RequiredMissingError{Positions: missingRequired, Stage: GateDownload}
	}
	return files, nil
}

// prepareWorkDir creates a fresh, exclusively-owned directory for this
// run. Any leftover content from an earlier run at the same path is
// removed first so stale files cannot bleed into the assembly.
func (s *Service) prepareWorkDir(client string) (string, error) {
	dir := filepath.Join(s.workRoot, safeName(client)+"-"+uuid.NewString()[:8])
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("cleaning working directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating working directory: %w", err)
	}
	return dir, nil
}

func (s *Service) report(ctx context.Context, req Request, stage string, percent int, message string) {
	s.reporter.Report(ctx, report.Update{
		Client:  req.Client,
		Stage:   stage,
		Percent: percent,
		Message: message,
	})
}

func (s *Service) fail(ctx context.Context, req Request, message string) {
	s.reporter.Report(ctx, report.Update{
		Client:  req.Client,
		Stage:   report.StageError,
		Message: message,
	})
}

// requiredDrops extracts the positions of required slots lost during the
// assembly fold, in drop order.
func requiredDrops(drops []assembly.Drop) []int {
	var positions []int
	for _, d := range drops {
		if d.Slot.Required {
			positions = append(positions, d.Slot.Position)
		}
	}
	return positions
}

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_")

// safeName makes a client name usable as a file-system component.
func safeName(client string) string {
	return nameReplacer.Replace(client)
}
