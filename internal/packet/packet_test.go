package packet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/pdf"
	"github.com/jackzampolin/binder/internal/report"
	"github.com/jackzampolin/binder/internal/resolver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves an in-memory file tree.
type fakeSource struct {
	files   map[string][]byte
	failOn  map[string]bool
	fetched []string
}

func (f *fakeSource) List(context.Context) ([]string, error) {
	var rels []string
	for rel := range f.files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels, nil
}

func (f *fakeSource) Fetch(_ context.Context, rel, destDir string) (string, error) {
	if f.failOn[rel] {
		return "", errors.New("injected download failure")
	}
	data, ok := f.files[rel]
	if !ok {
		return "", fmt.Errorf("no such file: %s", rel)
	}
	local := filepath.Join(destDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(local, data, 0644); err != nil {
		return "", err
	}
	f.fetched = append(f.fetched, rel)
	return local, nil
}

// failingConverter rejects every conversion.
type failingConverter struct{}

func (failingConverter) Convert(context.Context, string) (string, error) {
	return "", errors.New("injected conversion failure")
}

// failingSeparators rejects every separator request.
type failingSeparators struct{}

func (failingSeparators) Make(string, string) error {
	return errors.New("injected separator failure")
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := pdf.NewSeparatorFactory().Make("fixture", p); err != nil {
		t.Fatalf("building fixture PDF: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("reading fixture PDF: %v", err)
	}
	return data
}

func slot(pos int, group string, required bool, spec manifest.MatchSpec) manifest.Slot {
	return manifest.Slot{Position: pos, Name: group, Required: required, Match: spec}
}

func buildManifest(t *testing.T, slots ...manifest.Slot) *manifest.Manifest {
	t.Helper()
	m, err := manifest.New("test", slots)
	if err != nil {
		t.Fatalf("building manifest: %v", err)
	}
	return m
}

type serviceConfig struct {
	converter  assembly.Converter
	separators assembly.SeparatorFactory
}

func newService(t *testing.T, rec *report.Recording, cfg serviceConfig) (*Service, string, string) {
	t.Helper()
	if cfg.separators == nil {
		cfg.separators = pdf.NewSeparatorFactory()
	}
	workRoot := filepath.Join(t.TempDir(), "work")
	outputRoot := filepath.Join(t.TempDir(), "output")

	engine := assembly.New(assembly.Config{
		Converter:  cfg.converter,
		Separators: cfg.separators,
		Logger:     discardLogger(),
	})
	svc := NewService(Config{
		Resolver:   resolver.New(discardLogger()),
		Engine:     engine,
		Reporter:   rec,
		WorkRoot:   workRoot,
		OutputRoot: outputRoot,
		Logger:     discardLogger(),
	})
	return svc, workRoot, outputRoot
}

func TestRunHappyPath(t *testing.T) {
	fixture := pdfBytes(t)
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf": fixture,
		"evidence/declaration.pdf":    fixture,
	}}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", true, manifest.MatchSpec{FolderHint: "evidence"}),
	)

	rec := report.NewRecording()
	svc, workRoot, outputRoot := newService(t, rec, serviceConfig{})

	rep, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := filepath.Join(outputRoot, "packet_Jane_Doe.pdf")
	if rep.Artifact.Path != want {
		t.Errorf("artifact path = %q, want %q", rep.Artifact.Path, want)
	}
	if rep.Artifact.PresenceMask != "11" {
		t.Errorf("presence mask = %q, want 11", rep.Artifact.PresenceMask)
	}
	if len(rep.Artifact.MissingRequired) != 0 {
		t.Errorf("missing required = %v, want empty", rep.Artifact.MissingRequired)
	}
	if len(rep.Dropped) != 0 {
		t.Errorf("dropped = %v, want none", rep.Dropped)
	}

	// Two groups: separator + file, separator + file.
	n, err := pdf.PageCount(rep.Artifact.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 4 {
		t.Errorf("artifact pages = %d, want 4", n)
	}

	wantStages := []string{
		report.StageResolving,
		report.StageDownloading,
		report.StageAssembling,
		report.StageCompleted,
	}
	stages := rec.Stages()
	if len(stages) != len(wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}
	for i := range wantStages {
		if stages[i] != wantStages[i] {
			t.Errorf("stages[%d] = %q, want %q", i, stages[i], wantStages[i])
		}
	}

	// The run's working directory is gone once the artifact is written.
	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatalf("reading work root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("work root still has %d entries", len(entries))
	}
}

func TestRunGateAbortsBeforeDownload(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf": pdfBytes(t),
	}}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Filed Copy", true, manifest.MatchSpec{FolderHint: "filed"}),
	)

	rec := report.NewRecording()
	svc, _, outputRoot := newService(t, rec, serviceConfig{})

	_, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)

	var missing *RequiredMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Run() error = %v, want *RequiredMissingError", err)
	}
	if missing.Stage != GateResolution {
		t.Errorf("stage = %q, want %q", missing.Stage, GateResolution)
	}
	if len(missing.Positions) != 1 || missing.Positions[0] != 2 {
		t.Errorf("positions = %v, want [2]", missing.Positions)
	}
	if missing.Mask != "10" {
		t.Errorf("mask = %q, want 10", missing.Mask)
	}

	if len(source.fetched) != 0 {
		t.Errorf("downloads before gate = %v, want none", source.fetched)
	}
	if _, err := os.Stat(filepath.Join(outputRoot, "packet_Jane_Doe.pdf")); !os.IsNotExist(err) {
		t.Error("artifact exists despite gate failure")
	}

	stages := rec.Stages()
	if stages[len(stages)-1] != report.StageError {
		t.Errorf("last stage = %q, want %q", stages[len(stages)-1], report.StageError)
	}
}

func TestRunOptionalMissingStaysSilent(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf": pdfBytes(t),
	}}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", false, manifest.MatchSpec{FolderHint: "evidence"}),
	)

	rec := report.NewRecording()
	svc, _, _ := newService(t, rec, serviceConfig{})

	rep, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)
	if err != nil {
		t.Fatalf("Run() error = %v, optional slots must not gate", err)
	}
	if rep.Artifact.PresenceMask != "10" {
		t.Errorf("presence mask = %q, want 10", rep.Artifact.PresenceMask)
	}

	n, err := pdf.PageCount(rep.Artifact.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("artifact pages = %d, want 2 (separator + file)", n)
	}
}

func TestRunRequiredDownloadFailureGates(t *testing.T) {
	fixture := pdfBytes(t)
	source := &fakeSource{
		files: map[string][]byte{
			"uscis documents/receipt.pdf": fixture,
			"evidence/declaration.pdf":    fixture,
		},
		failOn: map[string]bool{"evidence/declaration.pdf": true},
	}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", true, manifest.MatchSpec{FolderHint: "evidence"}),
	)

	svc, _, _ := newService(t, report.NewRecording(), serviceConfig{})

	_, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)

	var missing *RequiredMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Run() error = %v, want *RequiredMissingError", err)
	}
	if missing.Stage != GateDownload {
		t.Errorf("stage = %q, want %q", missing.Stage, GateDownload)
	}
	if len(missing.Positions) != 1 || missing.Positions[0] != 2 {
		t.Errorf("positions = %v, want [2]", missing.Positions)
	}
}

func TestRunOptionalDownloadFailureContinues(t *testing.T) {
	fixture := pdfBytes(t)
	source := &fakeSource{
		files: map[string][]byte{
			"uscis documents/receipt.pdf": fixture,
			"evidence/declaration.pdf":    fixture,
		},
		failOn: map[string]bool{"evidence/declaration.pdf": true},
	}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", false, manifest.MatchSpec{FolderHint: "evidence"}),
	)

	svc, _, _ := newService(t, report.NewRecording(), serviceConfig{})

	rep, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)
	if err != nil {
		t.Fatalf("Run() error = %v, optional download failures must not gate", err)
	}

	// Resolution succeeded for both, so the mask still reads 11; the
	// artifact simply lacks the undownloadable file.
	if rep.Artifact.PresenceMask != "11" {
		t.Errorf("presence mask = %q, want 11", rep.Artifact.PresenceMask)
	}
	n, err := pdf.PageCount(rep.Artifact.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("artifact pages = %d, want 2", n)
	}
}

func TestRunRequiredConversionDropGates(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf":    pdfBytes(t),
		"evidence/declaration 2024.docx": []byte("docx bytes"),
	}}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", true, manifest.MatchSpec{FolderHint: "evidence", AllowDocx: true}),
	)

	svc, _, _ := newService(t, report.NewRecording(), serviceConfig{converter: failingConverter{}})

	_, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)

	var missing *RequiredMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Run() error = %v, want *RequiredMissingError", err)
	}
	if missing.Stage != GateAssembly {
		t.Errorf("stage = %q, want %q", missing.Stage, GateAssembly)
	}
}

func TestRunOptionalConversionDropSucceeds(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf":    pdfBytes(t),
		"evidence/declaration 2024.docx": []byte("docx bytes"),
	}}

	m := buildManifest(t,
		slot(1, "USCIS Documents", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "Evidence", false, manifest.MatchSpec{FolderHint: "evidence", AllowDocx: true}),
	)

	svc, _, _ := newService(t, report.NewRecording(), serviceConfig{converter: failingConverter{}})

	rep, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)
	if err != nil {
		t.Fatalf("Run() error = %v, optional drops must not gate", err)
	}
	if len(rep.Dropped) != 1 {
		t.Fatalf("dropped = %v, want one entry", rep.Dropped)
	}
	if rep.Dropped[0].Slot.Position != 2 {
		t.Errorf("dropped position = %d, want 2", rep.Dropped[0].Slot.Position)
	}
}

func TestRunNothingToMerge(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"misc/notes.txt": []byte("not matchable"),
	}}

	m := buildManifest(t,
		slot(1, "Evidence", false, manifest.MatchSpec{FolderHint: "evidence"}),
	)

	svc, _, _ := newService(t, report.NewRecording(), serviceConfig{separators: failingSeparators{}})

	_, err := svc.Run(context.Background(), Request{Client: "Jane Doe", Manifest: m}, source)
	if !errors.Is(err, assembly.ErrEmpty) {
		t.Errorf("Run() error = %v, want assembly.ErrEmpty", err)
	}
}
