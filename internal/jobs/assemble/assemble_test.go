package assemble

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/packet"
	"github.com/jackzampolin/binder/internal/pdf"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves an in-memory file tree as an index provider.
type fakeSource struct {
	files map[string][]byte
}

func (s *fakeSource) List(ctx context.Context) ([]string, error) {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *fakeSource) Fetch(ctx context.Context, relPath, destDir string) (string, error) {
	data, ok := s.files[relPath]
	if !ok {
		return "", fmt.Errorf("no such file: %s", relPath)
	}
	local := filepath.Join(destDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(local, data, 0644); err != nil {
		return "", err
	}
	return local, nil
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := pdf.NewSeparatorFactory().Make("fixture", p); err != nil {
		t.Fatalf("making fixture: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

func buildManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	man, err := manifest.New("test packet", []manifest.Slot{
		{
			Position: 1,
			Name:     "USCIS Documents",
			Required: true,
			Match:    manifest.MatchSpec{FolderHint: "uscis"},
		},
	})
	if err != nil {
		t.Fatalf("building manifest: %v", err)
	}
	return man
}

func TestConfigValidate(t *testing.T) {
	man := buildManifest(t)
	source := &fakeSource{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing client", Config{Manifest: man, Source: source}},
		{"missing manifest", Config{Client: "Jane", Source: source}},
		{"missing source", Config{Client: "Jane", Manifest: man}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestExecuteWithoutDeps(t *testing.T) {
	job, err := New(Config{Client: "Jane", Manifest: buildManifest(t), Source: &fakeSource{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := job.Execute(context.Background()); err == nil {
		t.Error("Execute() succeeded without packet service, want error")
	}
}

func TestExecuteAssemblesPacket(t *testing.T) {
	source := &fakeSource{files: map[string][]byte{
		"uscis documents/receipt.pdf": pdfBytes(t),
	}}

	outputRoot := t.TempDir()
	svc := packet.NewService(packet.Config{
		Engine:     assembly.New(assembly.Config{Logger: testLogger()}),
		WorkRoot:   t.TempDir(),
		OutputRoot: outputRoot,
		Logger:     testLogger(),
	})

	job, err := New(Config{Client: "Jane Doe", Manifest: buildManifest(t), Source: source})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := jobs.ContextWithDeps(context.Background(), jobs.Dependencies{Packets: svc})
	if err := job.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	report := job.Report()
	if report == nil {
		t.Fatal("Report() is nil after successful run")
	}
	wantPath := filepath.Join(outputRoot, "packet_Jane_Doe.pdf")
	if report.Artifact.Path != wantPath {
		t.Errorf("Artifact.Path = %q, want %q", report.Artifact.Path, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("packet not written: %v", err)
	}

	status, err := job.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status["client"] != "Jane Doe" {
		t.Errorf("status client = %s, want Jane Doe", status["client"])
	}
	if status["output_path"] != wantPath {
		t.Errorf("status output_path = %s, want %s", status["output_path"], wantPath)
	}
	if status["presence_mask"] != "1" {
		t.Errorf("status presence_mask = %s, want 1", status["presence_mask"])
	}
}

func TestExecuteGateFailureSurfaces(t *testing.T) {
	// Empty source: the required slot cannot resolve
	source := &fakeSource{files: map[string][]byte{}}

	svc := packet.NewService(packet.Config{
		Engine:     assembly.New(assembly.Config{Logger: testLogger()}),
		WorkRoot:   t.TempDir(),
		OutputRoot: t.TempDir(),
		Logger:     testLogger(),
	})

	job, err := New(Config{Client: "Jane Doe", Manifest: buildManifest(t), Source: source})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := jobs.ContextWithDeps(context.Background(), jobs.Dependencies{Packets: svc})
	err = job.Execute(ctx)
	if err == nil {
		t.Fatal("Execute() succeeded with missing required slot, want error")
	}
	if !strings.Contains(err.Error(), "missing required slots") {
		t.Errorf("error = %q, want missing required slots", err)
	}
}
