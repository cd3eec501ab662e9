package assembly

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/pdf"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// makePDF writes a real PDF with the given page count, built from
// generated single pages.
func makePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	factory := pdf.NewSeparatorFactory()

	single := make([]string, pages)
	for i := range single {
		p := filepath.Join(dir, name+"-page-"+string(rune('a'+i))+".pdf")
		if err := factory.Make("page", p); err != nil {
			t.Fatalf("failed to create page: %v", err)
		}
		single[i] = p
	}

	out := filepath.Join(dir, name)
	if pages == 1 {
		if err := os.Rename(single[0], out); err != nil {
			t.Fatalf("failed to place PDF: %v", err)
		}
		return out
	}
	if err := pdf.Merge(single, out); err != nil {
		t.Fatalf("failed to build multi-page PDF: %v", err)
	}
	return out
}

// mockConverter converts DOCX inputs by generating a one-page PDF, with
// per-path error injection.
type mockConverter struct {
	FailOn    map[string]bool
	converted []string
}

func (m *mockConverter) Convert(_ context.Context, path string) (string, error) {
	if m.FailOn[path] {
		return "", errors.New("injected conversion failure")
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"
	if err := pdf.NewSeparatorFactory().Make("converted", out); err != nil {
		return "", err
	}
	m.converted = append(m.converted, path)
	return out, nil
}

// failingSeparators rejects every separator request.
type failingSeparators struct{}

func (failingSeparators) Make(string, string) error {
	return errors.New("injected separator failure")
}

func file(pos int, group, path string) ResolvedFile {
	return ResolvedFile{
		Slot:      manifest.Slot{Position: pos, Name: group, Required: true},
		LocalPath: path,
	}
}

func newEngine(c Converter) *Engine {
	return New(Config{
		Converter:  c,
		Separators: pdf.NewSeparatorFactory(),
		Logger:     testLogger(),
	})
}

func TestAssemble_SeparatorsBetweenGroups(t *testing.T) {
	dir := t.TempDir()
	a := makePDF(t, dir, "a.pdf", 2)
	b := makePDF(t, dir, "b.pdf", 3)

	res, err := newEngine(nil).Assemble(context.Background(),
		[]ResolvedFile{file(1, "Group A", a), file(2, "Group B", b)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	// sep(A) + 2 pages + sep(B) + 3 pages
	n, err := pdf.PageCount(res.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 7 {
		t.Errorf("page count = %d, want 7", n)
	}
	if len(res.Sources) != 4 {
		t.Errorf("len(Sources) = %d, want 4 (two separators, two files)", len(res.Sources))
	}
	if len(res.Dropped) != 0 {
		t.Errorf("Dropped = %v, want none", res.Dropped)
	}
}

func TestAssemble_SameGroupSingleSeparator(t *testing.T) {
	dir := t.TempDir()
	a := makePDF(t, dir, "a.pdf", 1)
	b := makePDF(t, dir, "b.pdf", 1)

	res, err := newEngine(nil).Assemble(context.Background(),
		[]ResolvedFile{file(1, "Evidence", a), file(2, "Evidence", b)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	n, err := pdf.PageCount(res.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("page count = %d, want 3 (one separator for the shared group)", n)
	}
}

func TestAssemble_SortsBySlotPosition(t *testing.T) {
	dir := t.TempDir()
	first := makePDF(t, dir, "first.pdf", 1)
	second := makePDF(t, dir, "second.pdf", 1)
	third := makePDF(t, dir, "third.pdf", 1)

	// Deliberately out of order.
	res, err := newEngine(nil).Assemble(context.Background(),
		[]ResolvedFile{
			file(3, "G", third),
			file(1, "G", first),
			file(2, "G", second),
		},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	var order []string
	for _, s := range res.Sources {
		if strings.Contains(s, "separator") {
			continue
		}
		order = append(order, filepath.Base(s))
	}
	want := []string{"first.pdf", "second.pdf", "third.pdf"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("merge order = %v, want %v", order, want)
		}
	}
}

func TestAssemble_DocxConversion(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "statement.docx")
	if err := os.WriteFile(docx, []byte("docx bytes"), 0644); err != nil {
		t.Fatalf("failed to write docx: %v", err)
	}

	conv := &mockConverter{}
	res, err := newEngine(conv).Assemble(context.Background(),
		[]ResolvedFile{file(1, "Evidence", docx)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if len(conv.converted) != 1 {
		t.Errorf("converted %d files, want 1", len(conv.converted))
	}
	if len(res.Dropped) != 0 {
		t.Errorf("Dropped = %v, want none", res.Dropped)
	}
}

func TestAssemble_ConversionFailureDropsOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	keep := makePDF(t, dir, "keep.pdf", 1)
	docx := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(docx, []byte("docx bytes"), 0644); err != nil {
		t.Fatalf("failed to write docx: %v", err)
	}

	conv := &mockConverter{FailOn: map[string]bool{docx: true}}
	res, err := newEngine(conv).Assemble(context.Background(),
		[]ResolvedFile{file(1, "Evidence", keep), file(2, "Evidence", docx)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v, drops must not abort the pass", err)
	}

	if len(res.Dropped) != 1 {
		t.Fatalf("len(Dropped) = %d, want 1", len(res.Dropped))
	}
	if res.Dropped[0].Slot.Position != 2 {
		t.Errorf("dropped position = %d, want 2", res.Dropped[0].Slot.Position)
	}
	if !strings.Contains(res.Dropped[0].Reason, "conversion failed") {
		t.Errorf("drop reason = %q, want conversion failure", res.Dropped[0].Reason)
	}

	// Separator + surviving file.
	n, err := pdf.PageCount(res.Path)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
}

func TestAssemble_UnsupportedExtensionDropped(t *testing.T) {
	dir := t.TempDir()
	keep := makePDF(t, dir, "keep.pdf", 1)
	jpg := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(jpg, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatalf("failed to write jpg: %v", err)
	}

	res, err := newEngine(nil).Assemble(context.Background(),
		[]ResolvedFile{file(1, "G", keep), file(2, "G", jpg)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(res.Dropped) != 1 {
		t.Fatalf("len(Dropped) = %d, want 1", len(res.Dropped))
	}
	if !strings.Contains(res.Dropped[0].Reason, "unsupported") {
		t.Errorf("drop reason = %q, want unsupported file type", res.Dropped[0].Reason)
	}
}

func TestAssemble_Empty(t *testing.T) {
	t.Run("no input files", func(t *testing.T) {
		dir := t.TempDir()
		_, err := newEngine(nil).Assemble(context.Background(), nil, dir, filepath.Join(dir, "packet.pdf"))
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("error = %v, want ErrEmpty", err)
		}
	})

	t.Run("everything dropped and no separators", func(t *testing.T) {
		dir := t.TempDir()
		docx := filepath.Join(dir, "broken.docx")
		if err := os.WriteFile(docx, []byte("docx bytes"), 0644); err != nil {
			t.Fatalf("failed to write docx: %v", err)
		}

		engine := New(Config{
			Converter:  &mockConverter{FailOn: map[string]bool{docx: true}},
			Separators: failingSeparators{},
			Logger:     testLogger(),
		})
		_, err := engine.Assemble(context.Background(),
			[]ResolvedFile{file(1, "G", docx)},
			dir, filepath.Join(dir, "packet.pdf"))
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("error = %v, want ErrEmpty", err)
		}
	})
}

func TestAssemble_SeparatorSurvivesDroppedGroup(t *testing.T) {
	// A group whose only file fails conversion keeps its separator page;
	// the gate re-check at the service layer decides whether that is fatal.
	dir := t.TempDir()
	keep := makePDF(t, dir, "keep.pdf", 1)
	docx := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(docx, []byte("docx bytes"), 0644); err != nil {
		t.Fatalf("failed to write docx: %v", err)
	}

	conv := &mockConverter{FailOn: map[string]bool{docx: true}}
	res, err := newEngine(conv).Assemble(context.Background(),
		[]ResolvedFile{file(1, "Group A", keep), file(2, "Group B", docx)},
		dir, filepath.Join(dir, "packet.pdf"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	seps := 0
	for _, s := range res.Sources {
		if strings.Contains(filepath.Base(s), "separator") {
			seps++
		}
	}
	if seps != 2 {
		t.Errorf("separators in sequence = %d, want 2", seps)
	}
}
