package resolver

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackzampolin/binder/internal/manifest"
)

func testResolver() *Resolver {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func slot(pos int, name string, required bool, spec manifest.MatchSpec) manifest.Slot {
	return manifest.Slot{Position: pos, Name: name, Required: required, Match: spec}
}

func TestResolve_FolderHint(t *testing.T) {
	index := []string{
		"/Client/VAWA/doc.pdf",
		"/Client/Other/doc.pdf",
	}
	res := testResolver().Resolve([]manifest.Slot{
		slot(1, "A", true, manifest.MatchSpec{FolderHint: "vawa"}),
	}, index)

	if len(res) != 1 {
		t.Fatalf("len(res) = %d, want 1", len(res))
	}
	if res[0].Missing {
		t.Fatalf("slot missing, reason: %s", res[0].Reason)
	}
	if res[0].CandidatePath != "/Client/VAWA/doc.pdf" {
		t.Errorf("CandidatePath = %q, want /Client/VAWA/doc.pdf", res[0].CandidatePath)
	}
	if res[0].CandidateCount != 1 {
		t.Errorf("CandidateCount = %d, want 1", res[0].CandidateCount)
	}
}

func TestResolve_FolderHintBackslashes(t *testing.T) {
	index := []string{`\Client\VAWA\doc.pdf`}
	res := testResolver().Resolve([]manifest.Slot{
		slot(1, "A", true, manifest.MatchSpec{FolderHint: "vawa"}),
	}, index)
	if res[0].Missing {
		t.Error("backslash paths should slash-normalize before matching")
	}
}

func TestResolve_FileHint(t *testing.T) {
	t.Run("all hint words must appear", func(t *testing.T) {
		index := []string{
			"/C/Carolina I-360 Prima Facie Renewed (06-25-2025).pdf",
			"/C/Carolina I-360 Petition.pdf",
		}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{FileHint: "prima facie renewed"}),
		}, index)

		if res[0].Missing {
			t.Fatalf("slot missing, reason: %s", res[0].Reason)
		}
		if res[0].CandidatePath != index[0] {
			t.Errorf("CandidatePath = %q, want the prima facie file", res[0].CandidatePath)
		}
		if res[0].CandidateCount != 1 {
			t.Errorf("CandidateCount = %d, want 1", res[0].CandidateCount)
		}
	})

	t.Run("separator variation tolerated", func(t *testing.T) {
		index := []string{"/C/prima_facie-renewed.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{FileHint: "prima facie renewed"}),
		}, index)
		if res[0].Missing {
			t.Error("underscores and dashes should normalize to spaces")
		}
	})

	t.Run("word order ignored", func(t *testing.T) {
		index := []string{"/C/renewed prima facie.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{FileHint: "prima facie renewed"}),
		}, index)
		if res[0].Missing {
			t.Error("hint words should match in any order")
		}
	})
}

func TestResolve_Patterns(t *testing.T) {
	t.Run("regex case-insensitive search", func(t *testing.T) {
		index := []string{"/C/2024 RAP SHEET SCAN.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{
				Patterns: manifest.CompilePatterns([]string{`regex:.*rap.*sheet.*\.pdf`}),
			}),
		}, index)
		if res[0].Missing {
			t.Errorf("regex should match, reason: %s", res[0].Reason)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		index := []string{"/C/ID_Alberto_2024.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{
				Patterns: manifest.CompilePatterns([]string{"id*.pdf"}),
			}),
		}, index)
		if res[0].Missing {
			t.Errorf("wildcard should match, reason: %s", res[0].Reason)
		}
	})

	t.Run("any pattern suffices", func(t *testing.T) {
		index := []string{"/C/receipt.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{
				Patterns: manifest.CompilePatterns([]string{"nomatch*.pdf", "receipt"}),
			}),
		}, index)
		if res[0].Missing {
			t.Error("OR semantics: second pattern should keep the candidate")
		}
	})

	t.Run("invalid regex matches nothing without aborting", func(t *testing.T) {
		index := []string{"/C/receipt.pdf"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{
				Patterns: manifest.CompilePatterns([]string{"regex:[unclosed", "receipt"}),
			}),
		}, index)
		if res[0].Missing {
			t.Error("invalid regex should be skipped, valid pattern should match")
		}
	})
}

func TestResolve_ExtensionFilter(t *testing.T) {
	t.Run("docx excluded by default", func(t *testing.T) {
		index := []string{"/C/contract.docx"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{FileHint: "contract"}),
		}, index)
		if !res[0].Missing {
			t.Error("docx should be excluded when allow_docx is false")
		}
	})

	t.Run("docx kept when allowed", func(t *testing.T) {
		index := []string{"/C/contract.docx"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{FileHint: "contract", AllowDocx: true}),
		}, index)
		if res[0].Missing {
			t.Error("docx should be kept when allow_docx is true")
		}
	})

	t.Run("other extensions always excluded", func(t *testing.T) {
		index := []string{"/C/photo.jpg", "/C/notes.txt"}
		res := testResolver().Resolve([]manifest.Slot{
			slot(1, "A", true, manifest.MatchSpec{AllowDocx: true}),
		}, index)
		if !res[0].Missing {
			t.Error("non-pdf, non-docx files must never resolve")
		}
	})
}

func TestResolve_FirstCandidateWins(t *testing.T) {
	index := []string{
		"/C/USCIS/Prima.pdf",
		"/C/USCIS/Receipt_2024.pdf",
		"/C/Other/x.pdf",
	}
	slots := []manifest.Slot{
		slot(1, "A", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "A", true, manifest.MatchSpec{FolderHint: "uscis", FileHint: "receipt"}),
	}

	res := testResolver().Resolve(slots, index)

	if res[0].CandidatePath != "/C/USCIS/Prima.pdf" {
		t.Errorf("slot 1 = %q, want first index entry Prima.pdf", res[0].CandidatePath)
	}
	if res[0].CandidateCount != 2 {
		t.Errorf("slot 1 CandidateCount = %d, want 2", res[0].CandidateCount)
	}
	if res[1].CandidatePath != "/C/USCIS/Receipt_2024.pdf" {
		t.Errorf("slot 2 = %q, want Receipt_2024.pdf", res[1].CandidatePath)
	}

	resolved := ResolvedPositions(res)
	m, err := manifest.New("t", slots)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if mask := m.PresenceMask(resolved); mask != "11" {
		t.Errorf("PresenceMask = %q, want 11", mask)
	}
}

func TestResolve_MissingReason(t *testing.T) {
	res := testResolver().Resolve([]manifest.Slot{
		slot(1, "A", true, manifest.MatchSpec{
			FolderHint: "uscis",
			FileHint:   "receipt",
			Patterns:   manifest.CompilePatterns([]string{"*receipt*.pdf"}),
		}),
		slot(2, "B", false, manifest.MatchSpec{}),
	}, []string{})

	if !res[0].Missing {
		t.Fatal("slot 1 should be missing")
	}
	for _, want := range []string{"folder_hint", "file_hint", "patterns"} {
		if !strings.Contains(res[0].Reason, want) {
			t.Errorf("Reason = %q, want mention of %s", res[0].Reason, want)
		}
	}

	if !res[1].Missing {
		t.Fatal("slot 2 should be missing against an empty index")
	}
	if res[1].Reason == "" {
		t.Error("criteria-free slot still needs a fallback reason")
	}
}

func TestCheckRequired(t *testing.T) {
	slots := []manifest.Slot{
		slot(1, "A", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(2, "A", true, manifest.MatchSpec{FolderHint: "uscis"}),
		slot(3, "B", false, manifest.MatchSpec{FolderHint: "nowhere"}),
	}
	index := []string{"/C/Other/x.pdf"}

	res := testResolver().Resolve(slots, index)
	missing := CheckRequired(res)

	if len(missing) != 2 || missing[0] != 1 || missing[1] != 2 {
		t.Errorf("CheckRequired() = %v, want [1 2]", missing)
	}
}
