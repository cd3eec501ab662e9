// Package ocr extracts the pages of a PDF whose recognized text matches a
// pattern. Pages are rendered with pdftoppm (poppler-utils) and recognized
// with tesseract; both binaries must be reachable.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jackzampolin/binder/internal/pdf"
)

const (
	MinDPI     = 100
	MaxDPI     = 600
	DefaultDPI = 300

	DefaultLang   = "eng"
	defaultSuffix = "pattern"
)

// Service renders, recognizes, and collects matching pages.
type Service struct {
	dpi       int
	lang      string
	tesseract string
	log       *slog.Logger
}

// Config holds OCR settings.
type Config struct {
	// DPI for page rendering, between MinDPI and MaxDPI.
	DPI int

	// Lang is the tesseract language code.
	Lang string

	// TesseractCmd overrides the tesseract binary path.
	TesseractCmd string

	Logger *slog.Logger
}

// NewService creates an OCR service.
func NewService(cfg Config) (*Service, error) {
	if cfg.DPI == 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.DPI < MinDPI || cfg.DPI > MaxDPI {
		return nil, fmt.Errorf("dpi %d out of range [%d, %d]", cfg.DPI, MinDPI, MaxDPI)
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if cfg.TesseractCmd == "" {
		cfg.TesseractCmd = "tesseract"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		dpi:       cfg.DPI,
		lang:      cfg.Lang,
		tesseract: cfg.TesseractCmd,
		log:       cfg.Logger,
	}, nil
}

// CheckTools reports whether pdftoppm and tesseract are available.
func (s *Service) CheckTools() error {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return fmt.Errorf("pdftoppm not found in PATH: %w", err)
	}
	if _, err := exec.LookPath(s.tesseract); err != nil {
		return fmt.Errorf("tesseract not found in PATH: %w", err)
	}
	return nil
}

// Request describes one extraction.
type Request struct {
	// InputPath is the source PDF.
	InputPath string

	// Pattern is the text to look for on each page.
	Pattern string

	// UseRegex treats Pattern as a regular expression instead of a
	// substring.
	UseRegex bool

	// CaseSensitive disables the default case folding.
	CaseSensitive bool

	// Suffix names the output file: <input stem>_<suffix>.pdf.
	Suffix string
}

// Result reports what the extraction found.
type Result struct {
	InputPath    string `json:"input_path"`
	OutputPath   string `json:"output_path,omitempty"`
	MatchedPages []int  `json:"matched_pages"`
	Pages        int    `json:"pages"`
	Message      string `json:"message"`
}

// ExtractPages runs the pipeline: render each page, recognize its text,
// and collect the pages matching the pattern into a new PDF written next
// to the input. Matching no pages is a successful outcome with no output
// file.
func (s *Service) ExtractPages(ctx context.Context, req Request) (*Result, error) {
	if req.Pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return nil, fmt.Errorf("input PDF not found: %s", req.InputPath)
	}

	match, err := buildMatcher(req)
	if err != nil {
		return nil, err
	}

	total, err := pdf.PageCount(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	s.log.Info("starting OCR extraction",
		"input", req.InputPath,
		"pages", total,
		"pattern", req.Pattern,
		"regex", req.UseRegex)

	texts, err := s.extractTextByPage(ctx, req.InputPath, total)
	if err != nil {
		return nil, err
	}

	var matched []int
	for i, text := range texts {
		if match(text) {
			matched = append(matched, i+1)
		}
	}

	if len(matched) == 0 {
		s.log.Warn("no pages matched pattern", "pattern", req.Pattern)
		return &Result{
			InputPath:    req.InputPath,
			MatchedPages: []int{},
			Pages:        total,
			Message:      fmt.Sprintf("no pages matched pattern %q", req.Pattern),
		}, nil
	}

	suffix := req.Suffix
	if suffix == "" {
		suffix = defaultSuffix
	}
	outPath := outputPath(req.InputPath, suffix)

	if err := pdf.Collect(req.InputPath, outPath, matched); err != nil {
		return nil, fmt.Errorf("collecting matched pages: %w", err)
	}

	s.log.Info("OCR extraction completed",
		"matched", len(matched),
		"output", outPath)

	return &Result{
		InputPath:    req.InputPath,
		OutputPath:   outPath,
		MatchedPages: matched,
		Pages:        total,
		Message:      fmt.Sprintf("extracted %d pages matching pattern %q", len(matched), req.Pattern),
	}, nil
}

// buildMatcher compiles the request's pattern into a predicate over page
// text. An invalid regex fails here, before any rendering work.
func buildMatcher(req Request) (func(string) bool, error) {
	if req.UseRegex {
		expr := req.Pattern
		if !req.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", req.Pattern, err)
		}
		return re.MatchString, nil
	}

	if req.CaseSensitive {
		return func(text string) bool {
			return strings.Contains(text, req.Pattern)
		}, nil
	}

	needle := strings.ToLower(req.Pattern)
	return func(text string) bool {
		return strings.Contains(strings.ToLower(text), needle)
	}, nil
}

// outputPath places the extraction next to its input: in.pdf -> in_<suffix>.pdf.
func outputPath(inputPath, suffix string) string {
	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, stem+"_"+suffix+".pdf")
}
