package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// extractTextByPage renders and recognizes every page, returning the text
// in page order. A page that renders but fails OCR yields empty text; a
// page that cannot render aborts the run.
func (s *Service) extractTextByPage(ctx context.Context, pdfPath string, total int) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "binder-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	texts := make([]string, total)
	for page := 1; page <= total; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		imagePath, err := s.renderPage(ctx, pdfPath, page, tmpDir)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", page, err)
		}

		text, err := s.recognize(ctx, imagePath)
		if err != nil {
			s.log.Warn("OCR failed for page, treating as empty",
				"page", page,
				"error", err)
			continue
		}
		texts[page-1] = text
	}
	return texts, nil
}

// renderPage renders a single page from a PDF using pdftoppm (poppler-utils).
func (s *Service) renderPage(ctx context.Context, pdfPath string, page int, dir string) (string, error) {
	pageStr := strconv.Itoa(page)
	outputPrefix := filepath.Join(dir, fmt.Sprintf("page-%d", page))

	// Run pdftoppm to render the page
	// -png: output PNG format
	// -f N: first page to render
	// -l N: last page to render
	// -r N: resolution in DPI
	// -singlefile: don't add page number suffix (we handle naming ourselves)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(s.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// pdftoppm with -singlefile creates: <prefix>.png
	imagePath := outputPrefix + ".png"
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return imagePath, nil
}

// recognize runs tesseract over one image, writing recognized text to stdout.
func (s *Service) recognize(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, s.tesseract,
		imagePath,
		"stdout",
		"-l", s.lang,
	)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(output), nil
}
