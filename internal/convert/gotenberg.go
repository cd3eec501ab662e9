package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const convertRoute = "/forms/libreoffice/convert"

// Gotenberg converts office documents to PDF over Gotenberg's HTTP API.
type Gotenberg struct {
	baseURL string
	client  *http.Client
	retries uint
	log     *slog.Logger
}

// GotenbergConfig holds settings for the conversion client.
type GotenbergConfig struct {
	// BaseURL of the Gotenberg service, e.g. http://localhost:3000.
	BaseURL string

	// Retries bounds delivery attempts for transient failures.
	Retries uint

	// Timeout covers a whole conversion request. LibreOffice start-up on
	// a cold container can take a while, so this is generous.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewGotenberg returns a conversion client for the given service.
func NewGotenberg(cfg GotenbergConfig) *Gotenberg {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + DefaultPort
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gotenberg{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		retries: cfg.Retries,
		log:     cfg.Logger,
	}
}

// Convert uploads the document at path and writes the converted PDF next
// to it, returning the PDF path. Transient failures retry; a rejection of
// the document itself does not.
func (g *Gotenberg) Convert(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"

	var pdfBytes []byte
	err = retry.Do(
		func() error {
			b, err := g.post(ctx, filepath.Base(path), data)
			if err != nil {
				return err
			}
			pdfBytes = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.retries),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("converting %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(outPath, pdfBytes, 0644); err != nil {
		return "", fmt.Errorf("writing converted PDF: %w", err)
	}

	g.log.Debug("converted document",
		"source", filepath.Base(path),
		"output", filepath.Base(outPath),
		"bytes", len(pdfBytes))
	return outPath, nil
}

// Healthy reports whether the Gotenberg service responds on its health
// endpoint.
func (g *Gotenberg) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// post performs one multipart conversion request and returns the PDF body.
func (g *Gotenberg) post(ctx context.Context, filename string, data []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+convertRoute, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("gotenberg returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// The document itself was rejected; retrying cannot help.
			return nil, retry.Unrecoverable(err)
		}
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
