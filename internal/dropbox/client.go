// Package dropbox is a minimal client for the Dropbox HTTP API v2,
// covering exactly what packet assembly needs: resolving a shared link to
// a folder, listing that folder, and downloading files.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultAPIURL     = "https://api.dropboxapi.com"
	defaultContentURL = "https://content.dropboxapi.com"
	listPageLimit     = 2000
)

// Entry is one file known to Dropbox.
type Entry struct {
	Name      string
	PathLower string
}

// Client calls the Dropbox API, obtaining credentials from a TokenSource
// per request.
type Client struct {
	apiURL     string
	contentURL string
	tokens     TokenSource
	httpClient *http.Client
	retries    uint
	log        *slog.Logger
}

// Config holds connection settings for the Dropbox client.
type Config struct {
	// Token is a static OAuth access token. Ignored when Tokens is set.
	Token string

	// Tokens overrides the token source, e.g. with a TokenService.
	Tokens TokenSource

	// APIURL and ContentURL override the Dropbox endpoints, mainly for
	// tests.
	APIURL     string
	ContentURL string

	Retries uint
	Timeout time.Duration
	Logger  *slog.Logger
}

// New creates a Dropbox client.
func New(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = defaultContentURL
	}
	if cfg.Tokens == nil {
		cfg.Tokens = StaticToken(cfg.Token)
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		contentURL: strings.TrimRight(cfg.ContentURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retries:    cfg.Retries,
		log:        cfg.Logger,
	}
}

// ResolveSharedLink returns the internal folder path behind a shared link.
func (c *Client) ResolveSharedLink(ctx context.Context, url string) (string, error) {
	var resp struct {
		PathLower string `json:"path_lower"`
	}
	err := c.rpc(ctx, "/2/sharing/get_shared_link_metadata", map[string]string{"url": url}, &resp)
	if err != nil {
		return "", fmt.Errorf("resolving shared link: %w", err)
	}
	if resp.PathLower == "" {
		return "", fmt.Errorf("shared link %s has no path", url)
	}
	return resp.PathLower, nil
}

// ListFolder lists every file under path recursively, following cursor
// pagination.
func (c *Client) ListFolder(ctx context.Context, path string) ([]Entry, error) {
	type entryDoc struct {
		Tag       string `json:".tag"`
		Name      string `json:"name"`
		PathLower string `json:"path_lower"`
	}
	type listResp struct {
		Entries []entryDoc `json:"entries"`
		Cursor  string     `json:"cursor"`
		HasMore bool       `json:"has_more"`
	}

	var page listResp
	err := c.rpc(ctx, "/2/files/list_folder", map[string]any{
		"path":      path,
		"recursive": true,
		"limit":     listPageLimit,
	}, &page)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var entries []Entry
	collect := func(docs []entryDoc) {
		for _, d := range docs {
			if d.Tag != "file" {
				continue
			}
			entries = append(entries, Entry{Name: d.Name, PathLower: d.PathLower})
		}
	}
	collect(page.Entries)

	for page.HasMore {
		var next listResp
		err := c.rpc(ctx, "/2/files/list_folder/continue", map[string]string{"cursor": page.Cursor}, &next)
		if err != nil {
			return nil, fmt.Errorf("listing %s (continue): %w", path, err)
		}
		collect(next.Entries)
		page = next
	}

	c.log.Debug("listed dropbox folder", "path", path, "files", len(entries))
	return entries, nil
}

// Download fetches the file at path into localPath.
func (c *Client) Download(ctx context.Context, path, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}

	arg, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/2/files/download", nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Dropbox-API-Arg", string(arg))

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return c.apiError(resp)
			}

			out, err := os.Create(localPath)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			defer out.Close()

			if _, err := io.Copy(out, resp.Body); err != nil {
				return fmt.Errorf("writing %s: %w", localPath, err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(1*time.Second),
	)
}

// rpc performs one JSON request against the RPC endpoint family.
func (c *Client) rpc(ctx context.Context, route string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	return retry.Do(
		func() error {
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+route, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return c.apiError(resp)
			}
			if result != nil {
				if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(1*time.Second),
	)
}

// apiError converts an error response into a Go error. Rate limiting and
// server errors stay retryable; everything else is final.
func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var doc struct {
		ErrorSummary string `json:"error_summary"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &doc) == nil && doc.ErrorSummary != "" {
		msg = doc.ErrorSummary
	}

	err := fmt.Errorf("dropbox returned status %d: %s", resp.StatusCode, msg)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return retry.Unrecoverable(err)
}
