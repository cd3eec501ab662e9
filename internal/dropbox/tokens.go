package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TokenSource yields the access token attached to each API call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically from configuration.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("dropbox access token is not configured")
	}
	return string(s), nil
}

// TokenService fetches short-lived tokens from an external token service
// and caches them until shortly before expiry.
type TokenService struct {
	url        string
	signature  string
	service    string
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenService returns a source that authenticates to the token service
// with the given signature on behalf of the named service.
func NewTokenService(url, signature, service string, log *slog.Logger) *TokenService {
	if log == nil {
		log = slog.Default()
	}
	return &TokenService{
		url:        url,
		signature:  signature,
		service:    service,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (t *TokenService) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Reuse the cached token with a minute of slack before expiry.
	if t.token != "" && time.Now().Add(time.Minute).Before(t.expires) {
		return t.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"signature": t.signature,
		"service":   t.service,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting dropbox token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var doc struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   string `json:"expires_at"`
		Refreshed   bool   `json:"refreshed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if doc.AccessToken == "" {
		return "", fmt.Errorf("token service returned no access token")
	}

	expires, err := time.Parse(time.RFC3339, doc.ExpiresAt)
	if err != nil {
		// Unknown expiry: use the token but do not cache it.
		t.log.Warn("token service returned unparseable expiry", "expires_at", doc.ExpiresAt)
		t.token, t.expires = "", time.Time{}
		return doc.AccessToken, nil
	}

	t.token, t.expires = doc.AccessToken, expires
	t.log.Debug("obtained dropbox token", "expires_at", expires, "refreshed", doc.Refreshed)
	return t.token, nil
}
