package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Webhook POSTs each update as JSON to a configured URL. Deliveries retry
// a few times and then give up with a log line.
type Webhook struct {
	url     string
	client  *http.Client
	retries uint
	log     *slog.Logger
}

// NewWebhook returns a reporter that delivers updates to url.
func NewWebhook(url string, retries uint, log *slog.Logger) *Webhook {
	if retries == 0 {
		retries = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: retries,
		log:     log,
	}
}

func (w *Webhook) Report(ctx context.Context, u Update) {
	body, err := json.Marshal(u)
	if err != nil {
		w.log.Error("marshaling status update", "error", err)
		return
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := w.client.Do(req)
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			if resp.StatusCode >= 400 {
				return fmt.Errorf("webhook returned status %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(w.retries),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		w.log.Error("delivering status update",
			"url", w.url,
			"client", u.Client,
			"stage", u.Stage,
			"error", err)
	}
}
