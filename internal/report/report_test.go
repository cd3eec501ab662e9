package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRecording(t *testing.T) {
	r := NewRecording()
	ctx := context.Background()

	r.Report(ctx, Update{Client: "Acme", Stage: StageResolving, Percent: PercentResolving})
	r.Report(ctx, Update{Client: "Acme", Stage: StageCompleted, Percent: PercentCompleted})

	updates := r.Updates()
	if len(updates) != 2 {
		t.Fatalf("len(Updates()) = %d, want 2", len(updates))
	}
	if updates[0].Percent != 10 || updates[1].Percent != 100 {
		t.Errorf("percents = %d, %d, want 10, 100", updates[0].Percent, updates[1].Percent)
	}

	stages := r.Stages()
	if stages[0] != StageResolving || stages[1] != StageCompleted {
		t.Errorf("Stages() = %v", stages)
	}
}

func TestMulti(t *testing.T) {
	a := NewRecording()
	b := NewRecording()

	Multi(a, b).Report(context.Background(), Update{Client: "Acme", Stage: StageAssembling})

	if len(a.Updates()) != 1 || len(b.Updates()) != 1 {
		t.Errorf("fan-out missed a reporter: a=%d b=%d", len(a.Updates()), len(b.Updates()))
	}
}

func TestSlogReporter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewSlog(log)

	// Both paths must be safe to call.
	r.Report(context.Background(), Update{Client: "Acme", Stage: StageDownloading, Percent: 40})
	r.Report(context.Background(), Update{Client: "Acme", Stage: StageError, Message: "missing required slots"})
}

func TestWebhookDelivers(t *testing.T) {
	var got Update
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wh.Report(context.Background(), Update{Client: "Acme", Stage: StageCompleted, Percent: 100})

	if got.Client != "Acme" || got.Stage != StageCompleted || got.Percent != 100 {
		t.Errorf("delivered update = %+v", got)
	}
}

func TestWebhookRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wh.Report(context.Background(), Update{Client: "Acme", Stage: StageResolving})

	if calls.Load() != 2 {
		t.Errorf("webhook calls = %d, want 2 (one failure, one success)", calls.Load())
	}
}

func TestWebhookGivesUpQuietly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	// Must not panic or block; failure lands in the log only.
	wh.Report(context.Background(), Update{Client: "Acme", Stage: StageResolving})
}
