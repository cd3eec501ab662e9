package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/binder/internal/config"
	"github.com/jackzampolin/binder/internal/convert"
	"github.com/jackzampolin/binder/internal/home"
	"github.com/jackzampolin/binder/internal/svcctx"
	"github.com/jackzampolin/binder/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	if cfg.Home == nil {
		h, err := home.New(t.TempDir())
		if err != nil {
			t.Fatalf("home.New() error = %v", err)
		}
		cfg.Home = h
	}
	if cfg.Logger == nil {
		cfg.Logger = testLogger()
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func TestNew_Defaults(t *testing.T) {
	srv := testServer(t, Config{})

	if got, want := srv.Addr(), "127.0.0.1:8080"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
}

func TestNew_RequiresHome(t *testing.T) {
	_, err := New(Config{Logger: testLogger()})
	if err == nil {
		t.Fatal("New() without home should return error")
	}
}

func TestRequireInit_BlocksBeforeStart(t *testing.T) {
	srv := testServer(t, Config{})

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), "not fully initialized") {
		t.Errorf("body = %q, want init error", rec.Body.String())
	}
}

func TestOpenEndpoints_WorkBeforeStart(t *testing.T) {
	srv := testServer(t, Config{})

	t.Run("health", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var health struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("default_manifest", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/manifests/default", nil)
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var doc struct {
			Slots []json.RawMessage `json:"slots"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(doc.Slots) == 0 {
			t.Error("default manifest has no slots")
		}
	})

	t.Run("validate_manifest", func(t *testing.T) {
		body := `{"name":"test","slots":[{"position":1,"name":"Cover Letter"}]}`
		req := httptest.NewRequest("POST", "/api/v1/manifests/validate", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("validate_manifest_rejects_duplicates", func(t *testing.T) {
		body := `{"slots":[{"position":1,"name":"A"},{"position":1,"name":"B"}]}`
		req := httptest.NewRequest("POST", "/api/v1/manifests/validate", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	srv := testServer(t, Config{})

	req := httptest.NewRequest("POST", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestWithServices_InjectsConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("server:\n  port: \"9191\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	srv := testServer(t, Config{ConfigManager: mgr})
	srv.services = &svcctx.Services{Config: mgr, Logger: testLogger()}

	req := httptest.NewRequest("GET", "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Settings struct {
			Server struct {
				Port string `json:"port"`
			} `json:"server"`
		} `json:"settings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Settings.Server.Port != "9191" {
		t.Errorf("settings.server.port = %q, want %q", resp.Settings.Server.Port, "9191")
	}
}

// TestServer_FullLifecycle runs the server against a real Gotenberg
// container. Requires Docker.
func TestServer_FullLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cm, err := config.NewManager(cfg.ConfigFile)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	h, err := home.New(cfg.HomePath)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	srv, err := New(Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Home:            h,
		ConfigManager:   cm,
		GotenbergLabels: cfg.Gotenberg.Labels,
		Logger:          cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)

	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	// Wait for server to be ready
	if err := testutil.WaitForServer(cfg.URL(), 120*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	t.Run("health_endpoint", func(t *testing.T) {
		resp, err := http.Get(cfg.URL() + "/api/v1/health")
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var health struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("jobs_endpoint_initialized", func(t *testing.T) {
		resp, err := http.Get(cfg.URL() + "/api/v1/jobs")
		if err != nil {
			t.Fatalf("jobs list failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("jobs status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("converter_healthy", func(t *testing.T) {
		mgr := cm.Get()
		conv := convert.NewGotenberg(convert.GotenbergConfig{
			BaseURL: mgr.GotenbergBaseURL(),
			Logger:  cfg.Logger,
		})
		if err := conv.Healthy(ctx); err != nil {
			t.Errorf("gotenberg health check failed: %v", err)
		}
	})

	t.Run("is_running", func(t *testing.T) {
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("second_start_fails", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("second Start() should return error")
		}
	})

	// Shutdown server
	serverCancel()

	// Wait for server to stop
	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server returned error (expected during shutdown): %v", err)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}

	t.Run("not_running_after_shutdown", func(t *testing.T) {
		if srv.IsRunning() {
			t.Error("IsRunning() = true after shutdown, want false")
		}
	})

	t.Run("gotenberg_stopped_after_shutdown", func(t *testing.T) {
		mgr, err := convert.NewDockerManager(convert.DockerConfig{
			ContainerName: cfg.Gotenberg.ContainerName,
		})
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			t.Fatalf("failed to get status: %v", err)
		}

		if status == convert.StatusRunning {
			t.Error("Gotenberg still running after server shutdown")
			_ = mgr.Stop(ctx)
		}
	})
}
