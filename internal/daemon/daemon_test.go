package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"permanentes/internal/daemon"
	"permanentes/internal/testsupport"
)

func versionHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"version":"test"}`)
	})
	return mux
}

func TestDaemonServesAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := daemon.New(cfg, versionHandler(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/version")
	if err != nil {
		t.Fatalf("GET version: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"version":"test"}` {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon stopped")
	}
	if d.Addr() != "" {
		t.Fatalf("expected empty address after stop, got %q", d.Addr())
	}
	d.Stop()
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	first, err := daemon.New(cfg, versionHandler(), nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, versionHandler(), nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start second after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStopsOnContextCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := daemon.New(cfg, versionHandler(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after context cancellation")
	}
}

func TestDaemonRejectsBadBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:notaport"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	d, err := daemon.New(cfg, versionHandler(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected listen error")
	}
	if d.Status().Running {
		t.Fatal("daemon should not report running after failed start")
	}
}

func TestNewRequiresHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}
