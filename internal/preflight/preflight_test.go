package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"permanentes/internal/config"
)

type fakeRegistry struct {
	pingErr  error
	count    int
	countErr error
}

func (f fakeRegistry) Ping(context.Context) error { return f.pingErr }
func (f fakeRegistry) CountRecords(context.Context) (int, error) {
	return f.count, f.countErr
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRegistry(t *testing.T) {
	tests := []struct {
		name   string
		reg    fakeRegistry
		passed bool
		detail string
	}{
		{"populated", fakeRegistry{count: 42}, true, "42 records"},
		{"empty", fakeRegistry{}, true, "permanentes import"},
		{"ping fails", fakeRegistry{pingErr: errors.New("closed")}, false, "unreachable"},
		{"count fails", fakeRegistry{countErr: errors.New("boom")}, false, "count failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckRegistry(context.Background(), tt.reg)
			if got.Passed != tt.passed || !strings.Contains(got.Detail, tt.detail) {
				t.Fatalf("CheckRegistry = %+v", got)
			}
		})
	}
}

func TestCheckDaemonLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permanentes.lock")
	if got := CheckDaemonLock(path); !got.Skipped || got.Passed {
		t.Fatalf("free lock should be skipped, got %+v", got)
	}

	held := flock.New(path)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if got := CheckDaemonLock(path); !got.Passed {
		t.Fatalf("held lock should report running, got %+v", got)
	}
}

func TestCheckAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if got := CheckAPI(context.Background(), srv.URL, "good"); !got.Passed {
		t.Fatalf("expected pass, got %+v", got)
	}
	if got := CheckAPI(context.Background(), srv.URL, "bad"); got.Passed || !strings.Contains(got.Detail, "auth failed") {
		t.Fatalf("expected auth failure, got %+v", got)
	}
	if got := CheckAPI(context.Background(), "", ""); got.Passed {
		t.Fatalf("expected failure for empty url, got %+v", got)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7490": "http://127.0.0.1:7490",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		":9000":          "http://127.0.0.1:9000",
		"[::]:9000":      "http://127.0.0.1:9000",
		"nonsense":       "",
	}
	for bind, want := range tests {
		if got := baseURL(bind); got != want {
			t.Fatalf("baseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestRunAllWithoutDaemon(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "missing-logs")
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg, nil, errors.New("no driver"))
	if len(results) != 4 {
		t.Fatalf("expected 4 results without a running daemon, got %+v", results)
	}
	if !results[0].Passed || results[1].Passed {
		t.Fatalf("unexpected directory results %+v", results[:2])
	}
	if results[2].Passed || !strings.Contains(results[2].Detail, "no driver") {
		t.Fatalf("unexpected registry result %+v", results[2])
	}
	if !results[3].Skipped {
		t.Fatalf("daemon lock should be skipped, got %+v", results[3])
	}
	if !Failed(results) {
		t.Fatal("expected Failed to report the missing log dir")
	}
	if Failed([]Result{{Passed: true}, {Skipped: true}}) {
		t.Fatal("skipped results must not count as failures")
	}
}
