package preflight

import (
	"context"
	"net"
	"strings"

	"permanentes/internal/config"
)

// Result reports the outcome of a single preflight check. Skipped results
// are informational and count as neither pass nor failure.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail"`
}

// RunAll executes every check for cfg. reg may be nil when the registry
// could not be opened; the registry check then reports openErr.
func RunAll(ctx context.Context, cfg *config.Config, reg Registry, openErr error) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if reg == nil {
		results = append(results, Result{Name: registryCheckName, Detail: describeOpenError(openErr)})
	} else {
		results = append(results, CheckRegistry(ctx, reg))
	}

	lock := CheckDaemonLock(cfg.LockPath())
	results = append(results, lock)
	if lock.Passed {
		results = append(results, CheckAPI(ctx, baseURL(cfg.Paths.APIBind), cfg.Paths.APIToken))
	}
	return results
}

// Failed reports whether any non-skipped result failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			return true
		}
	}
	return false
}

// baseURL turns a bind address into a loopback-reachable URL.
func baseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func describeOpenError(err error) string {
	if err == nil {
		return "registry not opened"
	}
	return "open failed: " + err.Error()
}
