package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

const (
	registryCheckName = "Registry"
	daemonCheckName   = "API daemon"
	apiCheckName      = "API health"
)

// Registry is the part of the registry the checks exercise.
type Registry interface {
	Ping(ctx context.Context) error
	CountRecords(ctx context.Context) (int, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRegistry pings the registry and reports how many records it holds.
// An empty registry passes with a hint to import.
func CheckRegistry(ctx context.Context, reg Registry) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := reg.Ping(checkCtx); err != nil {
		return Result{Name: registryCheckName, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	count, err := reg.CountRecords(checkCtx)
	if err != nil {
		return Result{Name: registryCheckName, Detail: fmt.Sprintf("count failed (%v)", err)}
	}
	if count == 0 {
		return Result{Name: registryCheckName, Passed: true, Detail: "empty (run `permanentes import`)"}
	}
	return Result{Name: registryCheckName, Passed: true, Detail: fmt.Sprintf("%d records", count)}
}

// CheckDaemonLock reports whether a daemon holds the single-instance lock.
// Passed means a daemon is running; a free lock is reported as skipped.
func CheckDaemonLock(lockPath string) Result {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: daemonCheckName, Detail: fmt.Sprintf("lock check failed (%v)", err)}
	}
	if ok {
		_ = lock.Unlock()
		return Result{Name: daemonCheckName, Skipped: true, Detail: "not running"}
	}
	return Result{Name: daemonCheckName, Passed: true, Detail: "running (" + lockPath + ")"}
}

// CheckAPI calls the daemon's health endpoint.
func CheckAPI(ctx context.Context, baseURL, token string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: apiCheckName, Detail: "missing or invalid api_bind"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return Result{Name: apiCheckName, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: apiCheckName, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: apiCheckName, Passed: true, Detail: "reachable at " + base}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: apiCheckName, Detail: "auth failed (check api_token)"}
	case http.StatusServiceUnavailable:
		return Result{Name: apiCheckName, Detail: "daemon reports registry unavailable"}
	default:
		return Result{Name: apiCheckName, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}
