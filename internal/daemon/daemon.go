package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"permanentes/internal/config"
	"permanentes/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another permanentes daemon instance is already running")

// Daemon serves the API handler on the configured bind address.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler http.Handler

	lockPath string
	lock     *flock.Flock

	stopMu   sync.Mutex
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	started  time.Time

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Address      string
	LockFilePath string
	Uptime       time.Duration
}

// New constructs a daemon around an already built API handler.
func New(cfg *config.Config, handler http.Handler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || handler == nil {
		return nil, errors.New("daemon requires config and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		handler:  handler,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving. The server shuts down
// when ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	bind := strings.TrimSpace(d.cfg.Paths.APIBind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}

	server := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(d.logger.Handler(), slog.LevelWarn),
	}
	done := make(chan struct{})

	d.mu.Lock()
	d.server = server
	d.listener = listener
	d.done = done
	d.started = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server error", logging.Error(err))
			d.abandon()
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			d.Stop()
		case <-done:
		}
	}()

	d.logger.Info("permanentes daemon started",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop shuts the server down and releases the lock. It is safe to call more
// than once; concurrent callers return after the shutdown completes.
func (d *Daemon) Stop() {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	d.mu.Lock()
	server := d.server
	done := d.done
	d.server = nil
	d.listener = nil
	d.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("api server shutdown incomplete", logging.Error(err))
			_ = server.Close()
		}
		cancel()
	}
	if done != nil {
		<-done
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("permanentes daemon stopped")
}

// abandon releases the lock after the server stopped on its own. It must not
// wait on done, which the serving goroutine closes after it returns.
func (d *Daemon) abandon() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.mu.Lock()
	d.server = nil
	d.listener = nil
	d.mu.Unlock()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Warn("permanentes daemon stopped after server failure")
}

// Wait blocks until the server has stopped serving.
func (d *Daemon) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Addr returns the bound listener address, or "" when not running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Status reports the current runtime state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
	}
	if d.listener != nil {
		status.Address = d.listener.Addr().String()
	}
	if status.Running && !d.started.IsZero() {
		status.Uptime = time.Since(d.started)
	}
	return status
}
