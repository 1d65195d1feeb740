// Package shutdown turns termination signals into probe cancellation and cleanup.
package shutdown

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Handler manages graceful shutdown.
type Handler struct {
	mu sync.Mutex

	// Callbacks
	callbacks     []Callback
	callbackNames []string

	// State
	isShuttingDown atomic.Bool
	done           chan struct{}
	timeout        time.Duration

	// Context
	ctx    context.Context
	cancel context.CancelFunc

	// Signal handling
	sigChan  chan os.Signal
	received atomic.Value // os.Signal

	// Notification
	onShutdownStart func(sig os.Signal)
	onShutdownDone  func(elapsed time.Duration, errors []error)
}

// Callback is a function called during shutdown.
type Callback func(ctx context.Context) error

// Config holds shutdown configuration.
type Config struct {
	Parent          context.Context // defaults to context.Background()
	Timeout         time.Duration
	Signals         []os.Signal
	OnShutdownStart func(sig os.Signal) // sig is nil for programmatic shutdown
	OnShutdownDone  func(elapsed time.Duration, errors []error)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// New creates a new shutdown handler and starts catching its signals.
func New(cfg Config) *Handler {
	if cfg.Parent == nil {
		cfg.Parent = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(cfg.Parent)

	h := &Handler{
		callbacks:       make([]Callback, 0),
		callbackNames:   make([]string, 0),
		done:            make(chan struct{}),
		timeout:         cfg.Timeout,
		ctx:             ctx,
		cancel:          cancel,
		sigChan:         make(chan os.Signal, 1),
		onShutdownStart: cfg.OnShutdownStart,
		onShutdownDone:  cfg.OnShutdownDone,
	}

	signal.Notify(h.sigChan, cfg.Signals...)

	return h
}

// NewDefault creates a handler with default configuration.
func NewDefault() *Handler {
	return New(DefaultConfig())
}

// Register registers a shutdown callback with a name.
func (h *Handler) Register(name string, callback Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.callbacks = append(h.callbacks, callback)
	h.callbackNames = append(h.callbackNames, name)
}

// RegisterFunc registers a simple cleanup function.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// RegisterCloser registers an io.Closer for shutdown.
func (h *Handler) RegisterCloser(name string, c io.Closer) {
	h.Register(name, func(ctx context.Context) error {
		return c.Close()
	})
}

// Context returns the shutdown context.
// This context is cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// IsShuttingDown returns whether shutdown is in progress.
func (h *Handler) IsShuttingDown() bool {
	return h.isShuttingDown.Load()
}

// Signal returns the signal that triggered shutdown, or nil.
func (h *Handler) Signal() os.Signal {
	sig, _ := h.received.Load().(os.Signal)
	return sig
}

// Done returns a channel that is closed when shutdown completes.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until a shutdown signal is received or the parent context ends.
func (h *Handler) Wait() {
	select {
	case sig := <-h.sigChan:
		h.received.Store(sig)
		h.Shutdown()
	case <-h.ctx.Done():
		// Parent cancelled or already shutting down
		h.Shutdown()
	}
}

// ListenAndShutdown starts listening for signals and handles shutdown.
// Returns a channel that is closed when shutdown is complete.
func (h *Handler) ListenAndShutdown() <-chan struct{} {
	go h.Wait()
	return h.done
}

// Shutdown cancels the context and runs callbacks in reverse order.
func (h *Handler) Shutdown() {
	if !h.isShuttingDown.CompareAndSwap(false, true) {
		return
	}

	start := time.Now()

	if h.onShutdownStart != nil {
		h.onShutdownStart(h.Signal())
	}

	h.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), h.timeout)
	defer shutdownCancel()

	var errors []error
	h.mu.Lock()
	callbacks := make([]Callback, len(h.callbacks))
	names := make([]string, len(h.callbackNames))
	copy(callbacks, h.callbacks)
	copy(names, h.callbackNames)
	h.mu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		if err := h.executeCallback(shutdownCtx, names[i], callbacks[i]); err != nil {
			errors = append(errors, err)
		}
	}

	if h.onShutdownDone != nil {
		h.onShutdownDone(time.Since(start), errors)
	}

	signal.Stop(h.sigChan)
	close(h.done)
}

// executeCallback executes a shutdown callback with timeout handling.
func (h *Handler) executeCallback(ctx context.Context, name string, callback Callback) error {
	done := make(chan error, 1)

	go func() {
		done <- callback(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{CallbackName: name}
	}
}

// Trigger simulates a SIGTERM (for testing or programmatic shutdown).
func (h *Handler) Trigger() {
	select {
	case h.sigChan <- syscall.SIGTERM:
	default:
		// Signal already pending
	}
}

// TimeoutError is returned when a callback times out.
type TimeoutError struct {
	CallbackName string
}

func (e *TimeoutError) Error() string {
	return "shutdown callback timed out: " + e.CallbackName
}
