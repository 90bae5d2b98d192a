// Package listener provides an HTTP listener whose Open and Close methods
// are lifecycle operations, so a lifecycle.Service can coordinate it.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/bft-labs/startstop/pkg/lifecycle"
	"github.com/bft-labs/startstop/pkg/log"
)

var (
	// ErrAlreadyOpen is returned by Open while the listener is serving.
	ErrAlreadyOpen = errors.New("listener: already open")

	// ErrBadAddress is returned by Open when its address argument is not a string.
	ErrBadAddress = errors.New("listener: address argument must be a string")
)

// StatusFunc reports the lifecycle status served on /status and /healthz.
type StatusFunc func() lifecycle.Status

// Listener serves the status endpoints of a coordinated service.
type Listener struct {
	addr            string
	status          StatusFunc
	logger          log.Logger
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	extra           map[string]http.Handler

	mu     sync.Mutex
	server *http.Server
	bound  net.Addr
}

// Option is a functional option for configuring a Listener.
type Option func(*Listener)

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(l *Listener) {
		l.readTimeout = timeout
	}
}

// WithWriteTimeout sets the HTTP server write timeout.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(l *Listener) {
		l.writeTimeout = timeout
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout used when the
// context passed to Close has no deadline.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(l *Listener) {
		l.shutdownTimeout = timeout
	}
}

// WithLogger sets the logger for serve errors.
func WithLogger(logger log.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithHandler mounts h at path next to the status endpoints, for example
// a Prometheus handler at /metrics.
func WithHandler(path string, h http.Handler) Option {
	return func(l *Listener) {
		if path != "" && h != nil {
			l.extra[path] = h
		}
	}
}

// New creates a Listener for addr. status is queried on every request.
func New(addr string, status StatusFunc, opts ...Option) *Listener {
	l := &Listener{
		addr:            addr,
		status:          status,
		logger:          log.NewNoopLogger(),
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		extra:           make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open binds the address and starts serving in the background. A non-empty
// string in args[0] replaces the configured address for this and later opens.
func (l *Listener) Open(ctx context.Context, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return ErrAlreadyOpen
	}
	if len(args) > 0 {
		addr, ok := args[0].(string)
		if !ok {
			return fmt.Errorf("%w, got %T", ErrBadAddress, args[0])
		}
		if addr != "" {
			l.addr = addr
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}

	server := &http.Server{
		Handler:      l.Handler(),
		ReadTimeout:  l.readTimeout,
		WriteTimeout: l.writeTimeout,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("listener stopped serving", log.String("addr", ln.Addr().String()), log.Err(err))
		}
	}()

	l.server = server
	l.bound = ln.Addr()
	l.logger.Info("listening", log.String("addr", l.bound.String()))
	return nil
}

// Close gracefully shuts the server down, waiting for in-flight requests.
func (l *Listener) Close(ctx context.Context, args ...any) error {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()

	if server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.shutdownTimeout)
		defer cancel()
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown listener: %w", err)
	}

	l.mu.Lock()
	l.server = nil
	l.bound = nil
	l.mu.Unlock()
	return nil
}

// Addr returns the bound address while open, otherwise the configured one.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bound != nil {
		return l.bound.String()
	}
	return l.addr
}

type statusResponse struct {
	State lifecycle.State `json:"state"`
	Error string          `json:"error,omitempty"`
}

// Handler returns the HTTP handler serving /status, /healthz and any
// handlers mounted with WithHandler.
func (l *Listener) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", l.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", l.handleHealth).Methods(http.MethodGet)
	for path, h := range l.extra {
		r.Handle(path, h)
	}
	return r
}

func (l *Listener) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := l.status()
	resp := statusResponse{State: st.State}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		l.logger.Warn("failed to write status response", log.Err(err))
	}
}

func (l *Listener) handleHealth(w http.ResponseWriter, r *http.Request) {
	if st := l.status(); st.State != lifecycle.StateStarted {
		http.Error(w, st.String(), http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "ok")
}
