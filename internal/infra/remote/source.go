package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"unified-control/internal/domain"
)

const maxCommandBytes = 1024

// StatusFunc reports the current state of every link for /health.
type StatusFunc func() map[domain.Role]domain.LinkState

// Source accepts operator commands over HTTP and hands them to the session
// through a small queue.
type Source struct {
	addr        string
	authToken   string
	server      *http.Server
	listener    net.Listener
	commands    chan string
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	router      chi.Router
	closeOnce   sync.Once
	rateLimiter *RateLimiter
	status      StatusFunc
}

// NewSource builds the HTTP surface. metrics may be nil, in which case
// /metrics is not served.
func NewSource(addr, authToken string, ratePerMinute int, status StatusFunc, metrics http.Handler, logger *slog.Logger) *Source {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	s := &Source{
		addr:        addr,
		authToken:   authToken,
		commands:    make(chan string, 10),
		logger:      logger,
		router:      chi.NewRouter(),
		rateLimiter: NewRateLimiter(ratePerMinute, time.Minute),
		status:      status,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.With(s.rateLimiter.Middleware, s.requireToken).Post("/command", s.handleCommand)
	s.router.Get("/health", s.handleHealth)
	if metrics != nil {
		s.router.Handle("/metrics", metrics)
	}

	return s
}

func (s *Source) Name() string {
	return "http"
}

func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP command server starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	server := s.server
	s.running = false
	s.mu.Unlock()

	// The lock is released first: /health takes it while a shutdown waits
	// for in-flight requests.
	var err error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", shutdownErr)
			if closeErr := server.Close(); closeErr != nil {
				err = fmt.Errorf("closing server: %w", closeErr)
			}
		}
	}

	s.closeOnce.Do(func() {
		close(s.commands)
	})
	return err
}

// Addr is the bound listen address once started.
func (s *Source) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Source) NextCommand(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case cmd, ok := <-s.commands:
		if !ok {
			return "", io.EOF
		}
		return cmd, nil
	}
}

func (s *Source) Handler() http.Handler {
	return s.router
}

func (s *Source) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized command request", "remote_addr", r.RemoteAddr)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Source) handleCommand(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty command"})
		return
	}

	select {
	case s.commands <- text:
		s.logger.Info("received command via HTTP", "command", text)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": text})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue full, try again"})
	}
}

func (s *Source) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	queueSize := len(s.commands)
	s.mu.Unlock()

	links := make(map[domain.Role]string)
	if s.status != nil {
		for role, state := range s.status() {
			links[role] = state.String()
		}
	}

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":     status,
		"running":    running,
		"queue_size": queueSize,
		"links":      links,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
