// Package httpapi accepts utterances over HTTP and answers with the
// interpreter's reply.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"smart-home-bot/internal/application"
)

type Config struct {
	Addr              string
	AuthToken         string
	RequestsPerMinute int
	// ReplyTimeout bounds how long POST /interpret waits for the reply.
	ReplyTimeout time.Duration
}

type Source struct {
	cfg       Config
	server    *http.Server
	queue     chan application.Utterance
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	mux       *http.ServeMux
	closeOnce sync.Once
	closed    chan struct{}
}

type interpretRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type interpretResponse struct {
	Reply string `json:"reply"`
}

// NewSource builds the HTTP transport. metrics, when non-nil, is served on GET /metrics.
func NewSource(cfg Config, metrics http.Handler, logger *slog.Logger) *Source {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 3 * time.Minute
	}

	s := &Source{
		cfg:    cfg,
		queue:  make(chan application.Utterance, 10),
		logger: logger,
		mux:    http.NewServeMux(),
		closed: make(chan struct{}),
	}

	limiter := NewRateLimiter(cfg.RequestsPerMinute, time.Minute)
	s.mux.HandleFunc("POST /interpret", limiter.Middleware(s.authorized(s.handleInterpret)))
	s.mux.HandleFunc("POST /text", limiter.Middleware(s.authorized(s.handleText)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

func (s *Source) Name() string {
	return "http"
}

func (s *Source) Handler() http.Handler {
	return s.mux
}

func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.ReplyTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.closed) })

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Source) Next(ctx context.Context) (application.Utterance, error) {
	select {
	case <-ctx.Done():
		return application.Utterance{}, ctx.Err()
	case <-s.closed:
		return application.Utterance{}, application.ErrSourceClosed
	case u := <-s.queue:
		return u, nil
	}
}

func (s *Source) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.cfg.AuthToken {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Source) handleInterpret(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req interpretRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 8*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.User == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user and text are required")
		return
	}

	replies := make(chan string, 1)
	u := application.Utterance{
		UserKey: req.User,
		Text:    req.Text,
		Reply: func(_ context.Context, text string) error {
			select {
			case replies <- text:
			default:
			}
			return nil
		},
	}

	if !s.enqueue(u) {
		writeError(w, http.StatusServiceUnavailable, "queue full, try again")
		return
	}
	s.logger.Info("received utterance via HTTP", "user", req.User)

	timer := time.NewTimer(s.cfg.ReplyTimeout)
	defer timer.Stop()

	select {
	case reply := <-replies:
		writeJSON(w, http.StatusOK, interpretResponse{Reply: reply})
	case <-timer.C:
		writeError(w, http.StatusGatewayTimeout, "timed out waiting for reply")
	case <-r.Context().Done():
	}
}

// handleText queues a plain-text utterance without waiting for the reply.
func (s *Source) handleText(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	text := strings.TrimSpace(string(data))
	user := r.Header.Get("X-User-Key")
	if user == "" {
		user = r.URL.Query().Get("user")
	}
	if text == "" || user == "" {
		writeError(w, http.StatusBadRequest, "user and text are required")
		return
	}

	u := application.Utterance{
		UserKey: user,
		Text:    text,
		Reply: func(_ context.Context, reply string) error {
			s.logger.Info("reply to queued text command", "user", user, "reply", reply)
			return nil
		},
	}

	if !s.enqueue(u) {
		writeError(w, http.StatusServiceUnavailable, "queue full, try again")
		return
	}
	s.logger.Info("received text command via HTTP", "user", user)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (s *Source) enqueue(u application.Utterance) bool {
	select {
	case s.queue <- u:
		return true
	default:
		return false
	}
}

func (s *Source) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":     status,
		"running":    running,
		"queue_size": len(s.queue),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
