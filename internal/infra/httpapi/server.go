package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"micrecorder/internal/application"
	"micrecorder/internal/domain"
	"micrecorder/internal/infra/library"
)

// Recorder is the part of the recorder service the API drives.
type Recorder interface {
	Do(ctx context.Context, cmd domain.Command) (application.Status, error)
	Status() application.Status
}

// RecordingLister backs GET /recordings.
type RecordingLister interface {
	List() ([]library.Entry, error)
}

type StartRequest struct {
	OutputPath string `json:"output_path"`
	SourceMode string `json:"source_mode"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Status *application.Status `json:"status,omitempty"`
}

// Server is the recorder's HTTP command API.
type Server struct {
	addr        string
	recorder    Recorder
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	authToken   string
	stopToken   string
	recordings  RecordingLister
}

// NewServer registers the API routes. An empty authToken disables
// authentication; a nil limiter disables rate limiting.
func NewServer(addr, authToken string, limiter *RateLimiter, recorder Recorder, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		recorder:    recorder,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: limiter,
		authToken:   authToken,
	}
	s.mux.HandleFunc("POST /start", s.command(s.handleStart, false))
	s.mux.HandleFunc("POST /stop", s.command(s.handleStop, true))
	// GET so the notification's Stop link works from a browser.
	s.mux.HandleFunc("GET /stop", s.command(s.handleStop, true))
	s.mux.HandleFunc("GET /status", s.authorized(s.handleStatus, false))
	s.mux.HandleFunc("GET /recordings", s.authorized(s.handleRecordings, false))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// WithRecordings enables GET /recordings.
func (s *Server) WithRecordings(l RecordingLister) *Server {
	s.recordings = l
	return s
}

// WithStopToken accepts token on /stop only. It is the token handed out in
// notification links, so it cannot start recordings or read status.
func (s *Server) WithStopToken(token string) *Server {
	s.stopToken = token
	return s
}

// Handler returns the API routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP command server starting", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (s *Server) command(next http.HandlerFunc, stopTokenOK bool) http.HandlerFunc {
	h := s.authorized(next, stopTokenOK)
	if s.rateLimiter != nil {
		h = s.rateLimiter.Middleware(h)
	}
	return h
}

func (s *Server) authorized(next http.HandlerFunc, stopTokenOK bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			ok := tokenEqual(token, s.authToken) || (stopTokenOK && tokenEqual(token, s.stopToken))
			if !ok {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
	}

	mode, err := domain.ParseSourceMode(req.SourceMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("start requested", "path", req.OutputPath, "source", mode, "remote_addr", r.RemoteAddr)
	status, err := s.recorder.Do(r.Context(), domain.StartCommand(req.OutputPath, mode))
	s.reply(w, status, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("stop requested", "remote_addr", r.RemoteAddr)
	status, err := s.recorder.Do(r.Context(), domain.StopCommand())
	s.reply(w, status, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Status())
}

func (s *Server) handleRecordings(w http.ResponseWriter, _ *http.Request) {
	if s.recordings == nil {
		writeError(w, http.StatusNotFound, "recordings listing disabled")
		return
	}
	entries, err := s.recordings.List()
	if err != nil {
		s.logger.Error("listing recordings", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []library.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.recorder.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"state":      status.State,
		"foreground": status.Foreground,
	})
}

func (s *Server) reply(w http.ResponseWriter, status application.Status, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, status)
		return
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrServiceClosed), errors.Is(err, domain.ErrQueueFull):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case domain.IsAcquisitionError(err):
		s.logger.Error("recording failed to start", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Status: &status})
}

func tokenEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
