// Package server exposes a grading.Backend over the REST protocol spoken by
// backend.Client. `grader serve` runs it against the local SQLite store.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/backend"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/pkg/compress"
)

const (
	requestLimit = 1 << 20
	// compressMin is the smallest body worth compressing.
	compressMin = 512

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr string
	// Token, when set, is required as a bearer token on every route but /health.
	Token string
}

// Server is the grading REST API.
type Server struct {
	backend grading.Backend
	token   string
	mux     *http.ServeMux
	server  *http.Server
	logger  zerolog.Logger
}

// New creates a server over b.
func New(b grading.Backend, opts Options) *Server {
	s := &Server{
		backend: b,
		token:   strings.TrimSpace(opts.Token),
		mux:     http.NewServeMux(),
		logger:  logging.Component("server"),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	const work = "/classrooms/{classroom}/assignments/{assignment}/works/{work}"

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /classrooms/{classroom}/assignments/{assignment}/works/first", s.handleFirstSubmission)
	s.mux.HandleFunc("GET "+work, s.handleSubmission)
	s.mux.HandleFunc("GET "+work+"/tree", s.handleTree)
	s.mux.HandleFunc("GET "+work+"/file", s.handleFile)
	s.mux.HandleFunc("GET "+work+"/feedback", s.handleListFeedback)
	s.mux.HandleFunc("POST "+work+"/feedback", s.handleSaveFeedback)
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.withAuth(s.mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("grading server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeJSON writes v as the response body, zstd-encoded when the client
// accepts it and the body is large enough to matter.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger := logging.Component("server")
		logger.Error().Err(err).Msg("json encode error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body := buf.Bytes()
	if r != nil && len(body) >= compressMin && backend.AcceptsZstd(r.Header.Get("Accept-Encoding")) {
		if encoded, err := compress.Encode(body); err == nil {
			body = encoded
			w.Header().Set("Content-Encoding", backend.EncodingZstd)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, backend.ErrorResponse{Error: msg})
}

// readJSON decodes a JSON request body into v. Unknown fields are rejected.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestLimit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
