package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/vtable"
	"github.com/hupe1980/vtable/codec"
	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// Codec encodes response and decodes request bodies.
	Codec codec.Codec

	// MaxBodyBytes bounds request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// RateLimit is the sustained requests per second. Zero disables
	// limiting.
	RateLimit rate.Limit

	// Burst is the limiter bucket size. Zero means max(1, RateLimit).
	Burst int

	Logger *vtable.Logger
}

// Server is an http.Handler exposing a vtable.DB.
type Server struct {
	db      *vtable.DB
	opts    Options
	mux     *http.ServeMux
	limiter *rate.Limiter
	logger  *vtable.Logger
}

// New returns a Server for db.
func New(db *vtable.DB, optFns ...func(o *Options)) *Server {
	opts := Options{
		Codec:        codec.Default,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Codec = codec.OrDefault(opts.Codec)
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = vtable.NoopLogger()
	}

	s := &Server{
		db:     db,
		opts:   opts,
		mux:    http.NewServeMux(),
		logger: opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = max(1, int(opts.RateLimit))
		}
		s.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/tables", s.handleCreateTable)
	s.mux.HandleFunc("GET /v1/tables", s.handleListTables)
	s.mux.HandleFunc("GET /v1/tables/{id}", s.handleAssembleTable)
	s.mux.HandleFunc("PATCH /v1/tables/{id}", s.handleUpdateTable)
	s.mux.HandleFunc("DELETE /v1/tables/{id}", s.handleDeleteTable)

	s.mux.HandleFunc("POST /v1/tables/{id}/columns", s.handleCreateColumn)
	s.mux.HandleFunc("PATCH /v1/columns/{id}", s.handleUpdateColumn)
	s.mux.HandleFunc("DELETE /v1/columns/{id}", s.handleDeleteColumn)

	s.mux.HandleFunc("POST /v1/tables/{id}/rows", s.handleCreateRow)
	s.mux.HandleFunc("DELETE /v1/rows/{id}", s.handleDeleteRow)

	s.mux.HandleFunc("PUT /v1/rows/{rowId}/cells/{columnId}", s.handleUpdateCell)

	s.mux.HandleFunc("POST /v1/messages", s.handleSendMessage)
	s.mux.HandleFunc("GET /v1/messages", s.handleListMessages)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(sw, r, ErrRateLimited)
	} else {
		s.mux.ServeHTTP(sw, r)
	}

	s.logger.DebugContext(r.Context(), "http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", sw.status,
		"duration", time.Since(start))
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := codec.Decode(s.opts.Codec, r.Body, s.opts.MaxBodyBytes, v); err != nil {
		return fmt.Errorf("%w: request body: %v", vtable.ErrValidation, err)
	}
	return nil
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := s.opts.Codec.Marshal(v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.DebugContext(r.Context(), "http write failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "http request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	body, mErr := s.opts.Codec.Marshal(ErrorBody{Error: ErrorDetail{Kind: kind, Message: err.Error()}})
	if mErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
