// Package server exposes the pipeline runner over HTTP.
//
// Routes:
//
//	GET    /healthz             liveness and build version
//	GET    /algorithms          registered transforms and adapters
//	GET    /palettes            built-in palettes
//	GET    /palettes/{key}      one palette
//	POST   /validate            validate a graph description
//	POST   /render              multipart image + graph (or preset), returns the encoded image
//	GET    /presets             list presets (prefix, tag, limit query params)
//	GET    /presets/{name}      load a preset
//	PUT    /presets/{name}      save a preset
//	DELETE /presets/{name}      delete a preset
//
// Errors are returned as JSON:
//
//	{"error": {"code": "INVALID_GRAPH", "message": "...", "problems": ["..."]}}
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/halftone/pkg/observability"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/store"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultMaxUpload bounds request bodies, uploaded images included.
	DefaultMaxUpload = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// Server serves the HTTP API. It is safe for concurrent use; all request
// state lives in the handlers.
type Server struct {
	runner    *pipeline.Runner
	store     store.Store
	logger    *log.Logger
	maxUpload int64
	maxPixels int
}

// New creates a server over runner. A nil store disables the preset routes
// (they answer 501) and the preset form field of /render.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, nil, logger)
	}
	return &Server{
		runner:    runner,
		store:     st,
		logger:    logger,
		maxUpload: DefaultMaxUpload,
		maxPixels: raster.DefaultMaxPixels,
	}
}

// SetMaxPixels overrides the largest image, in pixels, accepted by /render.
func (s *Server) SetMaxPixels(n int) {
	if n > 0 {
		s.maxPixels = n
	}
}

// SetMaxUpload overrides the request body limit.
func (s *Server) SetMaxUpload(n int64) {
	if n > 0 {
		s.maxUpload = n
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/algorithms", s.handleAlgorithms)
	r.Route("/palettes", func(r chi.Router) {
		r.Get("/", s.handlePalettes)
		r.Get("/{key}", s.handlePalette)
	})
	r.Post("/validate", s.handleValidate)
	r.Post("/render", s.handleRender)
	r.Route("/presets", func(r chi.Router) {
		r.Get("/", s.handleListPresets)
		r.Get("/{name}", s.handleGetPreset)
		r.Put("/{name}", s.handlePutPreset)
		r.Delete("/{name}", s.handleDeletePreset)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFoundRoute(r))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: detailFor(errMethodNotAllowed(r))})
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// logRequests logs one line per request and reports it to the HTTP hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)

		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed.Round(time.Microsecond))
	})
}
