package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/halftone/pkg/buildinfo"
	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/store"
)

// =============================================================================
// Catalog
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Get().Version,
	})
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Executor.Infos())
}

type paletteResponse struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	presets := palette.Presets()
	out := make([]paletteResponse, len(presets))
	for i, p := range presets {
		out[i] = paletteResponse{Key: p.Key, Name: p.Name, Colors: p.Colors.Hex()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	colors, err := palette.Lookup(key)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := paletteResponse{Key: key, Name: key, Colors: colors.Hex()}
	for _, p := range palette.Presets() {
		if p.Key == key {
			resp.Name = p.Name
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Pipelines
// =============================================================================

type validateResponse struct {
	Valid bool     `json:"valid"`
	Order []string `json:"order"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	d, err := graph.DecodeJSON(r.Body)
	if err != nil {
		writeError(w, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "decode graph: %v", err))
		return
	}
	g, err := buildGraph(d)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.runner.Executor.Validate(g); err != nil {
		writeError(w, err)
		return
	}
	order, err := pipeline.TopologicalOrder(g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Order: order})
}

// handleRender expects multipart/form-data with fields:
//   - image: the source image file (required)
//   - graph: a JSON graph description, or
//   - preset: the name of a saved preset
//   - format, max_side, smooth, refresh: render options
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "parse multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := renderOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := s.requestGraph(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "image file is required"))
		return
	}
	defer file.Close()
	src, _, err := raster.DecodeLimit(file, s.maxPixels)
	if err != nil {
		writeError(w, err)
		return
	}

	opts.Logger = s.logger
	res, err := s.runner.Render(r.Context(), g, src, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.Format.ContentType())
	h.Set("Content-Length", strconv.Itoa(len(res.Artifact)))
	h.Set("X-Graph-Hash", res.GraphHash)
	if res.CacheHit {
		h.Set("X-Cache", "hit")
	} else {
		h.Set("X-Cache", "miss")
		h.Set("X-Run-ID", res.RunID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifact)
}

func renderOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{Format: raster.Format(strings.ToLower(r.FormValue("format")))}
	if v := r.FormValue("max_side"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, herrors.New(herrors.ErrCodeInvalidInput, "max_side must be an integer, got %q", v)
		}
		opts.MaxSide = n
	}
	for name, dst := range map[string]*bool{"smooth": &opts.Smooth, "refresh": &opts.Refresh} {
		v := r.FormValue(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, herrors.New(herrors.ErrCodeInvalidInput, "%s must be a boolean, got %q", name, v)
		}
		*dst = b
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "%v", err)
	}
	return opts, nil
}

// requestGraph reads the graph from the "graph" field or loads the preset
// named by the "preset" field.
func (s *Server) requestGraph(r *http.Request) (*graph.Graph, error) {
	if raw := r.FormValue("graph"); raw != "" {
		d, err := graph.DecodeJSON(strings.NewReader(raw))
		if err != nil {
			return nil, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "decode graph: %v", err)
		}
		return buildGraph(d)
	}
	name := r.FormValue("preset")
	if name == "" {
		return nil, herrors.New(herrors.ErrCodeInvalidInput, "either graph or preset is required")
	}
	if s.store == nil {
		return nil, errNoStore()
	}
	p, err := s.store.Get(r.Context(), name)
	if err != nil {
		return nil, err
	}
	return buildGraph(p.Graph)
}

func buildGraph(d graph.Description) (*graph.Graph, error) {
	g, err := d.Build()
	if err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidGraph, err, "%v", err)
	}
	return g, nil
}

// =============================================================================
// Presets
// =============================================================================

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errNoStore())
		return
	}
	q := r.URL.Query()
	opts := store.ListOptions{Prefix: q.Get("prefix"), Tag: q.Get("tag")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, herrors.New(herrors.ErrCodeInvalidInput, "limit must be a non-negative integer, got %q", v))
			return
		}
		opts.Limit = n
	}
	list, err := s.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*store.Preset{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errNoStore())
		return
	}
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errNoStore())
		return
	}
	name := chi.URLParam(r, "name")

	var p store.Preset
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUpload))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		writeError(w, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "decode preset: %v", err))
		return
	}
	if p.Name != "" && p.Name != name {
		writeError(w, herrors.New(herrors.ErrCodeInvalidInput, "preset name %q does not match path %q", p.Name, name))
		return
	}
	p.Name = name

	if err := s.store.Put(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errNoStore())
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
