// Package pipeline validates and executes image processing graphs.
//
// A graph (see package graph) wires input, effect and output nodes. This
// package checks its structure, orders its nodes and runs each effect
// through the transform registry or a host [Adapter].
//
// # Architecture
//
//  1. Validate: collect every structural problem ([Validate])
//  2. Order: depth-first post-order over incoming edges ([TopologicalOrder])
//  3. Execute: run nodes in order with a per-run output cache ([Executor])
//
// On top of the executor, [Runner] adds a content-addressed artifact cache
// for encoded results, and [Executor.RunFrames] renders frame sequences on a
// bounded worker pool.
//
// # Usage
//
//	exec := pipeline.NewExecutor(nil, logger)
//	out, err := exec.Execute(ctx, g, src)
//	if err != nil {
//	    var ve *errors.ValidationError
//	    if stderrors.As(err, &ve) {
//	        // show ve.Problems
//	    }
//	}
//
// # Errors
//
// Structural problems are reported as one *errors.ValidationError before
// any node runs. A failing node aborts the run with *errors.NodeError. An
// output node without a result after a successful run is an executor bug
// and panics.
//
// # Concurrency
//
// Executors and Runners hold no per-run state and are safe for concurrent
// use. Each run owns its cache; source buffers and graphs are only read.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/halftone/pkg/cache"
	"github.com/matzehuels/halftone/pkg/raster"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultFormat is the default encoding of rendered artifacts.
	DefaultFormat = raster.FormatPNG

	// DefaultWorkers is the default size of the frame worker pool.
	DefaultWorkers = 4

	// MaxSideLimit bounds the MaxSide option.
	MaxSideLimit = 16384
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[raster.Format]bool{
	raster.FormatPNG:  true,
	raster.FormatJPEG: true,
	raster.FormatGIF:  true,
	raster.FormatBMP:  true,
	raster.FormatTIFF: true,
}

// =============================================================================
// Options - Runner Configuration
// =============================================================================

// Options configures a [Runner] render. It supports JSON serialization for
// API requests.
type Options struct {
	// Format is the artifact encoding, default png.
	Format raster.Format `json:"format,omitempty"`
	// MaxSide downsizes the source so neither side exceeds it; 0 keeps the
	// source size.
	MaxSide int `json:"max_side,omitempty"`
	// Smooth selects Catmull-Rom resampling for MaxSide instead of
	// nearest-neighbor.
	Smooth bool `json:"smooth,omitempty"`
	// Refresh bypasses cache reads; the new result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a render.
type Result struct {
	// RunID identifies the execution; empty on a cache hit.
	RunID string

	// Output is the rendered buffer. It is nil when the artifact was
	// served from the cache.
	Output *raster.Buffer

	// Artifact is Output encoded in Format.
	Artifact []byte
	Format   raster.Format

	// GraphHash and SourceHash are the content hashes used in the cache key.
	GraphHash  string
	SourceHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether Artifact came from the cache.
	CacheHit bool
}

// Stats contains render statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Width       int
	Height      int
	ExecuteTime time.Duration
	EncodeTime  time.Duration
	Nodes       []NodeStat
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format raster.Format) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: png, jpeg, gif, bmp, tiff)", format)
	}
	return nil
}

// ValidateAndSetDefaults checks option values and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.MaxSide < 0 || o.MaxSide > MaxSideLimit {
		return fmt.Errorf("invalid max_side: %d (must be between 0 and %d)", o.MaxSide, MaxSideLimit)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: string(o.Format), MaxSide: o.MaxSide, Smooth: o.Smooth}
}
