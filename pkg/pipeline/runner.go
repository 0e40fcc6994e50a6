package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/halftone/pkg/cache"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/observability"
	"github.com/matzehuels/halftone/pkg/raster"
)

// Runner encapsulates graph execution with an artifact cache.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store render results. Multiple goroutines can safely use the same Runner.
//
// Cache keys are derived from the canonical graph description, the source
// pixels and the encoding options, so edited parameters always miss.
type Runner struct {
	Executor *Executor
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger

	// TTL is the lifetime of stored artifacts, default cache.TTLArtifact.
	TTL time.Duration
}

// NewRunner creates a runner.
// If exec is nil, an executor over the default registry is used.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(exec *Executor, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if exec == nil {
		exec = NewExecutor(nil, logger)
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Runner{
		Executor: exec,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Render runs g on src and encodes the output, consulting the artifact
// cache first. Invalid graphs fail before the cache is touched.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, src *raster.Buffer, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := r.Executor.Validate(g); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	src = raster.Fit(src, opts.MaxSide, opts.Smooth)

	result, key, err := r.prepare(g, src, SourceHash(src), opts)
	if err != nil {
		return nil, err
	}
	if r.lookup(ctx, key, opts, result) {
		r.Logger.Info("served from cache", "format", result.Format, "bytes", len(result.Artifact))
		return result, nil
	}

	if err := r.execute(ctx, g, src, opts, result); err != nil {
		return nil, err
	}
	r.store(ctx, key, result.Artifact)

	r.Logger.Info("rendered image",
		"size", fmt.Sprintf("%dx%d", result.Stats.Width, result.Stats.Height),
		"format", result.Format,
		"duration", result.Stats.ExecuteTime+result.Stats.EncodeTime)
	return result, nil
}

// RenderSequence renders n animated frames of one still image. Every frame
// is cached under a key built from its own animated graph, so changing the
// schedule never reuses stale frames. Frames are rendered on a bounded
// worker pool and returned in order.
func (r *Runner) RenderSequence(ctx context.Context, g *graph.Graph, src *raster.Buffer, n int, fopts FrameOptions, opts Options) ([]*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if n < 1 {
		return nil, fmt.Errorf("frame count must be positive, got %d", n)
	}
	if err := fopts.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := r.Executor.Validate(g); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	src = raster.Fit(src, opts.MaxSide, opts.Smooth)
	sourceHash := SourceHash(src)

	results := make([]*Result, n)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(fopts.workers())
	for i := range n {
		eg.Go(func() error {
			frameGraph := fopts.FrameGraph(g, i, n)
			res, _, err := r.prepare(frameGraph, src, sourceHash, opts)
			if err != nil {
				return err
			}
			key := r.Keyer.FrameKey(res.GraphHash, res.SourceHash, i, n, opts.ArtifactKeyOpts())
			if !r.lookup(ctx, key, opts, res) {
				if err := r.execute(ctx, frameGraph, src, opts, res); err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				r.store(ctx, key, res.Artifact)
			}
			results[i] = res
			if fopts.OnFrame != nil {
				fopts.OnFrame(i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	r.Logger.Info("rendered sequence", "frames", n, "animation", fopts.Schedule.Mode)
	return results, nil
}

// prepare hashes the graph and builds the artifact key.
func (r *Runner) prepare(g *graph.Graph, src *raster.Buffer, sourceHash string, opts Options) (*Result, string, error) {
	canonical, err := graph.Canonical(g)
	if err != nil {
		return nil, "", fmt.Errorf("serialize graph for cache key: %w", err)
	}
	res := &Result{
		Format:     opts.Format,
		GraphHash:  cache.Hash(canonical),
		SourceHash: sourceHash,
		Stats: Stats{
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
			Width:     src.Width,
			Height:    src.Height,
		},
	}
	return res, r.Keyer.ArtifactKey(res.GraphHash, res.SourceHash, opts.ArtifactKeyOpts()), nil
}

func (r *Runner) lookup(ctx context.Context, key string, opts Options, res *Result) bool {
	if opts.Refresh {
		return false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "artifact")
		return false
	}
	observability.Cache().OnCacheHit(ctx, "artifact")
	res.Artifact = data
	res.CacheHit = true
	return true
}

func (r *Runner) execute(ctx context.Context, g *graph.Graph, src *raster.Buffer, opts Options, res *Result) error {
	x := r.Executor.NewExecution(g)
	start := time.Now()
	out, err := x.Run(ctx, src)
	if err != nil {
		return err
	}
	res.RunID = x.ID
	res.Output = out
	res.Stats.ExecuteTime = time.Since(start)
	res.Stats.Nodes = x.Nodes

	start = time.Now()
	var buf bytes.Buffer
	if err := raster.Encode(&buf, out, opts.Format); err != nil {
		return err
	}
	res.Artifact = buf.Bytes()
	res.Stats.EncodeTime = time.Since(start)
	return nil
}

func (r *Runner) store(ctx context.Context, key string, data []byte) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLArtifact
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "artifact", len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// SourceHash returns the content hash of a buffer's dimensions and pixels.
func SourceHash(b *raster.Buffer) string {
	return cache.HashPixels(b.Width, b.Height, b.Pix)
}
