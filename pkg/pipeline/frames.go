package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/halftone/pkg/animate"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/observability"
	"github.com/matzehuels/halftone/pkg/raster"
)

// FrameOptions configures [Executor.RunFrames].
type FrameOptions struct {
	// Workers bounds the number of frames rendered at once, default
	// DefaultWorkers.
	Workers int

	// Schedule animates node parameters across the sequence. The zero value
	// renders every frame with the graph as given.
	Schedule animate.Schedule

	// OnFrame, if set, is called from worker goroutines after each frame
	// completes.
	OnFrame func(index int)
}

func (o FrameOptions) workers() int {
	if o.Workers <= 0 {
		return DefaultWorkers
	}
	return o.Workers
}

// FrameGraph returns the graph used for frame i of n: g itself, or a copy
// carrying the schedule's parameters for that frame.
func (o FrameOptions) FrameGraph(g *graph.Graph, i, n int) *graph.Graph {
	if !o.Schedule.Active() {
		return g
	}
	return o.Schedule.Apply(g, animate.Progress(i, n))
}

// RunFrames executes g on every frame and returns the outputs in input
// order. Frames are independent: each runs its own execution on a bounded
// worker pool, sharing only the read-only graph and registry.
//
// The graph and schedule are validated before any frame starts. The first
// failing frame cancels the remaining ones and its error is returned.
func (e *Executor) RunFrames(ctx context.Context, g *graph.Graph, frames []*raster.Buffer, opts FrameOptions) ([]*raster.Buffer, error) {
	if err := opts.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := e.Validate(g); err != nil {
		return nil, err
	}

	out := make([]*raster.Buffer, len(frames))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())
	for i, frame := range frames {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			buf, err := e.Execute(ctx, opts.FrameGraph(g, i, len(frames)), frame)
			observability.Pipeline().OnFrameComplete(ctx, i, len(frames), time.Since(start), err)
			if err != nil {
				return err
			}
			out[i] = buf
			if opts.OnFrame != nil {
				opts.OnFrame(i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	e.Logger.Info("rendered frames", "frames", len(frames), "animation", opts.Schedule.Mode)
	return out, nil
}

// Repeat returns a slice holding src n times, for animating a still image.
// The executor never writes to its source, so sharing one buffer is safe.
func Repeat(src *raster.Buffer, n int) []*raster.Buffer {
	frames := make([]*raster.Buffer, n)
	for i := range frames {
		frames[i] = src
	}
	return frames
}
