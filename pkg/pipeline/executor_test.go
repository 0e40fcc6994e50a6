package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/halftone/pkg/animate"
	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/observability"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// gradient returns a w×h opaque buffer whose gray level rises left to right.
func gradient(w, h int) *raster.Buffer {
	b := raster.New(w, h)
	for y := range h {
		for x := range w {
			v := uint8(0)
			if w > 1 {
				v = uint8(x * 255 / (w - 1))
			}
			b.SetRGBA(x, y, v, v, v, 255)
		}
	}
	return b
}

func chain(t *testing.T, steps ...graph.Step) *graph.Graph {
	t.Helper()
	g := graph.Chain(steps...)
	if err := Validate(g, transform.Default().Has); err != nil {
		t.Fatalf("chain invalid: %v", err)
	}
	return g
}

func TestExecuteLinearOrder(t *testing.T) {
	g := build(t,
		[]graph.Node{
			input("in"),
			effect("e1", "threshold", graph.Params{"threshold": 128}),
			effect("e2", "tint", graph.Params{"red": 255, "green": 0, "blue": 0}),
			output("out"),
		},
		[2]string{"in", "e1"}, [2]string{"e1", "e2"}, [2]string{"e2", "out"})

	src := raster.Filled(1, 1, 200, 200, 200, 255)
	out, err := NewExecutor(nil, nil).Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	// threshold then tint: white becomes pure red. The reverse order would
	// tint to (200,0,0) and threshold that to black.
	r, gr, b, a := out.RGBA(0, 0)
	if r != 255 || gr != 0 || b != 0 || a != 255 {
		t.Errorf("pixel = (%d,%d,%d,%d), want (255,0,0,255)", r, gr, b, a)
	}
}

func TestExecuteRejectsInvalidGraphs(t *testing.T) {
	var applied atomic.Int32
	reg := transform.NewBuiltin()
	reg.MustRegister(transform.Info{Key: "count", Family: transform.FamilyNone},
		func(src *raster.Buffer, _ transform.Params) (*raster.Buffer, error) {
			applied.Add(1)
			return src.Clone(), nil
		})
	exec := NewExecutor(reg, nil)

	tests := []struct {
		name  string
		graph *graph.Graph
	}{
		{
			name: "Cycle",
			graph: build(t,
				[]graph.Node{input("in"), effect("a", "count", nil), effect("b", "count", nil), output("out")},
				[2]string{"in", "a"}, [2]string{"a", "b"}, [2]string{"b", "a"}, [2]string{"b", "out"}),
		},
		{
			name: "Diamond",
			graph: build(t,
				[]graph.Node{input("in"), effect("a", "count", nil), effect("b", "count", nil), output("out")},
				[2]string{"in", "a"}, [2]string{"in", "b"}, [2]string{"a", "out"}, [2]string{"b", "out"}),
		},
		{
			name: "UnknownAlgorithm",
			graph: build(t,
				[]graph.Node{input("in"), effect("a", "missing", nil), output("out")},
				[2]string{"in", "a"}, [2]string{"a", "out"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied.Store(0)
			x := exec.NewExecution(tt.graph)
			_, err := x.Run(context.Background(), gradient(4, 4))
			var ve *herrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Run() = %v, want *ValidationError", err)
			}
			if x.State != StateFailed {
				t.Errorf("State = %s, want failed", x.State)
			}
			if n := applied.Load(); n != 0 {
				t.Errorf("%d transforms ran on an invalid graph", n)
			}
		})
	}
}

func TestExecuteDeterministic(t *testing.T) {
	g := chain(t,
		graph.Step{Algorithm: "tone", Params: graph.Params{"contrast": 40}},
		graph.Step{Algorithm: "floydSteinberg", Params: graph.Params{"palette": "gameBoyOriginal"}},
		graph.Step{Algorithm: "dataMosh", Params: graph.Params{"intensity": 0.5, "seed": 7}},
	)
	src := gradient(32, 16)
	exec := NewExecutor(nil, nil)

	a, err := exec.Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := exec.Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("two runs of the same graph differ")
	}
}

func TestExecuteRoundTripSameOutput(t *testing.T) {
	g := chain(t,
		graph.Step{Algorithm: "bayerOrdered4x4", Params: graph.Params{"colors": []any{"#000000", "#ff0000", "#ffffff"}}},
		graph.Step{Algorithm: "threshold", Params: graph.Params{"threshold": 100.5}},
	)
	var buf bytes.Buffer
	if err := graph.WriteJSON(&buf, g); err != nil {
		t.Fatal(err)
	}
	loaded, err := graph.ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}

	src := gradient(16, 8)
	exec := NewExecutor(nil, nil)
	want, err := exec.Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := exec.Execute(context.Background(), loaded, src)
	if err != nil {
		t.Fatal(err)
	}
	if !want.Equal(got) {
		t.Error("output differs after JSON round trip")
	}
}

func TestExecuteTinyBuffers(t *testing.T) {
	g := chain(t,
		graph.Step{Algorithm: "atkinson"},
		graph.Step{Algorithm: "bloom"},
		graph.Step{Algorithm: "pixelSort"},
	)
	exec := NewExecutor(nil, nil)
	for _, size := range [][2]int{{1, 1}, {1, 5}, {5, 1}} {
		src := gradient(size[0], size[1])
		out, err := exec.Execute(context.Background(), g, src)
		if err != nil {
			t.Fatalf("%dx%d: %v", size[0], size[1], err)
		}
		if out.Width != size[0] || out.Height != size[1] {
			t.Errorf("%dx%d: output is %dx%d", size[0], size[1], out.Width, out.Height)
		}
	}
}

func TestExecuteDoesNotModifySource(t *testing.T) {
	g := chain(t,
		graph.Step{Algorithm: "floydSteinberg"},
		graph.Step{Algorithm: "crt"},
	)
	src := gradient(8, 8)
	before := src.Clone()
	if _, err := NewExecutor(nil, nil).Execute(context.Background(), g, src); err != nil {
		t.Fatal(err)
	}
	if !src.Equal(before) {
		t.Error("source buffer was modified")
	}
}

func TestExecuteInputToOutputClones(t *testing.T) {
	g := chain(t)
	src := gradient(3, 3)
	out, err := NewExecutor(nil, nil).Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	if out == src {
		t.Error("output aliases the source buffer")
	}
	if !out.Equal(src) {
		t.Error("input-to-output graph changed pixels")
	}
}

func TestExecuteEmptyPalette(t *testing.T) {
	g := build(t,
		[]graph.Node{
			input("in"),
			effect("dither", "floydSteinberg", graph.Params{"colors": []any{}}),
			output("out"),
		},
		[2]string{"in", "dither"}, [2]string{"dither", "out"})

	x := NewExecutor(nil, nil).NewExecution(g)
	_, err := x.Run(context.Background(), gradient(4, 4))

	var ne *herrors.NodeError
	if !errors.As(err, &ne) {
		t.Fatalf("Run() = %v, want *NodeError", err)
	}
	if ne.NodeID != "dither" || ne.Algorithm != "floydSteinberg" {
		t.Errorf("NodeError = %+v", ne)
	}
	if !herrors.Is(err, herrors.ErrCodeInvalidParameter) {
		t.Errorf("error %v does not carry %s", err, herrors.ErrCodeInvalidParameter)
	}
	if herrors.GetCode(err) != herrors.ErrCodeExecution {
		t.Errorf("GetCode() = %q, want %q", herrors.GetCode(err), herrors.ErrCodeExecution)
	}
	if x.State != StateFailed || x.Err == nil {
		t.Errorf("State = %s, Err = %v", x.State, x.Err)
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := chain(t, graph.Step{Algorithm: "threshold"})
	_, err := NewExecutor(nil, nil).Execute(ctx, g, gradient(2, 2))
	if !herrors.Is(err, herrors.ErrCodeCanceled) {
		t.Fatalf("Execute() = %v, want %s", err, herrors.ErrCodeCanceled)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("error does not wrap context.Canceled")
	}
}

func TestExecutionStates(t *testing.T) {
	g := chain(t, graph.Step{Algorithm: "threshold"}, graph.Step{Algorithm: "pixelate"})
	x := NewExecutor(nil, nil).NewExecution(g)

	if x.State != StateUnvalidated {
		t.Fatalf("initial State = %s", x.State)
	}
	if x.ID == "" {
		t.Error("execution has no ID")
	}
	if err := x.Validate(); err != nil {
		t.Fatal(err)
	}
	if x.State != StateValidated {
		t.Fatalf("State after Validate = %s", x.State)
	}
	if len(x.Order) != 4 || x.Order[0] != graph.InputID || x.Order[3] != graph.OutputID {
		t.Errorf("Order = %v", x.Order)
	}

	if _, err := x.Run(context.Background(), gradient(4, 4)); err != nil {
		t.Fatal(err)
	}
	if x.State != StateComplete {
		t.Errorf("State after Run = %s", x.State)
	}
	if len(x.Nodes) != 2 {
		t.Errorf("recorded %d node stats, want 2", len(x.Nodes))
	}

	// A completed execution can run again with a fresh cache.
	if _, err := x.Run(context.Background(), gradient(2, 2)); err != nil {
		t.Errorf("second Run() = %v", err)
	}
	if len(x.Nodes) != 2 {
		t.Errorf("second run recorded %d node stats, want 2", len(x.Nodes))
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUnvalidated: "unvalidated",
		StateValidated:   "validated",
		StateExecuting:   "executing",
		StateComplete:    "complete",
		StateFailed:      "failed",
		State(42):        "State(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestAdapter(t *testing.T) {
	var gotRegion image.Rectangle
	fill := AdapterFunc{
		Name: "fill",
		Fn: func(_ context.Context, src *raster.Buffer, region image.Rectangle, _ transform.Params) (*raster.Buffer, error) {
			gotRegion = region
			for y := region.Min.Y; y < region.Max.Y; y++ {
				for x := region.Min.X; x < region.Max.X; x++ {
					src.SetRGBA(x, y, 255, 0, 0, 255)
				}
			}
			return src, nil
		},
	}
	exec := NewExecutor(nil, nil, fill)
	if !exec.Known("fill") || !exec.Known("threshold") || exec.Known("nope") {
		t.Fatal("Known() does not cover adapters and transforms")
	}

	g := build(t,
		[]graph.Node{input("in"), effect("f", "fill", graph.Params{"x": 1, "y": 0, "width": 1, "height": 1}), output("out")},
		[2]string{"in", "f"}, [2]string{"f", "out"})

	src := raster.Filled(2, 2, 0, 0, 0, 255)
	out, err := exec.Execute(context.Background(), g, src)
	if err != nil {
		t.Fatal(err)
	}
	if want := image.Rect(1, 0, 2, 1); gotRegion != want {
		t.Errorf("region = %v, want %v", gotRegion, want)
	}
	if r, _, _, _ := out.RGBA(1, 0); r != 255 {
		t.Error("adapter did not paint its region")
	}
	if r, _, _, _ := out.RGBA(0, 0); r != 0 {
		t.Error("adapter painted outside its region")
	}
	if r, _, _, _ := src.RGBA(1, 0); r != 0 {
		t.Error("adapter received the source buffer instead of a copy")
	}
}

func TestRegion(t *testing.T) {
	src := raster.New(10, 6)
	tests := []struct {
		name    string
		params  transform.Params
		want    image.Rectangle
		wantErr bool
	}{
		{"Whole", nil, image.Rect(0, 0, 10, 6), false},
		{"Inside", transform.Params{"x": 2, "y": 1, "width": 3, "height": 2}, image.Rect(2, 1, 5, 3), false},
		{"Clipped", transform.Params{"x": 8, "y": 4, "width": 100, "height": 100}, image.Rect(8, 4, 10, 6), false},
		{"Outside", transform.Params{"x": 50}, image.Rectangle{}, false},
		{"Negative", transform.Params{"x": -1}, image.Rectangle{}, true},
		{"NotNumber", transform.Params{"width": "wide"}, image.Rectangle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Region("fill", src, tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Eq(tt.want) {
				t.Errorf("Region() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunFramesOrder(t *testing.T) {
	g := chain(t, graph.Step{Algorithm: "threshold", Params: graph.Params{"threshold": 100}})
	frames := []*raster.Buffer{
		raster.Filled(2, 2, 50, 50, 50, 255),
		raster.Filled(2, 2, 150, 150, 150, 255),
		raster.Filled(2, 2, 10, 10, 10, 255),
		raster.Filled(2, 2, 250, 250, 250, 255),
	}
	var done atomic.Int32
	out, err := NewExecutor(nil, nil).RunFrames(context.Background(), g, frames, FrameOptions{
		Workers: 2,
		OnFrame: func(int) { done.Add(1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []uint8
	for _, b := range out {
		r, _, _, _ := b.RGBA(0, 0)
		got = append(got, r)
	}
	if diff := cmp.Diff([]uint8{0, 255, 0, 255}, got); diff != "" {
		t.Errorf("frame outputs out of order (-want +got):\n%s", diff)
	}
	if done.Load() != 4 {
		t.Errorf("OnFrame called %d times, want 4", done.Load())
	}
}

func TestRunFramesScheduleDeterministic(t *testing.T) {
	g := chain(t,
		graph.Step{Algorithm: "threshold"},
		graph.Step{Algorithm: "digitalCorruption", Params: graph.Params{"intensity": 0.3}},
	)
	opts := FrameOptions{
		Workers:  3,
		Schedule: animate.Schedule{Mode: animate.AllParams, Cycles: 1, Intensity: 1},
	}
	frames := Repeat(gradient(16, 4), 6)
	exec := NewExecutor(nil, nil)

	a, err := exec.RunFrames(context.Background(), g, frames, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := exec.RunFrames(context.Background(), g, frames, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("frame %d differs between runs", i)
		}
	}
	if a[0].Equal(a[2]) && a[2].Equal(a[4]) {
		t.Error("schedule did not change the frames")
	}
}

func TestRunFramesErrors(t *testing.T) {
	exec := NewExecutor(nil, nil)
	frames := Repeat(gradient(2, 2), 3)

	bad := FrameOptions{Schedule: animate.Schedule{Mode: "spin"}}
	if _, err := exec.RunFrames(context.Background(), chain(t), frames, bad); err == nil {
		t.Error("unknown animation accepted")
	}

	invalid := graph.New()
	if _, err := exec.RunFrames(context.Background(), invalid, frames, FrameOptions{}); err == nil {
		t.Error("invalid graph accepted")
	}

	g := chain(t, graph.Step{Algorithm: "paletteRamp"})
	_, err := exec.RunFrames(context.Background(), g, frames, FrameOptions{})
	var ne *herrors.NodeError
	if !errors.As(err, &ne) {
		t.Errorf("RunFrames() = %v, want *NodeError", err)
	}
}

type frameHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	totals map[int]int
}

func (h *frameHooks) OnFrameComplete(_ context.Context, index, total int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.totals[index] = total
	}
}

func TestRunFramesReportsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	hooks := &frameHooks{totals: map[int]int{}}
	observability.SetPipelineHooks(hooks)

	g := chain(t, graph.Step{Algorithm: "threshold"})
	if _, err := NewExecutor(nil, nil).RunFrames(context.Background(), g, Repeat(gradient(4, 2), 3), FrameOptions{Workers: 2}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]int{0: 3, 1: 3, 2: 3}, hooks.totals); diff != "" {
		t.Errorf("frame hook calls (-want +got):\n%s", diff)
	}
}
