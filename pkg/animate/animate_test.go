package animate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(string(m))
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %q, %v", m, got, err)
		}
	}
	if m, err := ParseMode(""); err != nil || m != None {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	_, err := ParseMode("spin")
	if !herrors.Is(err, herrors.ErrCodeInvalidParameter) {
		t.Errorf("ParseMode(spin) error = %v", err)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		i, n int
		want float64
	}{
		{0, 1, 0},
		{0, 5, 0},
		{2, 5, 0.5},
		{4, 5, 1},
	}
	for _, tt := range tests {
		if got := Progress(tt.i, tt.n); got != tt.want {
			t.Errorf("Progress(%d, %d) = %v, want %v", tt.i, tt.n, got, tt.want)
		}
	}
	if got := FrameCount(2, 12); got != 24 {
		t.Errorf("FrameCount(2, 12) = %d", got)
	}
	if got := FrameCount(0, 30); got != 1 {
		t.Errorf("FrameCount(0, 30) = %d", got)
	}
}

func TestParams(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		algo     string
		base     graph.Params
		progress float64
		want     graph.Params
		wantOK   bool
	}{
		{
			name:     "ThresholdWaveQuarter",
			schedule: Schedule{Mode: ThresholdWave, Intensity: 1},
			algo:     "threshold",
			progress: 0.25,
			want:     graph.Params{"threshold": 255.0},
			wantOK:   true,
		},
		{
			name:     "ThresholdWaveHalfIntensity",
			schedule: Schedule{Mode: ThresholdWave, Intensity: 0.5},
			algo:     "tone",
			base:     graph.Params{"threshold": int64(100)},
			progress: 0.75,
			want:     graph.Params{"threshold": 36.0, "thresholdEnabled": true},
			wantOK:   true,
		},
		{
			name:     "ThresholdSweep",
			schedule: Schedule{Mode: ThresholdSweep, Intensity: 1},
			algo:     "threshold",
			progress: 0.5,
			want:     graph.Params{"threshold": 127.5},
			wantOK:   true,
		},
		{
			name:     "ContrastPulseTone",
			schedule: Schedule{Mode: ContrastPulse, Intensity: 1},
			algo:     "tone",
			progress: 0.25,
			want:     graph.Params{"contrast": 128.0},
			wantOK:   true,
		},
		{
			name:     "ContrastPulseAmount",
			schedule: Schedule{Mode: ContrastPulse, Intensity: 0.5},
			algo:     "contrast",
			base:     graph.Params{"amount": 2.0},
			progress: 0.25,
			want:     graph.Params{"amount": 3.0},
			wantOK:   true,
		},
		{
			name:     "ColorCycleRed",
			schedule: Schedule{Mode: ColorCycle, Intensity: 1},
			algo:     "tint",
			progress: 0,
			want:     graph.Params{"red": 255.0, "green": 0.0, "blue": 0.0},
			wantOK:   true,
		},
		{
			name:     "ColorCycleSingleColor",
			schedule: Schedule{Mode: ColorCycle, Intensity: 1},
			algo:     "singleColor",
			progress: 0,
			want:     graph.Params{"color": "#ff0000"},
			wantOK:   true,
		},
		{
			name:     "RGBSplitStart",
			schedule: Schedule{Mode: RGBSplit, Intensity: 1},
			algo:     "tint",
			base:     graph.Params{"red": int64(128), "green": int64(128), "blue": int64(128)},
			progress: 0,
			want: graph.Params{
				"red":   128.0,
				"green": 128 + 127*math.Sin(2*math.Pi/3),
				"blue":  128 + 127*math.Sin(4*math.Pi/3),
			},
			wantOK: true,
		},
		{
			name:     "BloomPulsePeak",
			schedule: Schedule{Mode: BloomPulse, Intensity: 1},
			algo:     "bloom",
			base:     graph.Params{"intensity": 0.5},
			progress: 0.25,
			want:     graph.Params{"intensity": 2.5},
			wantOK:   true,
		},
		{
			name:     "GlitchWave",
			schedule: Schedule{Mode: GlitchWave, Intensity: 1},
			algo:     "dataMosh",
			progress: 0.25,
			want:     graph.Params{"intensity": 1.0, "time": 0.25},
			wantOK:   true,
		},
		{
			name:     "GlitchWaveChromatic",
			schedule: Schedule{Mode: GlitchWave, Intensity: 1},
			algo:     "chromaticAberration",
			base:     graph.Params{"intensity": int64(12)},
			progress: 0.5,
			want:     graph.Params{"intensity": int64(12), "time": 0.5},
			wantOK:   true,
		},
		{
			name:     "AllParamsBloom",
			schedule: Schedule{Mode: AllParams, Intensity: 1},
			algo:     "bloom",
			base:     graph.Params{"intensity": 1.0},
			progress: 0.125,
			want:     graph.Params{"intensity": 3.5},
			wantOK:   true,
		},
		{
			name:     "UntouchedAlgorithm",
			schedule: Schedule{Mode: ThresholdWave, Intensity: 1},
			algo:     "floydSteinberg",
			base:     graph.Params{"serpentine": true},
			progress: 0.3,
			want:     graph.Params{"serpentine": true},
			wantOK:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.schedule.Params(tt.algo, tt.base, tt.progress)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.base == nil && !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntensityClamped(t *testing.T) {
	s := Schedule{Mode: ThresholdWave, Intensity: 7}
	got, _ := s.Params("threshold", nil, 0.75)
	if diff := cmp.Diff(graph.Params{"threshold": 0.0}, got, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyLeavesSourceGraph(t *testing.T) {
	g := graph.Chain(graph.Step{Algorithm: "threshold", Params: graph.Params{"threshold": int64(128)}})
	s := Schedule{Mode: ThresholdWave, Intensity: 1}

	frame := s.Apply(g, 0.25)

	effect := g.NodesOfKind(graph.KindEffect)[0]
	if effect.Params["threshold"] != int64(128) {
		t.Errorf("source graph modified: %v", effect.Params)
	}
	animated, _ := frame.Node(effect.ID)
	if animated.Params["threshold"] != 255.0 {
		t.Errorf("animated threshold = %v, want 255", animated.Params["threshold"])
	}
}

func TestApplyInactive(t *testing.T) {
	g := graph.Chain(graph.Step{Algorithm: "bloom"})
	frame := Schedule{}.Apply(g, 0.5)
	if diff := cmp.Diff(g.Describe(), frame.Describe()); diff != "" {
		t.Errorf("inactive schedule changed graph:\n%s", diff)
	}
}
