// Package animate computes per-frame parameter overrides for animated
// renders of a single still image.
//
// A [Schedule] names an animation mode plus its cycle count and intensity.
// For each frame, [Schedule.Apply] returns a copy of the pipeline graph
// whose effect nodes carry the animated parameters for that frame's
// progress in [0, 1]. Only nodes whose algorithm the mode understands are
// touched; every other node keeps its parameters.
//
// Glitch nodes receive the frame progress as their "time" parameter, so a
// frame sequence rendered twice is byte-identical.
package animate

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
)

// Mode selects which parameters are animated.
type Mode string

const (
	None           Mode = "none"
	ThresholdWave  Mode = "threshold-wave"
	ContrastPulse  Mode = "contrast-pulse"
	ColorCycle     Mode = "color-cycle"
	BloomPulse     Mode = "bloom-pulse"
	GlitchWave     Mode = "glitch-wave"
	ThresholdSweep Mode = "threshold-sweep"
	RGBSplit       Mode = "rgb-split"
	AllParams      Mode = "all-params"
)

var modes = []Mode{None, ThresholdWave, ContrastPulse, ColorCycle, BloomPulse, GlitchWave, ThresholdSweep, RGBSplit, AllParams}

// Modes returns every supported mode.
func Modes() []Mode { return slices.Clone(modes) }

// ParseMode converts s to a Mode. The empty string means None.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return None, nil
	}
	m := Mode(s)
	if !slices.Contains(modes, m) {
		names := make([]string, len(modes))
		for i, m := range modes {
			names[i] = string(m)
		}
		return "", herrors.New(herrors.ErrCodeInvalidParameter,
			"unknown animation %q (must be one of: %s)", s, strings.Join(names, ", "))
	}
	return m, nil
}

// Amplitudes of the animated parameters, in the units of the transforms
// they drive.
const (
	thresholdAmplitude = 128.0
	contrastAmplitude  = 128.0
	rgbAmplitude       = 127.0

	// MaxBloom is the bloom intensity added at the peak of a bloom pulse.
	MaxBloom = 2.0

	allThreshold  = 120.0
	allContrast   = 100.0
	allBloom      = 2.5
	allMidtones   = 60.0
	allHighlights = 60.0

	baseGlitch = 0.1
)

// Schedule describes one animation.
type Schedule struct {
	Mode Mode `json:"mode" toml:"mode"`
	// Cycles is the number of full periods over the sequence; values below
	// 1 are raised to 1.
	Cycles float64 `json:"cycles,omitempty" toml:"cycles,omitempty"`
	// Intensity scales every amplitude and is clamped to [0, 1].
	Intensity float64 `json:"intensity,omitempty" toml:"intensity,omitempty"`
}

// Validate checks the mode.
func (s Schedule) Validate() error {
	_, err := ParseMode(string(s.Mode))
	return err
}

// Active reports whether the schedule changes anything.
func (s Schedule) Active() bool { return s.Mode != "" && s.Mode != None }

func (s Schedule) cycles() float64 { return math.Max(1, s.Cycles) }

func (s Schedule) intensity() float64 { return math.Max(0, math.Min(1, s.Intensity)) }

// Progress returns the progress of frame i out of n, from 0 at the first
// frame to 1 at the last.
func Progress(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// FrameCount returns the number of frames for a duration in seconds at the
// given frame rate, never less than one.
func FrameCount(duration, fps float64) int {
	return max(1, int(math.Floor(duration*fps)))
}

// Apply returns a copy of g with the animated parameters for progress set on
// every matching effect node. g is not modified.
func (s Schedule) Apply(g *graph.Graph, progress float64) *graph.Graph {
	out := g.Clone()
	if !s.Active() {
		return out
	}
	for _, n := range out.NodesOfKind(graph.KindEffect) {
		if p, ok := s.Params(n.Algorithm, n.Params, progress); ok {
			_ = out.SetParams(n.ID, p)
		}
	}
	return out
}

// Params returns base with the animated values for one node merged in. The
// boolean is false when the mode does not animate the algorithm.
func (s Schedule) Params(algorithm string, base graph.Params, progress float64) (graph.Params, bool) {
	var set graph.Params
	switch s.Mode {
	case ThresholdWave:
		set = s.thresholdWave(algorithm, base, progress)
	case ThresholdSweep:
		set = s.thresholdSweep(algorithm, base, progress)
	case ContrastPulse:
		set = s.contrastPulse(algorithm, base, progress)
	case ColorCycle:
		set = s.colorCycle(algorithm, base, progress)
	case RGBSplit:
		set = s.rgbSplit(algorithm, base, progress)
	case BloomPulse:
		set = s.bloomPulse(algorithm, base, progress)
	case GlitchWave:
		set = s.glitchWave(algorithm, base, progress)
	case AllParams:
		set = s.allParams(algorithm, base, progress)
	}
	if len(set) == 0 {
		return base, false
	}
	out := base.Clone()
	for k, v := range set {
		out[k] = v
	}
	return out, true
}

func (s Schedule) sine(progress float64) float64 {
	return math.Sin(progress * math.Pi * 2 * s.cycles())
}

func (s Schedule) thresholdWave(algo string, base graph.Params, progress float64) graph.Params {
	t := clamp(num(base, "threshold", 128)+s.sine(progress)*thresholdAmplitude*s.intensity(), 0, 255)
	return thresholdParams(algo, t)
}

func (s Schedule) thresholdSweep(algo string, base graph.Params, progress float64) graph.Params {
	i := s.intensity()
	t := clamp(num(base, "threshold", 128)*(1-i)+progress*255*i, 0, 255)
	return thresholdParams(algo, t)
}

func thresholdParams(algo string, t float64) graph.Params {
	switch algo {
	case "threshold":
		return graph.Params{"threshold": t}
	case "tone":
		return graph.Params{"threshold": t, "thresholdEnabled": true}
	}
	return nil
}

func (s Schedule) contrastPulse(algo string, base graph.Params, progress float64) graph.Params {
	sine := s.sine(progress)
	switch algo {
	case "tone":
		return graph.Params{"contrast": clamp(num(base, "contrast", 0)+sine*contrastAmplitude*s.intensity(), -255, 255)}
	case "contrast":
		return graph.Params{"amount": clamp(num(base, "amount", 1)*(1+sine*s.intensity()), 0, 5)}
	}
	return nil
}

func (s Schedule) colorCycle(algo string, base graph.Params, progress float64) graph.Params {
	hue := math.Mod(progress*360*s.cycles(), 360)
	r, g, b := colorful.Hsl(hue, 1, 0.5).Clamped().RGB255()
	i := s.intensity()
	blend := func(base, v float64) float64 { return clamp(math.Round(base*(1-i)+v*i), 0, 255) }
	switch algo {
	case "tint":
		return graph.Params{
			"red":   blend(num(base, "red", 255), float64(r)),
			"green": blend(num(base, "green", 255), float64(g)),
			"blue":  blend(num(base, "blue", 255), float64(b)),
		}
	case "singleColor":
		c := colorful.Color{
			R: blend(255, float64(r)) / 255,
			G: blend(255, float64(g)) / 255,
			B: blend(255, float64(b)) / 255,
		}
		return graph.Params{"color": c.Hex()}
	}
	return nil
}

func (s Schedule) rgbSplit(algo string, base graph.Params, progress float64) graph.Params {
	if algo != "tint" {
		return nil
	}
	a := rgbAmplitude * s.intensity()
	phase := progress * math.Pi * 2 * s.cycles()
	return graph.Params{
		"red":   clamp(num(base, "red", 255)+a*math.Sin(phase), 0, 255),
		"green": clamp(num(base, "green", 255)+a*math.Sin(phase+2*math.Pi/3), 0, 255),
		"blue":  clamp(num(base, "blue", 255)+a*math.Sin(phase+4*math.Pi/3), 0, 255),
	}
}

func (s Schedule) bloomPulse(algo string, base graph.Params, progress float64) graph.Params {
	if algo != "bloom" {
		return nil
	}
	v := math.Abs(s.sine(progress)) * MaxBloom * s.intensity()
	return graph.Params{"intensity": clamp(bloomBase(base)+v, 0, 4)}
}

func bloomBase(base graph.Params) float64 {
	if _, ok := base["intensity"]; ok {
		return num(base, "intensity", 1)
	}
	return num(base, "bloom", 1)
}

func (s Schedule) glitchWave(algo string, base graph.Params, progress float64) graph.Params {
	return s.glitch(algo, base, progress)
}

// glitch moves the intensity of scalar glitch effects toward a sine target
// and stamps the frame time on every glitch effect.
func (s Schedule) glitch(algo string, base graph.Params, progress float64) graph.Params {
	switch algo {
	case "dataMosh", "digitalCorruption":
		b := num(base, "intensity", baseGlitch)
		target := clamp(0.5+0.5*s.sine(progress), 0, 1)
		return graph.Params{
			"intensity": clamp(b+(target-b)*s.intensity(), 0, 1),
			"time":      progress,
		}
	case "chromaticAberration":
		return graph.Params{"time": progress}
	}
	return nil
}

func (s Schedule) allParams(algo string, base graph.Params, progress float64) graph.Params {
	i := s.intensity()
	switch algo {
	case "threshold":
		return graph.Params{"threshold": clamp(num(base, "threshold", 128)+math.Sin(progress*math.Pi*2)*allThreshold*i, 0, 255)}
	case "tone":
		return graph.Params{
			"threshold":        clamp(num(base, "threshold", 128)+math.Sin(progress*math.Pi*2)*allThreshold*i, 0, 255),
			"thresholdEnabled": true,
			"contrast":         clamp(num(base, "contrast", 0)+math.Sin(progress*math.Pi*3)*allContrast*i, -255, 255),
			"midtones":         clamp(num(base, "midtones", 128)+math.Sin(progress*math.Pi*2)*allMidtones*i, 1, 255),
			"highlights":       clamp(num(base, "highlights", 128)+math.Sin(progress*math.Pi*2+math.Pi/2)*allHighlights*i, 0, 255),
		}
	case "bloom":
		return graph.Params{"intensity": clamp(bloomBase(base)+math.Abs(math.Sin(progress*math.Pi*4))*allBloom*i, 0, 4)}
	}
	return s.glitch(algo, base, progress)
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

// num reads a numeric parameter, falling back to def for missing or
// non-numeric values.
func num(p graph.Params, key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float32:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscan(v, &f); err == nil {
			return f
		}
	}
	return def
}
