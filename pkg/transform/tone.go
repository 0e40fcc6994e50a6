package transform

import (
	"math"

	"github.com/matzehuels/halftone/pkg/raster"
)

// mapChannels applies fn to every RGB channel, keeping alpha.
func mapChannels(src *raster.Buffer, fn func(v float64) float64) *raster.Buffer {
	var lut [256]uint8
	for v := range lut {
		lut[v] = raster.Clamp(fn(float64(v)))
	}
	out := src.Clone()
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = lut[out.Pix[i]]
		out.Pix[i+1] = lut[out.Pix[i+1]]
		out.Pix[i+2] = lut[out.Pix[i+2]]
	}
	return out
}

// ContrastFactor returns the classic 259(c+255)/(255(259-c)) gain for a
// contrast level c in [-255, 255].
func ContrastFactor(level float64) float64 {
	return 259 * (level + 255) / (255 * (259 - level))
}

// Contrast stretches channels around mid-gray by ContrastFactor(level).
func Contrast(src *raster.Buffer, level float64) *raster.Buffer {
	f := ContrastFactor(level)
	return mapChannels(src, func(v float64) float64 { return f*(v-128) + 128 })
}

// Midtones applies gamma m/128: 128 is neutral, larger brightens.
func Midtones(src *raster.Buffer, m float64) *raster.Buffer {
	gamma := m / 128
	return mapChannels(src, func(v float64) float64 { return 255 * math.Pow(v/255, 1/gamma) })
}

// Highlights scales channels above 128 by h/128.
func Highlights(src *raster.Buffer, h float64) *raster.Buffer {
	f := h / 128
	return mapChannels(src, func(v float64) float64 {
		if v > 128 {
			return v * f
		}
		return v
	})
}

// LuminanceThreshold turns pixels whose rounded luminance reaches t white,
// others black.
func LuminanceThreshold(src *raster.Buffer, t float64) *raster.Buffer {
	return mapGray(src, func(_, _ int, lum float64) uint8 {
		if math.Round(lum) >= t {
			return 255
		}
		return 0
	})
}

// Threshold turns pixels whose channel average is below t black, others
// white.
func Threshold(src *raster.Buffer, t float64) *raster.Buffer {
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		var v uint8
		if raster.Brightness(src.Pix[i], src.Pix[i+1], src.Pix[i+2]) >= t {
			v = 255
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, src.Pix[i+3]
	}
	return out
}

func threshold(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("threshold", p)
	t := r.Float("threshold", 128, 0, 255)
	mode := r.String("mode", "average", "average", "luminance")
	if err := r.Err(); err != nil {
		return nil, err
	}
	if mode == "luminance" {
		return LuminanceThreshold(src, t), nil
	}
	return Threshold(src, t), nil
}

// contrast scales channels around mid-gray by a plain multiplier.
func contrast(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("contrast", p)
	amount := r.Float("amount", 1, 0, 5)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return mapChannels(src, func(v float64) float64 { return (v-128)*amount + 128 }), nil
}

// tone applies contrast, midtones, highlights and an optional luminance
// threshold, in that order.
func tone(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("tone", p)
	c := r.Float("contrast", 0, -255, 255)
	m := r.Float("midtones", 128, 1, 255)
	h := r.Float("highlights", 128, 0, 255)
	enabled := r.Bool("thresholdEnabled", false)
	t := r.Float("threshold", 128, 0, 255)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src
	if c != 0 {
		out = Contrast(out, c)
	}
	if m != 128 {
		out = Midtones(out, m)
	}
	if h != 128 {
		out = Highlights(out, h)
	}
	if enabled {
		out = LuminanceThreshold(out, t)
	}
	if out == src {
		out = src.Clone()
	}
	return out, nil
}

func registerTone(r *Registry) {
	r.MustRegister(Info{Key: "threshold", Family: FamilyTone, Description: "Hard black/white threshold",
		Params: []string{"threshold", "mode"}}, threshold)
	r.MustRegister(Info{Key: "contrast", Family: FamilyTone, Description: "Contrast multiplier around mid-gray",
		Params: []string{"amount"}}, contrast)
	r.MustRegister(Info{Key: "tone", Family: FamilyTone, Description: "Contrast, midtones, highlights and threshold chain",
		Params: []string{"contrast", "midtones", "highlights", "thresholdEnabled", "threshold"}}, tone)
}
