package transform

import (
	"math"

	"github.com/matzehuels/halftone/pkg/raster"
)

// thresholdField thresholds every RGB channel against a position-dependent
// value in [0, 255].
func thresholdField(src *raster.Buffer, field func(x, y int) float64) *raster.Buffer {
	out := src.Blank()
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			t := field(x, y)
			for c := 0; c < 3; c++ {
				if float64(src.Pix[i+c]) >= t {
					out.Pix[i+c] = 255
				}
			}
			out.Pix[i+3] = src.Pix[i+3]
		}
	}
	return out
}

// mapGray writes fn(luminance) to all three channels, keeping alpha.
func mapGray(src *raster.Buffer, fn func(x, y int, lum float64) uint8) *raster.Buffer {
	out := src.Blank()
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			v := fn(x, y, raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, src.Pix[i+3]
		}
	}
	return out
}

func bitTone(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("bitTone", p)
	n := r.Int("levels", 4, 2, 256)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return mapGray(src, func(_, _ int, lum float64) uint8 {
		idx := min(int(lum/256*float64(n)), n-1)
		return raster.Clamp(float64(idx) * 255 / float64(n-1))
	}), nil
}

func crossPlus(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("crossPlus", p)
	size := r.Int("size", 4, 2, 256)
	if err := r.Err(); err != nil {
		return nil, err
	}
	half := size / 2
	return mapGray(src, func(x, y int, lum float64) uint8 {
		t := 64.0
		if x%size == half || y%size == half {
			t = 192
		}
		if lum < t {
			return 0
		}
		return 255
	}), nil
}

func mosaic(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("mosaic", p)
	size := r.Int("size", 4, 1, 512)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Clone()
	for ty := 0; ty < src.Height; ty += size {
		for tx := 0; tx < src.Width; tx += size {
			var sr, sg, sb, n int
			yEnd, xEnd := min(ty+size, src.Height), min(tx+size, src.Width)
			for y := ty; y < yEnd; y++ {
				for x := tx; x < xEnd; x++ {
					i := src.Offset(x, y)
					sr += int(src.Pix[i])
					sg += int(src.Pix[i+1])
					sb += int(src.Pix[i+2])
					n++
				}
			}
			cr := raster.Clamp(float64(sr) / float64(n))
			cg := raster.Clamp(float64(sg) / float64(n))
			cb := raster.Clamp(float64(sb) / float64(n))
			for y := ty; y < yEnd; y++ {
				for x := tx; x < xEnd; x++ {
					i := out.Offset(x, y)
					out.Pix[i], out.Pix[i+1], out.Pix[i+2] = cr, cg, cb
				}
			}
		}
	}
	return out, nil
}

func checkers(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("checkers", p)
	size := r.Int("size", 8, 1, 512)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return mapGray(src, func(x, y int, _ float64) uint8 {
		if (x/size+y/size)%2 == 0 {
			return 0
		}
		return 255
	}), nil
}

func radialBurst(src *raster.Buffer, _ Params) (*raster.Buffer, error) {
	cx, cy := float64(src.Width)/2, float64(src.Height)/2
	maxDist := math.Max(cx, cy)
	return thresholdField(src, func(x, y int) float64 {
		if maxDist == 0 {
			return 0
		}
		return math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist * 255
	}), nil
}

func vortex(src *raster.Buffer, _ Params) (*raster.Buffer, error) {
	cx, cy := float64(src.Width)/2, float64(src.Height)/2
	return thresholdField(src, func(x, y int) float64 {
		angle := math.Atan2(float64(y)-cy, float64(x)-cx) + math.Pi
		return angle / (2 * math.Pi) * 255
	}), nil
}

func diamond(src *raster.Buffer, _ Params) (*raster.Buffer, error) {
	cx, cy := float64(src.Width)/2, float64(src.Height)/2
	maxDist := cx + cy
	return thresholdField(src, func(x, y int) float64 {
		if maxDist == 0 {
			return 0
		}
		return (math.Abs(float64(x)-cx) + math.Abs(float64(y)-cy)) / maxDist * 255
	}), nil
}

func wave(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("wave", p)
	period := r.Float("period", 10, 0.1, 10000)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return thresholdField(src, func(x, y int) float64 {
		return math.Sin(float64(x+y)/period)*127 + 128
	}), nil
}

func gridlock(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("gridlock", p)
	size := r.Int("size", 10, 2, 1024)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Clone()
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if x%size == 0 || y%size == 0 {
				i := out.Offset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0, 0, 0
			}
		}
	}
	return out, nil
}

// halftoneCircles draws one black dot per cell on white, its area
// proportional to the darkness of the cell.
func halftoneCircles(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("halftoneCircles", p)
	cell := r.Int("size", 8, 2, 256)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Blank()
	for ty := 0; ty < src.Height; ty += cell {
		for tx := 0; tx < src.Width; tx += cell {
			yEnd, xEnd := min(ty+cell, src.Height), min(tx+cell, src.Width)
			sum, n := 0.0, 0
			for y := ty; y < yEnd; y++ {
				for x := tx; x < xEnd; x++ {
					i := src.Offset(x, y)
					sum += raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
					n++
				}
			}
			darkness := 1 - sum/float64(n)/255
			radius := math.Sqrt(darkness) * float64(cell) / math.Sqrt2
			cx, cy := float64(tx)+float64(cell)/2, float64(ty)+float64(cell)/2
			for y := ty; y < yEnd; y++ {
				for x := tx; x < xEnd; x++ {
					var v uint8 = 255
					if math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) < radius {
						v = 0
					}
					i := out.Offset(x, y)
					out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, src.Pix[i+3]
				}
			}
		}
	}
	return out, nil
}

// grain adds seeded film noise.
func grain(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("grain", p)
	amount := r.Float("amount", 32, 0, 255)
	seed := r.Int64("seed", 1)
	mono := r.Bool("monochrome", true)
	if err := r.Err(); err != nil {
		return nil, err
	}
	g, err := newLCG(seed)
	if err != nil {
		return nil, err
	}
	out := src.Clone()
	for i := 0; i < len(out.Pix); i += 4 {
		n := (g.Float() - 0.5) * amount
		for c := 0; c < 3; c++ {
			if !mono && c > 0 {
				n = (g.Float() - 0.5) * amount
			}
			out.Pix[i+c] = raster.Clamp(float64(src.Pix[i+c]) + n)
		}
	}
	return out, nil
}

func registerPatterns(r *Registry) {
	add := func(key, desc string, fn Func, params ...string) {
		r.MustRegister(Info{Key: key, Family: FamilyPattern, Description: desc, Params: params}, fn)
	}
	add("bitTone", "Posterize luminance to a few gray levels", bitTone, "levels")
	add("crossPlus", "Plus-shaped threshold grid", crossPlus, "size")
	add("mosaic", "Average color tiles", mosaic, "size")
	add("checkers", "Checkerboard pattern", checkers, "size")
	add("radialBurst", "Threshold rising with distance from the center", radialBurst)
	add("vortex", "Threshold rising with angle around the center", vortex)
	add("diamond", "Threshold rising with Manhattan distance from the center", diamond)
	add("wave", "Diagonal sine threshold", wave, "period")
	add("gridlock", "Black grid lines over the image", gridlock, "size")
	add("halftoneCircles", "Printed halftone dots", halftoneCircles, "size")
	add("grain", "Seeded film grain", grain, "amount", "seed", "monochrome")
	add("asciiArt", "Luminance rendered as ASCII characters", asciiArt, "cellWidth", "cellHeight", "charset")
}
