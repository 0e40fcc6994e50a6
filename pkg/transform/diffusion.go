package transform

import (
	"github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/raster"
)

// Tap is one error-diffusion target relative to the current pixel.
type Tap struct {
	DX, DY int
	Weight float64
}

// Kernel is an error-diffusion weight table.
type Kernel struct {
	Name string
	Taps []Tap
}

// Validate checks that every tap points at a pixel not yet visited in
// scan order and that the weights sum to a value in (0, 1].
func (k Kernel) Validate() error {
	if len(k.Taps) == 0 {
		return errors.Parameter(k.Name, "kernel has no taps")
	}
	sum := 0.0
	for _, t := range k.Taps {
		if t.DY < 0 || (t.DY == 0 && t.DX <= 0) {
			return errors.Parameter(k.Name, "tap (%d, %d) targets an already visited pixel", t.DX, t.DY)
		}
		if t.Weight < 0 {
			return errors.Parameter(k.Name, "tap (%d, %d) has negative weight", t.DX, t.DY)
		}
		sum += t.Weight
	}
	if sum <= 0 || sum > 1+1e-9 {
		return errors.Parameter(k.Name, "kernel weights sum to %g, want (0, 1]", sum)
	}
	return nil
}

// Sum returns the total weight.
func (k Kernel) Sum() float64 {
	s := 0.0
	for _, t := range k.Taps {
		s += t.Weight
	}
	return s
}

func taps(div float64, rows ...[3]float64) []Tap {
	out := make([]Tap, len(rows))
	for i, r := range rows {
		out[i] = Tap{DX: int(r[0]), DY: int(r[1]), Weight: r[2] / div}
	}
	return out
}

// Classic kernels.
var (
	FloydSteinberg = Kernel{"floydSteinberg", taps(16,
		[3]float64{1, 0, 7}, [3]float64{-1, 1, 3}, [3]float64{0, 1, 5}, [3]float64{1, 1, 1})}

	FalseFloydSteinberg = Kernel{"falseFloydSteinberg", taps(8,
		[3]float64{1, 0, 3}, [3]float64{0, 1, 3}, [3]float64{1, 1, 2})}

	JarvisJudiceNinke = Kernel{"jarvisJudiceNinke", taps(48,
		[3]float64{1, 0, 7}, [3]float64{2, 0, 5},
		[3]float64{-2, 1, 3}, [3]float64{-1, 1, 5}, [3]float64{0, 1, 7}, [3]float64{1, 1, 5}, [3]float64{2, 1, 3},
		[3]float64{-2, 2, 1}, [3]float64{-1, 2, 3}, [3]float64{0, 2, 5}, [3]float64{1, 2, 3}, [3]float64{2, 2, 1})}

	Stucki = Kernel{"stucki", taps(42,
		[3]float64{1, 0, 8}, [3]float64{2, 0, 4},
		[3]float64{-2, 1, 2}, [3]float64{-1, 1, 4}, [3]float64{0, 1, 8}, [3]float64{1, 1, 4}, [3]float64{2, 1, 2},
		[3]float64{-2, 2, 1}, [3]float64{-1, 2, 2}, [3]float64{0, 2, 4}, [3]float64{1, 2, 2}, [3]float64{2, 2, 1})}

	Burkes = Kernel{"burkes", taps(32,
		[3]float64{1, 0, 8}, [3]float64{2, 0, 4},
		[3]float64{-2, 1, 2}, [3]float64{-1, 1, 4}, [3]float64{0, 1, 8}, [3]float64{1, 1, 4}, [3]float64{2, 1, 2})}

	Sierra = Kernel{"sierra", taps(32,
		[3]float64{1, 0, 5}, [3]float64{2, 0, 3},
		[3]float64{-2, 1, 2}, [3]float64{-1, 1, 4}, [3]float64{0, 1, 5}, [3]float64{1, 1, 4}, [3]float64{2, 1, 2},
		[3]float64{-1, 2, 2}, [3]float64{0, 2, 3}, [3]float64{1, 2, 2})}

	TwoRowSierra = Kernel{"twoRowSierra", taps(16,
		[3]float64{1, 0, 4}, [3]float64{2, 0, 3},
		[3]float64{-2, 1, 1}, [3]float64{-1, 1, 2}, [3]float64{0, 1, 3}, [3]float64{1, 1, 2}, [3]float64{2, 1, 1})}

	SierraLite = Kernel{"sierraLite", taps(4,
		[3]float64{1, 0, 2}, [3]float64{-1, 1, 1}, [3]float64{0, 1, 1})}

	// Atkinson diffuses only 6/8 of the error.
	Atkinson = Kernel{"atkinson", taps(8,
		[3]float64{1, 0, 1}, [3]float64{2, 0, 1},
		[3]float64{-1, 1, 1}, [3]float64{0, 1, 1}, [3]float64{1, 1, 1},
		[3]float64{0, 2, 1})}
)

// DiffuseOptions control [Diffuse].
type DiffuseOptions struct {
	// Serpentine alternates scan direction on every row, mirroring the
	// kernel horizontally on right-to-left rows.
	Serpentine bool
	// Palette, when non-empty, replaces the black/white levels with the
	// palette brightnesses; output pixels take the matching palette color.
	Palette palette.Palette
}

// Diffuse dithers src with kernel k. The image is reduced to Rec. 601
// luminance and each pixel is quantized, with the residual pushed to the
// kernel's targets. Targets outside the buffer are dropped. Source alpha is
// kept.
func Diffuse(src *raster.Buffer, k Kernel, opt DiffuseOptions) (*raster.Buffer, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	w, h := src.Width, src.Height
	lum := luminancePlane(src)
	out := src.Blank()

	var levels []float64
	var colors palette.Palette
	if len(opt.Palette) > 0 {
		colors = opt.Palette.SortedByBrightness()
		levels = colors.Levels()
	}

	for y := 0; y < h; y++ {
		dir := 1
		if opt.Serpentine && y%2 == 1 {
			dir = -1
		}
		xStart, xEnd := 0, w
		if dir < 0 {
			xStart, xEnd = w-1, -1
		}
		for x := xStart; x != xEnd; x += dir {
			p := y*w + x
			old := lum[p]

			var nv float64
			var r, g, b uint8
			if levels != nil {
				qi := palette.NearestLevel(old, levels)
				nv = levels[qi]
				r, g, b = colors[qi].R, colors[qi].G, colors[qi].B
			} else {
				if old >= 128 {
					nv = 255
				}
				v := uint8(nv)
				r, g, b = v, v, v
			}
			lum[p] = nv
			residual := old - nv

			for _, t := range k.Taps {
				nx, ny := x+t.DX*dir, y+t.DY
				if nx >= 0 && nx < w && ny < h {
					lum[ny*w+nx] += residual * t.Weight
				}
			}

			i := 4 * p
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, src.Pix[i+3]
		}
	}
	return out, nil
}

// luminancePlane returns the Rec. 601 luminance of every pixel.
func luminancePlane(src *raster.Buffer) []float64 {
	lum := make([]float64, src.Len())
	for p, i := 0, 0; p < len(lum); p, i = p+1, i+4 {
		lum[p] = raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
	}
	return lum
}

// QuantizationError returns the mean signed difference between the
// luminance of a and b. It is close to zero when b conserves the ink of a.
func QuantizationError(a, b *raster.Buffer) float64 {
	if a.Len() == 0 || a.Len() != b.Len() {
		return 0
	}
	la, lb := luminancePlane(a), luminancePlane(b)
	sum := 0.0
	for i := range la {
		sum += la[i] - lb[i]
	}
	return sum / float64(len(la))
}

func diffusionFunc(k Kernel, serpentine bool) Func {
	return func(src *raster.Buffer, p Params) (*raster.Buffer, error) {
		r := read(k.Name, p)
		pal := r.Palette()
		serp := r.Bool("serpentine", serpentine)
		if err := r.Err(); err != nil {
			return nil, err
		}
		return Diffuse(src, k, DiffuseOptions{Serpentine: serp, Palette: pal})
	}
}

func registerDiffusion(r *Registry) {
	params := []string{"palette", "colors", "serpentine"}
	add := func(key, desc string, k Kernel, serpentine bool) {
		k.Name = key
		r.MustRegister(Info{Key: key, Family: FamilyDiffusion, Description: desc, Params: params}, diffusionFunc(k, serpentine))
	}
	add("floydSteinberg", "Floyd-Steinberg error diffusion", FloydSteinberg, false)
	add("floydSteinbergSerpentine", "Floyd-Steinberg with serpentine scanning", FloydSteinberg, true)
	add("falseFloydSteinberg", "Simplified three-tap Floyd-Steinberg", FalseFloydSteinberg, false)
	add("jarvisJudiceNinke", "Jarvis, Judice and Ninke twelve-tap diffusion", JarvisJudiceNinke, false)
	add("stucki", "Stucki twelve-tap diffusion", Stucki, false)
	add("burkes", "Burkes two-row diffusion", Burkes, false)
	add("sierra", "Sierra three-row diffusion", Sierra, false)
	add("twoRowSierra", "Two-row Sierra diffusion", TwoRowSierra, false)
	add("sierraLite", "Sierra Lite three-tap diffusion", SierraLite, false)
	add("atkinson", "Atkinson diffusion (75% of the error)", Atkinson, false)
}
