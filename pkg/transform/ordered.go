package transform

import (
	"github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/raster"
)

// MaxMatrixSize bounds Bayer matrix construction.
const MaxMatrixSize = 64

// BayerMatrix builds the n×n dispersed-dot threshold matrix by recursive
// doubling of the 2×2 base. n must be a power of two in [2, MaxMatrixSize].
func BayerMatrix(n int) ([][]int, error) {
	if n < 2 || n > MaxMatrixSize || n&(n-1) != 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter,
			"matrix size must be a power of two in [2, %d], got %d", MaxMatrixSize, n)
	}
	m := [][]int{{0, 2}, {3, 1}}
	for size := 2; size < n; size *= 2 {
		next := make([][]int, 2*size)
		for i := range next {
			next[i] = make([]int, 2*size)
		}
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := 4 * m[y][x]
				next[y][x] = v
				next[y][x+size] = v + 2
				next[y+size][x] = v + 3
				next[y+size][x+size] = v + 1
			}
		}
		m = next
	}
	return m, nil
}

// blackFloor is the luminance at or below which ordered dithering outputs
// black without consulting the matrix.
const blackFloor = 10

// Ordered dithers src against a square threshold matrix. Without a palette
// each pixel becomes white when its luminance reaches
// matrix[y%N][x%N]/(N*N)*255. With a palette the matrix offsets the
// luminance by up to half a palette step before snapping to the nearest
// palette brightness.
func Ordered(src *raster.Buffer, matrix [][]int, pal palette.Palette) (*raster.Buffer, error) {
	n := len(matrix)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "threshold matrix must not be empty")
	}
	for _, row := range matrix {
		if len(row) != n {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "threshold matrix must be square")
		}
	}
	cells := float64(n * n)
	out := src.Blank()

	if len(pal) > 0 {
		colors := pal.SortedByBrightness()
		levels := colors.Levels()
		step := 255 / float64(max(1, len(levels)-1))
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				i := src.Offset(x, y)
				lum := raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
				t := (float64(matrix[y%n][x%n])/cells - 0.5) * step
				c := colors[palette.NearestLevel(lum+t, levels)]
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, src.Pix[i+3]
			}
		}
		return out, nil
	}

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			lum := raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			var v uint8
			if lum > blackFloor && lum >= float64(matrix[y%n][x%n])/cells*255 {
				v = 255
			}
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, src.Pix[i+3]
		}
	}
	return out, nil
}

// NoiseTileSize is the side of the random-ordered threshold tile.
const NoiseTileSize = 32

const (
	lcgModulus    = 2147483647
	lcgMultiplier = 16807
)

// lcg is the Park-Miller minimal standard generator.
type lcg struct{ state int64 }

func newLCG(seed int64) (*lcg, error) {
	s := seed % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	if s == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter,
			"seed must not be a multiple of %d", lcgModulus)
	}
	return &lcg{state: s}, nil
}

// Float returns the next value in (0, 1).
func (g *lcg) Float() float64 {
	g.state = g.state * lcgMultiplier % lcgModulus
	return float64(g.state) / lcgModulus
}

// Intn returns the next value in [0, n).
func (g *lcg) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(g.Float() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// NoiseTile returns the 32×32 threshold tile for seed, values in (0, 255).
func NoiseTile(seed int64) ([]float64, error) {
	g, err := newLCG(seed)
	if err != nil {
		return nil, err
	}
	tile := make([]float64, NoiseTileSize*NoiseTileSize)
	for i := range tile {
		tile[i] = g.Float() * 255
	}
	return tile, nil
}

// RandomOrdered thresholds every RGB channel against a seeded noise tile
// repeated across the image. With a palette, the noise offsets luminance
// by up to half a palette step before snapping to the nearest palette
// brightness.
func RandomOrdered(src *raster.Buffer, seed int64, pal palette.Palette) (*raster.Buffer, error) {
	tile, err := NoiseTile(seed)
	if err != nil {
		return nil, err
	}
	out := src.Blank()

	if len(pal) > 0 {
		colors := pal.SortedByBrightness()
		levels := colors.Levels()
		step := 255 / float64(max(1, len(levels)-1))
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				i := src.Offset(x, y)
				lum := raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
				n := tile[(y%NoiseTileSize)*NoiseTileSize+x%NoiseTileSize]
				c := colors[palette.NearestLevel(lum+(n/255-0.5)*step, levels)]
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, src.Pix[i+3]
			}
		}
		return out, nil
	}

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := src.Offset(x, y)
			t := tile[(y%NoiseTileSize)*NoiseTileSize+x%NoiseTileSize]
			for c := 0; c < 3; c++ {
				if float64(src.Pix[i+c]) >= t {
					out.Pix[i+c] = 255
				}
			}
			out.Pix[i+3] = src.Pix[i+3]
		}
	}
	return out, nil
}

func orderedFunc(key string, size int) Func {
	return func(src *raster.Buffer, p Params) (*raster.Buffer, error) {
		r := read(key, p)
		n := r.Int("matrix", size, 2, MaxMatrixSize)
		pal := r.Palette()
		if err := r.Err(); err != nil {
			return nil, err
		}
		m, err := BayerMatrix(n)
		if err != nil {
			return nil, errors.Parameter(key, "%s", errors.UserMessage(err))
		}
		return Ordered(src, m, pal)
	}
}

func randomOrdered(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("randomOrdered", p)
	seed := r.Int64("seed", 1)
	pal := r.Palette()
	if err := r.Err(); err != nil {
		return nil, err
	}
	out, err := RandomOrdered(src, seed, pal)
	if err != nil {
		return nil, errors.Parameter("randomOrdered", "%s", errors.UserMessage(err))
	}
	return out, nil
}

func registerOrdered(r *Registry) {
	params := []string{"matrix", "palette", "colors"}
	for _, o := range []struct {
		key  string
		size int
	}{
		{"bayerOrdered", 8},
		{"bayerOrdered2x2", 2},
		{"bayerOrdered4x4", 4},
		{"bayerOrdered16x16", 16},
	} {
		r.MustRegister(Info{
			Key:         o.key,
			Family:      FamilyOrdered,
			Description: "Bayer ordered dithering",
			Params:      params,
		}, orderedFunc(o.key, o.size))
	}
	r.MustRegister(Info{
		Key:         "randomOrdered",
		Family:      FamilyOrdered,
		Description: "Seeded random threshold tile, per channel",
		Params:      []string{"seed", "palette", "colors"},
	}, randomOrdered)
}
