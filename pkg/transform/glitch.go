package transform

import (
	"math"
	"sort"

	"github.com/matzehuels/halftone/pkg/raster"
)

// glitchRNG derives a generator from the seed and animation time so the
// same (seed, time, intensity) always yields the same frame.
func glitchRNG(seed int64, t float64) *lcg {
	s := (seed*1000003 + int64(math.Round(t*1000))) % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	if s == 0 {
		s = 1
	}
	return &lcg{state: s}
}

type glitchParams struct {
	intensity float64
	time      float64
	seed      int64
}

func readGlitch(r *Reader, defIntensity, maxIntensity float64) glitchParams {
	return glitchParams{
		intensity: r.Float("intensity", defIntensity, 0, maxIntensity),
		time:      r.Float("time", 0, -1e9, 1e9),
		seed:      r.Int64("seed", 1),
	}
}

// dataMosh shifts random rows sideways, wrapping around.
func dataMosh(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("dataMosh", p)
	gp := readGlitch(r, 0.5, 1)
	if err := r.Err(); err != nil {
		return nil, err
	}
	g := glitchRNG(gp.seed, gp.time)
	out := src.Clone()
	w := src.Width
	maxShift := int(math.Round(gp.intensity * float64(w) * 0.2))
	if w == 0 || maxShift == 0 {
		return out, nil
	}
	for y := 0; y < src.Height; y++ {
		if g.Float() >= gp.intensity*0.3 {
			continue
		}
		shift := g.Intn(2*maxShift+1) - maxShift
		row := src.Pix[4*y*w : 4*(y+1)*w]
		dst := out.Pix[4*y*w : 4*(y+1)*w]
		for x := 0; x < w; x++ {
			sx := ((x-shift)%w + w) % w
			copy(dst[4*x:4*x+4], row[4*sx:4*sx+4])
		}
	}
	return out, nil
}

// pixelSort sorts runs of pixels brighter than the threshold by
// brightness, along rows or columns.
func pixelSort(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("pixelSort", p)
	t := r.Float("threshold", 128, 0, 255)
	dir := r.String("direction", "horizontal", "horizontal", "vertical")
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Clone()
	lines, length := src.Height, src.Width
	at := func(line, k int) int { return out.Offset(k, line) }
	if dir == "vertical" {
		lines, length = src.Width, src.Height
		at = func(line, k int) int { return out.Offset(line, k) }
	}

	type px struct {
		c   [4]uint8
		lum float64
	}
	run := make([]px, 0, length)
	flush := func(line, end int) {
		if len(run) > 1 {
			sort.SliceStable(run, func(i, j int) bool { return run[i].lum < run[j].lum })
			start := end - len(run)
			for k, v := range run {
				i := at(line, start+k)
				copy(out.Pix[i:i+4], v.c[:])
			}
		}
		run = run[:0]
	}
	for line := 0; line < lines; line++ {
		for k := 0; k < length; k++ {
			i := at(line, k)
			c := [4]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]}
			b := raster.Brightness(c[0], c[1], c[2])
			if b > t {
				run = append(run, px{c: c, lum: b})
				continue
			}
			flush(line, k)
		}
		flush(line, length)
	}
	return out, nil
}

// chromaticAberration pulls the red channel right and the blue channel
// left. The offset wobbles with time.
func chromaticAberration(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("chromaticAberration", p)
	gp := readGlitch(r, 5, 100)
	if err := r.Err(); err != nil {
		return nil, err
	}
	off := int(math.Round(gp.intensity * (0.75 + 0.25*math.Sin(2*math.Pi*gp.time))))
	out := src.Clone()
	w := src.Width
	for y := 0; y < src.Height; y++ {
		for x := 0; x < w; x++ {
			i := src.Offset(x, y)
			rx := min(max(x-off, 0), w-1)
			bx := min(max(x+off, 0), w-1)
			out.Pix[i] = src.Pix[src.Offset(rx, y)]
			out.Pix[i+2] = src.Pix[src.Offset(bx, y)+2]
		}
	}
	return out, nil
}

// digitalCorruption damages random blocks by inverting them, swapping
// channels or copying displaced pixels.
func digitalCorruption(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("digitalCorruption", p)
	gp := readGlitch(r, 0.5, 1)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Clone()
	w, h := src.Width, src.Height
	blocks := int(math.Round(gp.intensity * 20))
	if w == 0 || h == 0 || blocks == 0 {
		return out, nil
	}
	g := glitchRNG(gp.seed, gp.time)
	for b := 0; b < blocks; b++ {
		bw := 1 + g.Intn(max(1, w/8))
		bh := 1 + g.Intn(max(1, h/8))
		x0, y0 := g.Intn(w), g.Intn(h)
		mode := g.Intn(3)
		dx := g.Intn(w)
		for y := y0; y < min(y0+bh, h); y++ {
			for x := x0; x < min(x0+bw, w); x++ {
				i := out.Offset(x, y)
				switch mode {
				case 0:
					out.Pix[i] = 255 - src.Pix[i]
					out.Pix[i+1] = 255 - src.Pix[i+1]
					out.Pix[i+2] = 255 - src.Pix[i+2]
				case 1:
					out.Pix[i], out.Pix[i+1], out.Pix[i+2] = src.Pix[i+2], src.Pix[i], src.Pix[i+1]
				default:
					j := src.Offset((x+dx)%w, y)
					copy(out.Pix[i:i+3], src.Pix[j:j+3])
				}
			}
		}
	}
	return out, nil
}

func registerGlitch(r *Registry) {
	params := []string{"intensity", "time", "seed"}
	r.MustRegister(Info{Key: "dataMosh", Family: FamilyGlitch, Description: "Random horizontal row shifts", Params: params}, dataMosh)
	r.MustRegister(Info{Key: "pixelSort", Family: FamilyGlitch, Description: "Sort bright pixel runs by brightness",
		Params: []string{"threshold", "direction"}}, pixelSort)
	r.MustRegister(Info{Key: "chromaticAberration", Family: FamilyGlitch, Description: "Split red and blue channels sideways", Params: params}, chromaticAberration)
	r.MustRegister(Info{Key: "digitalCorruption", Family: FamilyGlitch, Description: "Randomly damaged blocks", Params: params}, digitalCorruption)
}
