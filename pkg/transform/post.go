package transform

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/halftone/pkg/raster"
)

// BloomOptions control [Bloom].
type BloomOptions struct {
	Intensity float64 // glow strength, 0 disables
	Radius    int     // spacing between blur kernel taps
	Passes    int     // blur passes
}

// Bloom blurs a working copy, boosts its bright areas by 1.2 and screens
// it over the source. Source alpha is kept.
func Bloom(src *raster.Buffer, opt BloomOptions) *raster.Buffer {
	if opt.Radius < 1 {
		opt.Radius = 1
	}
	if opt.Passes < 1 {
		opt.Passes = 3
	}
	work := src.Clone()
	tmp := src.Blank()
	for pass := 0; pass < opt.Passes; pass++ {
		blurPass(work, tmp, opt.Radius)
		work, tmp = tmp, work
	}

	for i := 0; i < len(work.Pix); i += 4 {
		if raster.Brightness(work.Pix[i], work.Pix[i+1], work.Pix[i+2]) > 128 {
			for c := 0; c < 3; c++ {
				work.Pix[i+c] = raster.Clamp(float64(work.Pix[i+c]) * 1.2)
			}
		}
	}

	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			a := float64(src.Pix[i+c]) / 255
			b := float64(work.Pix[i+c]) * opt.Intensity / 255
			out.Pix[i+c] = raster.Clamp((1 - (1-a)*(1-b)) * 255)
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

// blurKernel is the 3x3 binomial kernel, weights summing to 16.
var blurKernel = [3][3]float64{
	{1, 2, 1},
	{2, 4, 2},
	{1, 2, 1},
}

// blurPass convolves src with blurKernel into dst. Taps sit radius pixels
// apart and coordinates outside the buffer clamp to the nearest edge.
func blurPass(src, dst *raster.Buffer, radius int) {
	w, h := src.Width, src.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for ky := -1; ky <= 1; ky++ {
				ny := clampIndex(y+ky*radius, h)
				for kx := -1; kx <= 1; kx++ {
					nx := clampIndex(x+kx*radius, w)
					wt := blurKernel[ky+1][kx+1] / 16
					i := 4 * (ny*w + nx)
					r += float64(src.Pix[i]) * wt
					g += float64(src.Pix[i+1]) * wt
					b += float64(src.Pix[i+2]) * wt
				}
			}
			i := 4 * (y*w + x)
			dst.Pix[i] = raster.Clamp(r)
			dst.Pix[i+1] = raster.Clamp(g)
			dst.Pix[i+2] = raster.Clamp(b)
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
}

func clampIndex(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func bloom(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("bloom", p)
	intensity := r.Float(r.first("intensity", "bloom"), 1, 0, 4)
	radius := r.Int("radius", 1, 1, 8)
	passes := r.Int("passes", 3, 1, 10)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return Bloom(src, BloomOptions{Intensity: intensity, Radius: radius, Passes: passes}), nil
}

// hsv shifts hue and scales saturation and value. Vibrance raises the
// saturation of muted colors more than that of saturated ones.
func hsv(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("hsv", p)
	hue := r.Float("hue", 0, -360, 360)
	sat := r.Float("saturation", 1, 0, 4)
	vib := r.Float("vibrance", 0, -1, 1)
	val := r.Float("value", 1, 0, 4)
	if err := r.Err(); err != nil {
		return nil, err
	}
	memo := make(map[[3]uint8][3]uint8)
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		key := [3]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2]}
		rgb, ok := memo[key]
		if !ok {
			c := colorful.Color{R: float64(key[0]) / 255, G: float64(key[1]) / 255, B: float64(key[2]) / 255}
			h, s, v := c.Hsv()
			h = math.Mod(h+hue+360, 360)
			s = math.Min(1, s*sat)
			s = math.Max(0, math.Min(1, s+vib*s*(1-s)))
			v = math.Min(1, v*val)
			rr, gg, bb := colorful.Hsv(h, s, v).Clamped().RGB255()
			rgb = [3]uint8{rr, gg, bb}
			memo[key] = rgb
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = rgb[0], rgb[1], rgb[2], src.Pix[i+3]
	}
	return out, nil
}

// crt darkens alternate rows, every third column and the edges.
func crt(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("crt", p)
	scan := r.Float("scanlines", 0.12, 0, 1)
	grille := r.Float("grille", 0.05, 0, 1)
	vignette := r.Float("vignette", 0.28, 0, 1)
	if err := r.Err(); err != nil {
		return nil, err
	}
	w, h := src.Width, src.Height
	cx, cy := float64(w)/2, float64(h)/2
	reach := math.Max(float64(w), float64(h)) / 1.1
	out := src.Blank()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f := 1.0
			if y%2 == 0 {
				f *= 1 - scan
			}
			if x%3 == 0 {
				f *= 1 - grille
			}
			if reach > 0 {
				d := math.Min(1, math.Hypot(float64(x)-cx, float64(y)-cy)/reach)
				f *= 1 - vignette*d
			}
			i := src.Offset(x, y)
			out.Pix[i] = raster.Clamp(float64(src.Pix[i]) * f)
			out.Pix[i+1] = raster.Clamp(float64(src.Pix[i+1]) * f)
			out.Pix[i+2] = raster.Clamp(float64(src.Pix[i+2]) * f)
			out.Pix[i+3] = src.Pix[i+3]
		}
	}
	return out, nil
}

// pixelate downsamples by size and scales back up with hard edges.
func pixelate(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("pixelate", p)
	size := r.Int("size", 4, 1, 256)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if size == 1 || src.Len() == 0 {
		return src.Clone(), nil
	}
	sw := (src.Width + size - 1) / size
	sh := (src.Height + size - 1) / size
	small := raster.Scale(src, sw, sh, true)
	out := raster.Scale(small, src.Width, src.Height, false)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = src.Pix[i]
	}
	return out, nil
}

func registerPost(r *Registry) {
	r.MustRegister(Info{Key: "bloom", Family: FamilyPost, Description: "Blurred glow screened over the image",
		Params: []string{"intensity", "radius", "passes"}}, bloom)
	r.MustRegister(Info{Key: "hsv", Family: FamilyColor, Description: "Hue, saturation, vibrance and value adjustment",
		Params: []string{"hue", "saturation", "vibrance", "value"}}, hsv)
	r.MustRegister(Info{Key: "crt", Family: FamilyPost, Description: "Scanlines, aperture grille and vignette",
		Params: []string{"scanlines", "grille", "vignette"}}, crt)
	r.MustRegister(Info{Key: "pixelate", Family: FamilyPost, Description: "Blocky downsample",
		Params: []string{"size"}}, pixelate)
}
