package transform

import (
	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/raster"
)

// PaletteRamp maps each pixel's channel-average brightness onto the palette
// ordered by luma (or as listed, when sorted is false).
func PaletteRamp(src *raster.Buffer, pal palette.Palette, sorted bool) (*raster.Buffer, error) {
	if err := pal.Validate(); err != nil {
		return nil, err
	}
	ramp := pal
	if sorted {
		ramp = pal.SortedByBrightness()
	}
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		b := raster.Brightness(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		c := ramp[palette.RampIndex(b, len(ramp))]
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, src.Pix[i+3]
	}
	return out, nil
}

// PaletteNearest replaces every pixel with its nearest palette color.
func PaletteNearest(src *raster.Buffer, pal palette.Palette, lab bool) (*raster.Buffer, error) {
	if err := pal.Validate(); err != nil {
		return nil, err
	}
	nearest := pal.Nearest
	if lab {
		nearest = pal.NearestLab
	}
	memo := make(map[[3]uint8]palette.Color)
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		key := [3]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2]}
		c, ok := memo[key]
		if !ok {
			c = pal[nearest(key[0], key[1], key[2])]
			memo[key] = c
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, src.Pix[i+3]
	}
	return out, nil
}

func requirePalette(r *Reader) palette.Palette {
	pal := r.Palette()
	if r.Err() == nil && pal == nil {
		r.fail("palette must not be empty")
	}
	return pal
}

func paletteRamp(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("paletteRamp", p)
	pal := requirePalette(r)
	sorted := r.Bool("sorted", true)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return PaletteRamp(src, pal, sorted)
}

func paletteNearest(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("paletteNearest", p)
	pal := requirePalette(r)
	metric := r.String("metric", "rgb", "rgb", "lab")
	if err := r.Err(); err != nil {
		return nil, err
	}
	return PaletteNearest(src, pal, metric == "lab")
}

// tint scales an RGB color by each pixel's brightness.
func tint(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("tint", p)
	red := r.Float("red", 255, 0, 255)
	green := r.Float("green", 255, 0, 255)
	blue := r.Float("blue", 255, 0, 255)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		f := raster.Brightness(src.Pix[i], src.Pix[i+1], src.Pix[i+2]) / 255
		out.Pix[i] = raster.Clamp(f * red)
		out.Pix[i+1] = raster.Clamp(f * green)
		out.Pix[i+2] = raster.Clamp(f * blue)
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out, nil
}

// singleColor renders dark pixels black and the rest in one color.
func singleColor(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("singleColor", p)
	c := r.Color("color", palette.RGB(255, 255, 255))
	t := r.Float("threshold", 128, 0, 255)
	if err := r.Err(); err != nil {
		return nil, err
	}
	out := src.Blank()
	for i := 0; i < len(src.Pix); i += 4 {
		if raster.Brightness(src.Pix[i], src.Pix[i+1], src.Pix[i+2]) >= t {
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out, nil
}

func registerPalette(r *Registry) {
	r.MustRegister(Info{Key: "paletteRamp", Family: FamilyPalette, Description: "Map brightness onto a palette ramp",
		Params: []string{"palette", "colors", "sorted"}}, paletteRamp)
	r.MustRegister(Info{Key: "paletteNearest", Family: FamilyPalette, Description: "Snap every pixel to its nearest palette color",
		Params: []string{"palette", "colors", "metric"}}, paletteNearest)
	r.MustRegister(Info{Key: "tint", Family: FamilyColor, Description: "Brightness-scaled RGB tint",
		Params: []string{"red", "green", "blue"}}, tint)
	r.MustRegister(Info{Key: "singleColor", Family: FamilyColor, Description: "Black below the threshold, one color above",
		Params: []string{"color", "threshold"}}, singleColor)
}
