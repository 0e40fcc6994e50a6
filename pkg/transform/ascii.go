package transform

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/raster"
)

// asciiRamp runs from darkest to lightest.
const asciiRamp = " .:-=+*#%@"

// asciiArt replaces each cell with a white glyph on black whose density
// follows the cell's mean luminance.
func asciiArt(src *raster.Buffer, p Params) (*raster.Buffer, error) {
	r := read("asciiArt", p)
	baseW := r.Int("cellWidth", 8, 2, 256)
	baseH := r.Int("cellHeight", 16, 2, 256)
	ramp := r.String("charset", asciiRamp)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(ramp) == 0 {
		return nil, errors.Parameter("asciiArt", "charset must not be empty")
	}

	w, h := src.Width, src.Height
	cols := max(8, w/baseW)
	rows := max(4, h/baseH)
	cellW := max(1, w/cols)
	cellH := max(1, h/rows)

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Rect, image.Black, image.Point{}, draw.Src)
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: canvas, Src: image.White, Face: face}
	metrics := face.Metrics()
	glyphH := (metrics.Ascent + metrics.Descent).Ceil()

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0, y0 := col*cellW, row*cellH
			if x0 >= w || y0 >= h {
				continue
			}
			sum, n := 0.0, 0
			for y := y0; y < min(y0+cellH, h); y++ {
				for x := x0; x < min(x0+cellW, w); x++ {
					i := src.Offset(x, y)
					sum += raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
					n++
				}
			}
			ch := ramp[int(sum/float64(n)/255*float64(len(ramp)-1))]
			if ch == ' ' {
				continue
			}
			glyph := string(ch)
			adv := d.MeasureString(glyph).Ceil()
			d.Dot = fixed.P(x0+(cellW-adv)/2, y0+(cellH-glyphH)/2+metrics.Ascent.Ceil())
			d.DrawString(glyph)
		}
	}

	out := raster.FromImage(canvas)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = src.Pix[i]
	}
	return out, nil
}
