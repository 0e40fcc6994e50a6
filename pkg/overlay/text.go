// Package overlay provides host implementations of pipeline adapters:
// text drawn over a region and a luminance-keyed background mask.
//
// Both types satisfy [pipeline.Adapter] and are registered with an
// executor through [pipeline.NewExecutor]:
//
//	masks := overlay.NewMaskCache(32)
//	exec := pipeline.NewExecutor(nil, logger, overlay.NewText(), overlay.NewBackground(masks))
//
// Adapters hold no per-run state. The mask cache is an explicit object owned
// by the caller and may be shared by concurrent executions.
package overlay

import (
	"context"
	"image"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/fonts"
	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// TextKey is the algorithm key of the text adapter.
const TextKey = "textOverlay"

// Text draws one or more lines of text inside the node's region.
//
// Parameters:
//   - text: the string to draw; "\n" separates lines (required)
//   - font: one of fonts.Names(), default regular
//   - size: font size in pixels, default 24
//   - color: fill color, default #ffffff
//   - strokeWidth, strokeColor: outline drawn under the fill, default none
//   - posX, posY: anchor position as a percentage of the region, default 50
//   - align: left, center or right around the anchor, default center
type Text struct {
	font *opentype.Font
}

// NewText returns a text adapter drawing with the font named by each
// node's font parameter.
func NewText() *Text {
	return &Text{}
}

// NewTextWithFont returns a text adapter drawing with f unless a node names
// a font of its own.
func NewTextWithFont(f *opentype.Font) *Text {
	return &Text{font: f}
}

// Key implements [pipeline.Adapter].
func (t *Text) Key() string { return TextKey }

// Info describes the adapter for algorithm listings.
func (t *Text) Info() transform.Info {
	return transform.Info{
		Key:         TextKey,
		Family:      transform.FamilyAdapter,
		Description: "Draw text over a region",
		Params:      []string{"text", "font", "size", "color", "strokeWidth", "strokeColor", "posX", "posY", "align", "x", "y", "width", "height"},
	}
}

type textParams struct {
	text        string
	font        string
	size        float64
	fill        palette.Color
	stroke      palette.Color
	strokeWidth int
	posX, posY  float64
	align       string
}

func readText(p transform.Params) (textParams, error) {
	r := transform.Read(TextKey, p)
	tp := textParams{
		text:        r.String("text", ""),
		font:        r.String("font", "", fonts.Names()...),
		size:        r.Float("size", 24, 4, 512),
		fill:        r.Color("color", palette.RGB(255, 255, 255)),
		stroke:      r.Color("strokeColor", palette.RGB(0, 0, 0)),
		strokeWidth: r.Int("strokeWidth", 0, 0, 16),
		posX:        r.Float("posX", 50, 0, 100),
		posY:        r.Float("posY", 50, 0, 100),
		align:       r.String("align", "center", "left", "center", "right"),
	}
	if err := r.Err(); err != nil {
		return tp, err
	}
	if strings.TrimSpace(tp.text) == "" {
		return tp, herrors.Parameter(TextKey, "text must not be empty")
	}
	return tp, nil
}

// Apply implements [pipeline.Adapter]. Text falling outside region is
// clipped.
func (t *Text) Apply(ctx context.Context, src *raster.Buffer, region image.Rectangle, p transform.Params) (*raster.Buffer, error) {
	tp, err := readText(p)
	if err != nil {
		return nil, err
	}
	if region.Empty() {
		return src, nil
	}

	f := t.font
	if f == nil || tp.font != "" {
		if f, err = fonts.Lookup(tp.font); err != nil {
			return nil, err
		}
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    tp.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidParameter, err, "%s: font face", TextKey)
	}
	defer face.Close()

	// Draw straight into src's pixels; the executor hands us a private copy.
	img := &image.NRGBA{Pix: src.Pix, Stride: 4 * src.Width, Rect: image.Rect(0, 0, src.Width, src.Height)}
	dst := img.SubImage(region).(*image.NRGBA)

	lines := strings.Split(tp.text, "\n")
	metrics := face.Metrics()
	lineHeight := metrics.Height
	blockHeight := lineHeight.Mul(fixed.I(len(lines)))

	anchorX := fixed.I(region.Min.X) + fixed.Int26_6(float64(region.Dx())*tp.posX/100*64)
	anchorY := fixed.I(region.Min.Y) + fixed.Int26_6(float64(region.Dy())*tp.posY/100*64)
	top := anchorY - blockHeight/2

	d := &font.Drawer{Dst: dst, Face: face}
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		width := d.MeasureString(line)
		x := anchorX
		switch tp.align {
		case "center":
			x -= width / 2
		case "right":
			x -= width
		}
		y := top + lineHeight.Mul(fixed.I(i)) + metrics.Ascent

		if tp.strokeWidth > 0 {
			d.Src = image.NewUniform(tp.stroke.NRGBA())
			sw := fixed.I(tp.strokeWidth)
			for _, o := range [][2]fixed.Int26_6{{-sw, -sw}, {0, -sw}, {sw, -sw}, {-sw, 0}, {sw, 0}, {-sw, sw}, {0, sw}, {sw, sw}} {
				d.Dot = fixed.Point26_6{X: x + o[0], Y: y + o[1]}
				d.DrawString(line)
			}
		}
		d.Src = image.NewUniform(tp.fill.NRGBA())
		d.Dot = fixed.Point26_6{X: x, Y: y}
		d.DrawString(line)
	}
	return src, nil
}

var _ pipeline.Adapter = (*Text)(nil)
