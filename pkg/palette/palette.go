// Package palette holds color palettes and the lookups quantizing
// transforms perform against them.
//
// A [Palette] is an ordered list of RGB colors. Order matters: it is the
// ramp used when a palette is mapped without sorting, and it breaks ties in
// [Palette.Nearest]. [Palette.SortedByBrightness] returns the ramp ordered
// by Rec. 601 luma, which is what brightness-mapped quantizers and
// palette-space dithering operate on.
//
// Named presets (classic console and home computer palettes) are available
// through [Lookup] and [Presets].
package palette

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/halftone/pkg/errors"
)

// Color is an opaque RGB triple.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// Brightness returns the Rec. 601 luma of the color.
func (c Color) Brightness() float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string { return c.Hex() }

// NRGBA returns the color as an opaque color.NRGBA.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Colorful converts to a go-colorful color for perceptual operations.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// FromColorful converts back, clamping out-of-gamut values.
func FromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// ParseHex parses "#rgb", "#rrggbb" or the same without the leading '#'.
func ParseHex(s string) (Color, error) {
	h := strings.TrimSpace(s)
	if !strings.HasPrefix(h, "#") {
		h = "#" + h
	}
	if len(h) == 4 {
		h = "#" + strings.Repeat(h[1:2], 2) + strings.Repeat(h[2:3], 2) + strings.Repeat(h[3:4], 2)
	}
	if len(h) != 7 || strings.IndexFunc(h[1:], notHexDigit) >= 0 {
		return Color{}, errors.New(errors.ErrCodeInvalidParameter, "invalid hex color %q", s)
	}
	c, err := colorful.Hex(strings.ToLower(h))
	if err != nil {
		return Color{}, errors.Wrap(errors.ErrCodeInvalidParameter, err, "invalid hex color %q", s)
	}
	return FromColorful(c), nil
}

func notHexDigit(r rune) bool {
	return !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F')
}

// MustParseHex is like ParseHex but panics on malformed input.
func MustParseHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Palette is an ordered color set.
type Palette []Color

// ParseHexList parses a list of hex strings into a palette.
func ParseHexList(hexes []string) (Palette, error) {
	p := make(Palette, 0, len(hexes))
	for _, h := range hexes {
		c, err := ParseHex(h)
		if err != nil {
			return nil, err
		}
		p = append(p, c)
	}
	return p, nil
}

// Hex returns the colors as hex strings.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Validate reports an ErrCodeInvalidParameter error for an empty palette.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "palette must not be empty")
	}
	return nil
}

// Clone returns a copy of the palette.
func (p Palette) Clone() Palette {
	return append(Palette(nil), p...)
}

// SortedByBrightness returns a copy sorted by ascending luma. Colors with
// equal luma keep their relative order.
func (p Palette) SortedByBrightness() Palette {
	s := p.Clone()
	sort.SliceStable(s, func(i, j int) bool { return s[i].Brightness() < s[j].Brightness() })
	return s
}

// Levels returns the luma of every color, in palette order.
func (p Palette) Levels() []float64 {
	out := make([]float64, len(p))
	for i, c := range p {
		out[i] = c.Brightness()
	}
	return out
}

// Nearest returns the index of the color closest to (r, g, b) by Euclidean
// RGB distance. The first listed color wins ties. It returns -1 for an empty
// palette.
func (p Palette) Nearest(r, g, b uint8) int {
	best, bestDist := -1, math.MaxInt
	for i, c := range p {
		dr := int(r) - int(c.R)
		dg := int(g) - int(c.G)
		db := int(b) - int(c.B)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// NearestLab is like Nearest but measures distance in CIE L*a*b*.
func (p Palette) NearestLab(r, g, b uint8) int {
	target := Color{R: r, G: g, B: b}.Colorful()
	best, bestDist := -1, math.Inf(1)
	for i, c := range p {
		if d := target.DistanceLab(c.Colorful()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// RampIndex maps a 0..255 brightness onto an index of an n-entry ramp:
// floor(v/255*(n-1)), clamped to the ramp.
func RampIndex(v float64, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(math.Floor(v / 255 * float64(n-1)))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// NearestLevel returns the index of the level closest to v. The first of
// equally distant levels wins, which for ascending levels is the darker one.
func NearestLevel(v float64, levels []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, l := range levels {
		if d := math.Abs(v - l); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
