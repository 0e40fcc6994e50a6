// Package raster defines the RGBA8 image buffer every halftone transform
// consumes and produces.
//
// A [Buffer] stores non-premultiplied RGBA samples in row-major order, four
// bytes per pixel. Transforms treat buffers as immutable: they read their
// input and return a freshly allocated result, so one buffer can feed any
// number of downstream pipeline nodes without aliasing.
//
// Conversion helpers bridge to the standard [image] package ([FromImage],
// [Buffer.Image]) and to encoded files ([Decode], [Encode]). Decoding
// understands PNG, JPEG, GIF, BMP, TIFF and WebP.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/matzehuels/halftone/pkg/errors"
)

// Buffer is a width×height RGBA8 image. Pix holds 4*Width*Height bytes.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (transparent black) buffer.
// Negative dimensions are treated as zero.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{Width: width, Height: height, Pix: make([]uint8, 4*width*height)}
}

// Filled allocates a buffer where every pixel has the given color.
func Filled(width, height int, r, g, b, a uint8) *Buffer {
	buf := New(width, height)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = r, g, b, a
	}
	return buf
}

// Validate checks the pixel storage invariant.
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil image buffer")
	}
	if b.Width < 0 || b.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative dimensions %dx%d", b.Width, b.Height)
	}
	if want := 4 * b.Width * b.Height; len(b.Pix) != want {
		return errors.New(errors.ErrCodeInvalidInput,
			"pixel storage holds %d bytes, want %d for %dx%d", len(b.Pix), want, b.Width, b.Height)
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Blank returns a zeroed buffer with the same dimensions as b.
func (b *Buffer) Blank() *Buffer {
	return New(b.Width, b.Height)
}

// Len reports the number of pixels.
func (b *Buffer) Len() int { return b.Width * b.Height }

// Offset returns the index of pixel (x, y) within Pix.
func (b *Buffer) Offset(x, y int) int { return 4 * (y*b.Width + x) }

// In reports whether (x, y) lies inside the buffer.
func (b *Buffer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// RGBA returns the channels of pixel (x, y). The caller must ensure the
// coordinates are in range.
func (b *Buffer) RGBA(x, y int) (r, g, bl, a uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// SetRGBA writes the channels of pixel (x, y).
func (b *Buffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}

// Equal reports whether two buffers have identical dimensions and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// String describes the buffer shape.
func (b *Buffer) String() string {
	return fmt.Sprintf("raster.Buffer(%dx%d)", b.Width, b.Height)
}

// Luminance returns the Rec. 601 luma of an RGB triple.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Brightness returns the plain channel average of an RGB triple.
func Brightness(r, g, b uint8) float64 {
	return (float64(r) + float64(g) + float64(b)) / 3
}

// Clamp rounds v to the nearest integer and clamps it to [0, 255].
func Clamp(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// ClampInt clamps an integer to [0, 255].
func ClampInt(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// FromImage copies any image into a new buffer, converting to
// non-premultiplied RGBA.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	buf := New(bounds.Dx(), bounds.Dy())
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < buf.Height; y++ {
			off := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Pix[4*y*buf.Width:4*(y+1)*buf.Width], nrgba.Pix[off:off+4*buf.Width])
		}
		return buf
	}
	dst := &image.NRGBA{Pix: buf.Pix, Stride: 4 * buf.Width, Rect: image.Rect(0, 0, buf.Width, buf.Height)}
	draw.Draw(dst, dst.Rect, img, bounds.Min, draw.Src)
	return buf
}

// Image wraps a copy of the buffer as an *image.NRGBA.
func (b *Buffer) Image() *image.NRGBA {
	c := b.Clone()
	return &image.NRGBA{Pix: c.Pix, Stride: 4 * b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// ColorAt returns the pixel at (x, y) as a color.NRGBA.
func (b *Buffer) ColorAt(x, y int) color.NRGBA {
	r, g, bl, a := b.RGBA(x, y)
	return color.NRGBA{R: r, G: g, B: bl, A: a}
}
