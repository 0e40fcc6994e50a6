package raster

import (
	"bufio"
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/halftone/pkg/errors"
)

// Format names an encoded image container.
type Format string

// Supported output formats. WebP is decode-only.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// FormatFromPath guesses the output format from a file extension,
// defaulting to PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".gif":
		return FormatGIF
	case ".bmp":
		return FormatBMP
	case ".tif", ".tiff":
		return FormatTIFF
	default:
		return FormatPNG
	}
}

// DefaultMaxPixels bounds the declared size of a decoded image: 64
// megapixels, about 256 MiB as RGBA.
const DefaultMaxPixels = 64 << 20

// Decode reads an encoded image and returns it as a buffer along with the
// detected format name. Images declaring more than [DefaultMaxPixels] are
// rejected before their pixels are allocated.
func Decode(r io.Reader) (*Buffer, string, error) {
	return DecodeLimit(r, DefaultMaxPixels)
}

// DecodeLimit is like Decode with an explicit pixel budget. The header is
// checked first, so a small file declaring huge dimensions fails with
// INVALID_INPUT without allocating. A non-positive maxPixels disables the
// check.
func DecodeLimit(r io.Reader, maxPixels int) (*Buffer, string, error) {
	br := bufio.NewReader(r)
	if maxPixels > 0 {
		var header bytes.Buffer
		cfg, _, err := image.DecodeConfig(io.TeeReader(br, &header))
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image")
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
			return nil, "", errors.New(errors.ErrCodeInvalidInput,
				"image is %dx%d, larger than the %d pixel limit", cfg.Width, cfg.Height, maxPixels)
		}
		br = bufio.NewReader(io.MultiReader(&header, br))
	}
	img, format, err := image.Decode(br)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image")
	}
	return FromImage(img), format, nil
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (*Buffer, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer f.Close()
	buf, _, err := Decode(f)
	return buf, err
}

// Encode writes the buffer in the given format.
func Encode(w io.Writer, b *Buffer, format Format) error {
	if err := b.Validate(); err != nil {
		return err
	}
	img := b.Image()
	var err error
	switch format {
	case FormatPNG, "":
		err = png.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 92})
	case FormatGIF:
		err = gif.Encode(w, img, nil)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported output format %q", format)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", format)
	}
	return nil
}

// EncodeFile writes the buffer to path, choosing the format by extension.
func EncodeFile(path string, b *Buffer) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	if err := Encode(f, b, FormatFromPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Scale resamples the buffer to width×height. Smooth selects Catmull-Rom
// interpolation, otherwise nearest-neighbor is used so hard pixel edges
// survive.
func Scale(b *Buffer, width, height int, smooth bool) *Buffer {
	if width <= 0 || height <= 0 {
		return New(0, 0)
	}
	src := &image.NRGBA{Pix: b.Pix, Stride: 4 * b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
	out := New(width, height)
	dst := &image.NRGBA{Pix: out.Pix, Stride: 4 * width, Rect: image.Rect(0, 0, width, height)}
	var interp xdraw.Interpolator = xdraw.NearestNeighbor
	if smooth {
		interp = xdraw.CatmullRom
	}
	interp.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	return out
}

// Fit downsizes the buffer so neither side exceeds maxSide, keeping the
// aspect ratio. Buffers already within bounds are returned as is.
func Fit(b *Buffer, maxSide int, smooth bool) *Buffer {
	if maxSide <= 0 || (b.Width <= maxSide && b.Height <= maxSide) {
		return b
	}
	w, h := b.Width, b.Height
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	return Scale(b, w, h, smooth)
}
