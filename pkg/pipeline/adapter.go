package pipeline

import (
	"context"
	"image"

	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// Adapter is an effect implemented by the host rather than the transform
// library, such as text overlay or background masking. The executor calls
// it for effect nodes whose algorithm equals Key.
//
// Apply receives a private copy of the predecessor's buffer and the region
// selected by the node's x, y, width and height parameters, clipped to the
// buffer. It must not retain src after returning.
type Adapter interface {
	Key() string
	Apply(ctx context.Context, src *raster.Buffer, region image.Rectangle, p transform.Params) (*raster.Buffer, error)
}

// AdapterFunc adapts a plain function to the [Adapter] interface.
type AdapterFunc struct {
	Name string
	Fn   func(ctx context.Context, src *raster.Buffer, region image.Rectangle, p transform.Params) (*raster.Buffer, error)
}

// Key implements [Adapter].
func (a AdapterFunc) Key() string { return a.Name }

// Apply implements [Adapter].
func (a AdapterFunc) Apply(ctx context.Context, src *raster.Buffer, region image.Rectangle, p transform.Params) (*raster.Buffer, error) {
	return a.Fn(ctx, src, region, p)
}

// Region returns the rectangle selected by the x, y, width and height
// parameters, clipped to src. Missing parameters select the whole buffer.
func Region(key string, src *raster.Buffer, p transform.Params) (image.Rectangle, error) {
	r := transform.Read(key, p)
	x := r.Int("x", 0, 0, 1<<20)
	y := r.Int("y", 0, 0, 1<<20)
	w := r.Int("width", src.Width, 0, 1<<20)
	h := r.Int("height", src.Height, 0, 1<<20)
	if err := r.Err(); err != nil {
		return image.Rectangle{}, err
	}
	bounds := image.Rect(0, 0, src.Width, src.Height)
	return image.Rect(x, y, x+w, y+h).Intersect(bounds), nil
}
