package overlay

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/halftone/pkg/palette"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// BackgroundKey is the algorithm key of the background mask adapter.
const BackgroundKey = "backgroundMask"

// Mask is a per-pixel foreground weight, 0 for background and 255 for
// subject.
type Mask struct {
	Width  int
	Height int
	Values []uint8
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) uint8 { return m.Values[y*m.Width+x] }

// MaskKey identifies a mask by source content, dimensions, sensitivity,
// feather radius and keying direction.
func MaskKey(sourceHash string, width, height, sensitivity, feather int, invert bool) string {
	if len(sourceHash) > 16 {
		sourceHash = sourceHash[:16]
	}
	key := fmt.Sprintf("%s_%dx%d_s%d_f%d", sourceHash, width, height, sensitivity, feather)
	if invert {
		key += "_inv"
	}
	return key
}

// MaskCache memoizes computed masks. It is safe for concurrent use. When
// the cache is full the oldest mask is dropped.
type MaskCache struct {
	mu      sync.Mutex
	entries map[string]*Mask
	order   []string
	max     int
	hits    int
	misses  int
}

// NewMaskCache creates a cache holding at most maxEntries masks; a
// non-positive maxEntries means unbounded.
func NewMaskCache(maxEntries int) *MaskCache {
	return &MaskCache{entries: make(map[string]*Mask), max: maxEntries}
}

// Get returns the mask stored under key.
func (c *MaskCache) Get(key string) (*Mask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return m, ok
}

// Put stores m under key. Stored masks must not be modified.
func (c *MaskCache) Put(key string, m *Mask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = m
	for c.max > 0 && len(c.order) > c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Len returns the number of cached masks.
func (c *MaskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since creation or the last Clear.
func (c *MaskCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops every mask and resets the counters.
func (c *MaskCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Mask)
	c.order = nil
	c.hits, c.misses = 0, 0
}

// Background darkens the background of an image, keeping the subject.
//
// The subject is found by luminance keying: bright pixels are foreground,
// or dark ones with invert set. Pixels whose mask value falls below the
// sensitivity threshold are replaced by the background color. A feather
// radius blurs the mask so edges fade instead of cutting hard.
//
// Parameters:
//   - sensitivity: mask threshold 0..255, default 128
//   - feather: blur radius in pixels 0..20, default 0
//   - invert: treat dark pixels as the subject, default false
//   - background: replacement color, default #000000
type Background struct {
	cache *MaskCache
}

// NewBackground returns a background adapter memoizing masks in c. A nil c
// computes every mask afresh.
func NewBackground(c *MaskCache) *Background {
	return &Background{cache: c}
}

// Key implements [pipeline.Adapter].
func (b *Background) Key() string { return BackgroundKey }

// Info describes the adapter for algorithm listings.
func (b *Background) Info() transform.Info {
	return transform.Info{
		Key:         BackgroundKey,
		Family:      transform.FamilyAdapter,
		Description: "Replace the luminance-keyed background with a solid color",
		Params:      []string{"sensitivity", "feather", "invert", "background", "x", "y", "width", "height"},
	}
}

// Apply implements [pipeline.Adapter]. The mask is computed over the whole
// buffer and applied only inside region. Alpha is preserved.
func (b *Background) Apply(ctx context.Context, src *raster.Buffer, region image.Rectangle, p transform.Params) (*raster.Buffer, error) {
	r := transform.Read(BackgroundKey, p)
	sensitivity := r.Int("sensitivity", 128, 0, 255)
	feather := r.Int("feather", 0, 0, 20)
	invert := r.Bool("invert", false)
	bg := r.Color("background", palette.RGB(0, 0, 0))
	if err := r.Err(); err != nil {
		return nil, err
	}
	if region.Empty() {
		return src, nil
	}

	mask := b.mask(src, sensitivity, feather, invert)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := float64(sensitivity)
	bgc := [3]float64{float64(bg.R), float64(bg.G), float64(bg.B)}
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			m := float64(mask.At(x, y))
			if m >= t {
				continue
			}
			// Hard cut without feathering, otherwise fade by mask strength.
			f := 0.0
			if feather > 0 && t > 0 {
				f = m / t
			}
			i := src.Offset(x, y)
			for c := range 3 {
				v := float64(src.Pix[i+c])
				src.Pix[i+c] = raster.Clamp(bgc[c] + (v-bgc[c])*f)
			}
		}
	}
	return src, nil
}

func (b *Background) mask(src *raster.Buffer, sensitivity, feather int, invert bool) *Mask {
	var key string
	if b.cache != nil {
		key = MaskKey(pipeline.SourceHash(src), src.Width, src.Height, sensitivity, feather, invert)
		if m, ok := b.cache.Get(key); ok {
			return m
		}
	}
	m := LuminanceMask(src, invert, feather)
	if b.cache != nil {
		b.cache.Put(key, m)
	}
	return m
}

// LuminanceMask keys src by luminance and blurs the result with a Gaussian
// of sigma feather/2.
func LuminanceMask(src *raster.Buffer, invert bool, feather int) *Mask {
	gray := image.NewGray(image.Rect(0, 0, src.Width, src.Height))
	for i, j := 0, 0; i < len(src.Pix); i, j = i+4, j+1 {
		v := raster.Clamp(raster.Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
		if invert {
			v = 255 - v
		}
		gray.Pix[j] = v
	}

	m := &Mask{Width: src.Width, Height: src.Height, Values: gray.Pix}
	if feather <= 0 || src.Len() == 0 {
		return m
	}
	blurred := imaging.Blur(gray, float64(feather)/2)
	values := make([]uint8, src.Len())
	for y := range src.Height {
		row := blurred.Pix[y*blurred.Stride:]
		for x := range src.Width {
			values[y*src.Width+x] = row[4*x]
		}
	}
	m.Values = values
	return m
}

var _ pipeline.Adapter = (*Background)(nil)
