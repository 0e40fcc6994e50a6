package transform

import (
	"sort"
	"sync"

	"github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/raster"
)

// Func is a pure pixel transform. Implementations must not modify src and
// must return a newly allocated buffer of the same dimensions.
type Func func(src *raster.Buffer, p Params) (*raster.Buffer, error)

// Family groups transforms for listings.
type Family string

const (
	FamilyNone      Family = "none"
	FamilyDiffusion Family = "diffusion"
	FamilyOrdered   Family = "ordered"
	FamilyPattern   Family = "pattern"
	FamilyTone      Family = "tone"
	FamilyPalette   Family = "palette"
	FamilyColor     Family = "color"
	FamilyPost      Family = "post"
	FamilyGlitch    Family = "glitch"
	FamilyAdapter   Family = "adapter"
)

// Info describes a registered transform.
type Info struct {
	Key         string   `json:"key"`
	Family      Family   `json:"family"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

type entry struct {
	info Info
	fn   Func
}

// Registry maps stable algorithm keys to transforms. It is safe for
// concurrent use; lookups during execution only take a read lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a transform under info.Key, replacing any previous one.
func (r *Registry) Register(info Info, fn Func) error {
	if info.Key == "" {
		return errors.New(errors.ErrCodeInvalidInput, "transform key must not be empty")
	}
	if fn == nil {
		return errors.New(errors.ErrCodeInvalidInput, "transform %q has nil function", info.Key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[info.Key] = entry{info: info, fn: fn}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(info Info, fn Func) {
	if err := r.Register(info, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the transform registered under key.
func (r *Registry) Lookup(key string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e.fn, ok
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Apply runs the transform registered under key.
func (r *Registry) Apply(key string, src *raster.Buffer, p Params) (*raster.Buffer, error) {
	fn, ok := r.Lookup(key)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownAlgorithm, "unknown algorithm %q", key)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return fn(src, p)
}

// Info returns the description of key.
func (r *Registry) Info(key string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e.info, ok
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Infos lists every registered transform, sorted by family then key.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].Key < out[j].Key
	})
	return out
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the shared registry holding every built-in transform.
// Callers that register their own transforms should build a registry with
// [NewBuiltin] instead of mutating the shared one.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewBuiltin() })
	return defaultReg
}

// NewBuiltin returns a fresh registry with all built-in transforms.
func NewBuiltin() *Registry {
	r := NewRegistry()
	r.MustRegister(Info{Key: "none", Family: FamilyNone, Description: "Pass the image through unchanged"}, passthrough)
	registerDiffusion(r)
	registerOrdered(r)
	registerPatterns(r)
	registerTone(r)
	registerPalette(r)
	registerPost(r)
	registerGlitch(r)
	return r
}

func passthrough(src *raster.Buffer, _ Params) (*raster.Buffer, error) {
	return src.Clone(), nil
}
