package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/palette"
)

// Params are the node-local settings handed to a transform. Values come
// from decoded graph descriptions, so numbers may arrive as float64, int,
// int64 or json.Number.
type Params map[string]any

// Clone returns a shallow copy. Slice values are copied one level deep.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		switch vv := v.(type) {
		case []any:
			out[k] = append([]any(nil), vv...)
		case []string:
			out[k] = append([]string(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// With returns a copy of p with key set to value.
func (p Params) With(key string, value any) Params {
	out := p.Clone()
	if out == nil {
		out = Params{}
	}
	out[key] = value
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reader pulls typed values out of Params. The first failure sticks and is
// returned by Err, so a caller can read all its parameters and check once.
type Reader struct {
	algo   string
	params Params
	err    error
}

// Read returns a Reader attributing errors to algo. Host adapters use it to
// parse their parameters the same way built-in transforms do.
func Read(algo string, p Params) *Reader { return read(algo, p) }

func read(algo string, p Params) *Reader {
	return &Reader{algo: algo, params: p}
}

func (r *Reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = errors.Parameter(r.algo, format, args...)
	}
}

// Err returns the first parameter error encountered.
func (r *Reader) Err() error { return r.err }

// first returns the first of keys present in the params, or keys[0].
func (r *Reader) first(keys ...string) string {
	for _, k := range keys {
		if _, ok := r.params[k]; ok {
			return k
		}
	}
	return keys[0]
}

// Has reports whether key is set.
func (r *Reader) Has(key string) bool {
	_, ok := r.params[key]
	return ok
}

// Float reads a number within [lo, hi].
func (r *Reader) Float(key string, def, lo, hi float64) float64 {
	v, ok := r.params[key]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail("%s must be a number, got %v", key, v)
		return def
	}
	if f < lo || f > hi {
		r.fail("%s must be in [%g, %g], got %g", key, lo, hi, f)
		return def
	}
	return f
}

// Int reads an integral number within [lo, hi].
func (r *Reader) Int(key string, def, lo, hi int) int {
	v, ok := r.params[key]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		r.fail("%s must be an integer, got %v", key, v)
		return def
	}
	if f < float64(lo) || f > float64(hi) {
		r.fail("%s must be in [%d, %d], got %g", key, lo, hi, f)
		return def
	}
	return int(f)
}

// Int64 reads an integer without range limits.
func (r *Reader) Int64(key string, def int64) int64 {
	v, ok := r.params[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		r.fail("%s must be an integer, got %v", key, v)
		return def
	}
	return int64(f)
}

// Bool reads a boolean.
func (r *Reader) Bool(key string, def bool) bool {
	v, ok := r.params[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	r.fail("%s must be a boolean, got %v", key, v)
	return def
}

// String reads a string, optionally restricted to one of allowed.
func (r *Reader) String(key, def string, allowed ...string) string {
	v, ok := r.params[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail("%s must be a string, got %v", key, v)
		return def
	}
	if len(allowed) > 0 {
		for _, a := range allowed {
			if s == a {
				return s
			}
		}
		r.fail("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), s)
		return def
	}
	return s
}

// Color reads a hex color.
func (r *Reader) Color(key string, def palette.Color) palette.Color {
	if !r.Has(key) {
		return def
	}
	s := r.String(key, "")
	if r.err != nil {
		return def
	}
	c, err := palette.ParseHex(s)
	if err != nil {
		r.fail("%s: %v", key, errors.UserMessage(err))
		return def
	}
	return c
}

// Palette resolves the "palette" (preset key) or "colors" (hex list)
// parameters. It returns nil when neither is present. An explicitly empty
// color list is an error.
func (r *Reader) Palette() palette.Palette {
	if r.Has("colors") {
		hexes, ok := toStrings(r.params["colors"])
		if !ok {
			r.fail("colors must be a list of hex strings")
			return nil
		}
		if len(hexes) == 0 {
			r.fail("palette must not be empty")
			return nil
		}
		p, err := palette.ParseHexList(hexes)
		if err != nil {
			r.fail("colors: %v", errors.UserMessage(err))
			return nil
		}
		return p
	}
	if r.Has("palette") {
		key := r.String("palette", "")
		if r.err != nil {
			return nil
		}
		p, err := palette.Lookup(key)
		if err != nil {
			if r.err == nil {
				r.err = errors.Wrap(errors.ErrCodeUnknownPalette, err, "%s", r.algo)
			}
			return nil
		}
		return p
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint8:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	case string:
		if strings.TrimSpace(s) == "" {
			return nil, true
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, true
	}
	return nil, false
}

// String renders params as "k=v" pairs in key order, for logs.
func (p Params) String() string {
	var b strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, p[k])
	}
	return b.String()
}
