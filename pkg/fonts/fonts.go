// Package fonts provides the parsed fonts available to the text overlay.
//
// The fonts are the Go font family from golang.org/x/image, compiled into
// the binary so rendering never depends on what is installed on the host.
// Each font is parsed once on first use and shared afterwards.
package fonts

import (
	"sort"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	herrors "github.com/matzehuels/halftone/pkg/errors"
)

// Default is the font used when none is named.
const Default = "regular"

type entry struct {
	ttf  []byte
	once sync.Once
	font *opentype.Font
	err  error
}

var registry = map[string]*entry{
	"regular":  {ttf: goregular.TTF},
	"bold":     {ttf: gobold.TTF},
	"italic":   {ttf: goitalic.TTF},
	"mono":     {ttf: gomono.TTF},
	"monoBold": {ttf: gomonobold.TTF},
}

// Lookup returns the parsed font registered under name. An empty name
// selects [Default].
func Lookup(name string) (*opentype.Font, error) {
	if name == "" {
		name = Default
	}
	e, ok := registry[name]
	if !ok {
		return nil, herrors.New(herrors.ErrCodeInvalidParameter, "unknown font %q", name)
	}
	e.once.Do(func() {
		e.font, e.err = opentype.Parse(e.ttf)
	})
	if e.err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInternal, e.err, "parse font %q", name)
	}
	return e.font, nil
}

// Names lists the registered font names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
