// Package store persists named pipeline presets.
//
// A preset is a graph description plus metadata, saved under a unique name
// so a pipeline can be recalled later from the CLI or the HTTP API. Two
// backends are provided:
//   - [FileStore]: one JSON file per preset, for the CLI
//   - [MongoStore]: a MongoDB collection, for shared server deployments
//
// # Usage
//
//	s, err := store.NewFileStore("")  // ~/.config/halftone/presets/
//	if err != nil {
//	    return err
//	}
//	err = s.Put(ctx, &store.Preset{Name: "gameboy", Graph: g.Describe()})
//	p, err := s.Get(ctx, "gameboy")
//	g, err := p.Graph.Build()
//
// Names are validated with errors.ValidateName, so they are always safe to
// use as file names.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
)

// ErrNotFound is returned when a preset does not exist. Errors returned by
// the stores wrap it in an errors.Error with code NOT_FOUND.
var ErrNotFound = errors.New("preset not found")

// Preset is a named, saved pipeline.
type Preset struct {
	Name        string            `json:"name" bson:"name"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty" bson:"tags,omitempty"`
	Graph       graph.Description `json:"graph" bson:"graph"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at"`
}

// Validate checks the name and that the graph description builds.
// Structural pipeline rules are not checked here; an invalid pipeline can
// be saved and fixed later.
func (p *Preset) Validate() error {
	c := *p
	return c.prepare()
}

// prepare validates p and rewrites its graph in normalized form, so that
// every backend stores plain numbers, lists and maps.
func (p *Preset) prepare() error {
	if err := herrors.ValidateName(p.Name); err != nil {
		return err
	}
	g, err := p.Graph.Build()
	if err != nil {
		return herrors.Wrap(herrors.ErrCodeInvalidGraph, err, "preset %q", p.Name)
	}
	p.Graph = g.Describe()
	return nil
}

// HasTag reports whether the preset carries tag.
func (p *Preset) HasTag(tag string) bool { return slices.Contains(p.Tags, tag) }

// ListOptions filters [Store.List].
type ListOptions struct {
	// Prefix keeps presets whose name starts with it.
	Prefix string
	// Tag keeps presets carrying it.
	Tag string
	// Limit caps the result size; 0 means no limit.
	Limit int
}

func (o ListOptions) match(p *Preset) bool {
	if o.Prefix != "" && !strings.HasPrefix(p.Name, o.Prefix) {
		return false
	}
	if o.Tag != "" && !p.HasTag(o.Tag) {
		return false
	}
	return true
}

// Store is the interface for preset storage backends.
type Store interface {
	// Get retrieves a preset by name. A missing preset yields an error
	// matching ErrNotFound.
	Get(ctx context.Context, name string) (*Preset, error)

	// Put creates or replaces a preset. CreatedAt is kept from an existing
	// preset of the same name; UpdatedAt is set to now.
	Put(ctx context.Context, p *Preset) error

	// Delete removes a preset. Deleting a missing preset yields an error
	// matching ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns presets sorted by name.
	List(ctx context.Context, opts ListOptions) ([]*Preset, error)

	// Close releases backend resources.
	Close() error
}

func notFound(name string) error {
	return herrors.Wrap(herrors.ErrCodeNotFound, ErrNotFound, "preset %q", name)
}

// IsNotFound reports whether err means a missing preset.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
