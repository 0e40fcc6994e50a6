package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Serialization formats understood by [Load] and [Save].
const (
	FormatJSON = "json"
	FormatTOML = "toml"
)

// FormatFromPath returns the description format implied by the file
// extension of path. Unknown extensions fall back to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	}
	return FormatJSON
}

// ReadJSON decodes a JSON description from r and builds the graph.
//
// The input must be a JSON object with "nodes" and "edges" arrays:
//
//	{
//	  "nodes": [
//	    {"id": "in", "kind": "input"},
//	    {"id": "fs", "kind": "effect", "algorithm": "floydSteinberg"},
//	    {"id": "out", "kind": "output"}
//	  ],
//	  "edges": [{"source": "in", "target": "fs"}, {"source": "fs", "target": "out"}]
//	}
//
// Numbers are decoded without loss of precision. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Graph, error) {
	d, err := DecodeJSON(r)
	if err != nil {
		return nil, err
	}
	return d.Build()
}

// DecodeJSON decodes a JSON description without building a graph.
func DecodeJSON(r io.Reader) (Description, error) {
	var d Description
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("decode: %w", err)
	}
	return d, nil
}

// WriteJSON encodes g as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Describe()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadTOML decodes a TOML description from r and builds the graph.
//
//	[[nodes]]
//	id = "in"
//	kind = "input"
//
//	[[nodes]]
//	id = "fs"
//	kind = "effect"
//	algorithm = "floydSteinberg"
//	params = { serpentine = true }
func ReadTOML(r io.Reader) (*Graph, error) {
	var d Description
	if _, err := toml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return d.Build()
}

// WriteTOML encodes g as TOML and writes it to w.
func WriteTOML(w io.Writer, g *Graph) error {
	if err := toml.NewEncoder(w).Encode(g.Describe()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Canonical returns the compact JSON encoding of g's description. Map keys
// are sorted by the encoder, so equal graphs produce equal bytes; the result
// is suitable for hashing into cache keys.
func Canonical(g *Graph) ([]byte, error) {
	data, err := json.Marshal(g.Describe())
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// Parse builds a graph from data in the given format.
func Parse(data []byte, format string) (*Graph, error) {
	switch format {
	case FormatTOML:
		return ReadTOML(bytes.NewReader(data))
	case FormatJSON, "":
		return ReadJSON(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("unknown description format %q", format)
}

// Load reads the description file at path, choosing JSON or TOML by file
// extension, and returns the built graph.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save writes g to path, choosing JSON or TOML by file extension.
func Save(path string, g *Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	write := WriteJSON
	if FormatFromPath(path) == FormatTOML {
		write = WriteTOML
	}
	if err := write(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
