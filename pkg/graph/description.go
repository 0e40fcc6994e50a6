package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// DescriptionVersion is written into every saved description.
const DescriptionVersion = 1

// =============================================================================
// Description - Graph Serialization
// =============================================================================

// Description is the canonical serialization format for pipeline graphs.
// It is used for settings files, presets, the HTTP API and cache keys.
//
// The format is human-readable and designed for round-trip fidelity:
// load → save → load yields the same nodes, edges and parameters, and
// therefore the same execution result.
type Description struct {
	Version int        `json:"version,omitempty" toml:"version,omitempty" bson:"version,omitempty"`
	Nodes   []NodeDesc `json:"nodes" toml:"nodes" bson:"nodes"`
	Edges   []EdgeDesc `json:"edges" toml:"edges" bson:"edges"`
}

// NodeDesc is the serialized form of a [Node].
type NodeDesc struct {
	ID        string         `json:"id" toml:"id" bson:"id"`
	Kind      Kind           `json:"kind" toml:"kind" bson:"kind"`
	Algorithm string         `json:"algorithm,omitempty" toml:"algorithm,omitempty" bson:"algorithm,omitempty"`
	Label     string         `json:"label,omitempty" toml:"label,omitempty" bson:"label,omitempty"`
	Params    map[string]any `json:"params,omitempty" toml:"params,omitempty" bson:"params,omitempty"`
	Position  *Position      `json:"position,omitempty" toml:"position,omitempty" bson:"position,omitempty"`
}

// EdgeDesc is the serialized form of an [Edge].
type EdgeDesc struct {
	Source string `json:"source" toml:"source" bson:"source"`
	Target string `json:"target" toml:"target" bson:"target"`
}

// Describe converts g to its serializable form. Nodes and edges keep
// insertion order.
func (g *Graph) Describe() Description {
	d := Description{
		Version: DescriptionVersion,
		Nodes:   make([]NodeDesc, 0, len(g.order)),
		Edges:   make([]EdgeDesc, 0, len(g.edges)),
	}
	for _, n := range g.Nodes() {
		nd := NodeDesc{
			ID:        n.ID,
			Kind:      n.Kind,
			Algorithm: n.Algorithm,
			Label:     n.Label,
			Position:  n.Position,
		}
		if len(n.Params) > 0 {
			nd.Params = n.Params.Clone()
		}
		d.Nodes = append(d.Nodes, nd)
	}
	for _, e := range g.edges {
		d.Edges = append(d.Edges, EdgeDesc{Source: e.Source, Target: e.Target})
	}
	return d
}

// Build converts a description into a Graph.
//
// Parameter values are normalized: JSON numbers become int64 when integral
// and float64 otherwise, and nested lists and tables are normalized
// recursively, so a description decoded from JSON and one decoded from TOML
// build identical graphs.
//
// Errors are wrapped with context describing which node or edge caused the
// problem. Use errors.Is to check for the sentinel errors of this package.
func (d Description) Build() (*Graph, error) {
	g := New()
	for _, n := range d.Nodes {
		nd := Node{
			ID:        n.ID,
			Kind:      n.Kind,
			Algorithm: n.Algorithm,
			Label:     n.Label,
			Position:  n.Position,
		}
		if n.Kind == "" {
			nd.Kind = KindEffect
		}
		if len(n.Params) > 0 {
			nd.Params = make(Params, len(n.Params))
			for k, v := range n.Params {
				nd.Params[k] = normalize(v)
			}
		}
		if err := g.AddNode(nd); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range d.Edges {
		if err := g.AddEdge(Edge{Source: e.Source, Target: e.Target}); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return g, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return normalize(f)
		}
		return x.String()
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	}
	return normalizeReflect(v)
}

// normalizeReflect handles named list and table types such as the ones
// produced by BSON decoding.
func normalizeReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}
