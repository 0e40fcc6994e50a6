package graph

import (
	"strings"

	"github.com/google/uuid"
)

// Well-known IDs used by [Chain] for the endpoints of generated graphs.
const (
	InputID  = "input"
	OutputID = "output"
)

// NewNodeID returns a fresh node ID with the given prefix, for example
// "floydSteinberg-1f0c9a2b".
func NewNodeID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// Step is one effect of a linear pipeline.
type Step struct {
	Algorithm string
	Params    Params
}

// Chain builds the linear graph input → steps... → output. Effect node IDs
// are generated with [NewNodeID]; a chain without steps connects the input
// straight to the output.
func Chain(steps ...Step) *Graph {
	g := New()
	_ = g.AddNode(Node{ID: InputID, Kind: KindInput, Label: "Input"})
	ids := []string{InputID}
	for _, s := range steps {
		id := NewNodeID(s.Algorithm)
		_ = g.AddNode(Node{ID: id, Kind: KindEffect, Algorithm: s.Algorithm, Params: s.Params.Clone()})
		ids = append(ids, id)
	}
	_ = g.AddNode(Node{ID: OutputID, Kind: KindOutput, Label: "Output"})
	ids = append(ids, OutputID)
	_ = g.Connect(ids...)
	return g
}
