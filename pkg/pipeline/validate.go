package pipeline

import (
	"errors"
	"fmt"
	"strings"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
)

// ErrCycle is returned by [TopologicalOrder] for a cyclic graph.
var ErrCycle = errors.New("graph contains a cycle")

// Validate checks the structural rules a graph must satisfy before it can
// run. Every violation is collected; the result is nil or a
// *errors.ValidationError listing all of them.
//
// Rules:
//   - at least one input node and at least one output node
//   - no directed cycle
//   - input nodes have no incoming edge
//   - effect and output nodes have exactly one incoming edge
//   - effect nodes have at least one outgoing edge
//   - effect nodes name an algorithm, and known reports it as registered
//
// known may be nil, in which case algorithm names are not checked.
func Validate(g *graph.Graph, known func(algorithm string) bool) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(g.NodesOfKind(graph.KindInput)) == 0 {
		add("graph has no input node")
	}
	if len(g.NodesOfKind(graph.KindOutput)) == 0 {
		add("graph has no output node")
	}
	if cycle := g.FindCycle(); cycle != nil {
		add("graph contains a cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, n := range g.Nodes() {
		in, out := g.InDegree(n.ID), g.OutDegree(n.ID)
		switch n.Kind {
		case graph.KindInput:
			if in > 0 {
				add("input node %q has %d incoming edges, want none", n.ID, in)
			}
		case graph.KindEffect:
			switch {
			case n.Algorithm == "":
				add("effect node %q has no algorithm", n.ID)
			case known != nil && !known(n.Algorithm):
				add("effect node %q uses unknown algorithm %q", n.ID, n.Algorithm)
			}
			if in == 0 {
				add("effect node %q has no incoming edge", n.ID)
			}
			if out == 0 {
				add("effect node %q has no outgoing edge", n.ID)
			}
		case graph.KindOutput:
			if in == 0 {
				add("output node %q has no incoming edge", n.ID)
			}
		}
		if n.Kind != graph.KindInput && in > 1 {
			add("%s node %q has %d incoming edges, want exactly one", n.Kind, n.ID, in)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &herrors.ValidationError{Problems: problems}
}

// TopologicalOrder returns the node IDs so that every node follows all of
// its predecessors. The order is a depth-first post-order over incoming
// edges, starting from nodes in insertion order, so it is stable for a
// given graph. A cyclic graph yields an error wrapping [ErrCycle].
func TopologicalOrder(g *graph.Graph) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, g.NodeCount())
	order := make([]string, 0, g.NodeCount())

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: through node %q", ErrCycle, id)
		}
		state[id] = visiting
		for _, parent := range g.Parents(id) {
			if err := visit(parent); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, n := range g.Nodes() {
		if err := visit(n.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}
