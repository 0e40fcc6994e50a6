package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidKind is returned by [Graph.AddNode] for a kind other than
	// input, effect or output.
	ErrInvalidKind = errors.New("invalid node kind")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownNode is returned by [Graph.RemoveNode] and [Graph.SetParams]
	// for an ID that is not in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Kind is the role of a node in a pipeline.
type Kind string

const (
	// KindInput nodes receive the caller-supplied source buffer.
	KindInput Kind = "input"
	// KindEffect nodes apply one registered transform to their predecessor.
	KindEffect Kind = "effect"
	// KindOutput nodes pass their predecessor's buffer through as the result.
	KindOutput Kind = "output"
)

// Valid reports whether k is one of the three node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInput, KindEffect, KindOutput:
		return true
	}
	return false
}

// Params holds node-local transform parameters. Values are the plain
// scalars, strings and lists produced by the JSON and TOML decoders.
type Params map[string]any

// Position is the editor canvas location of a node. It has no effect on
// execution and is carried only so descriptions round-trip.
type Position struct {
	X float64 `json:"x" toml:"x" bson:"x"`
	Y float64 `json:"y" toml:"y" bson:"y"`
}

// Node is a vertex of a pipeline graph.
//
// Algorithm is the transform registry key and is only meaningful for
// effect nodes. Params is never nil after AddNode.
type Node struct {
	ID        string
	Kind      Kind
	Algorithm string
	Label     string
	Params    Params
	Position  *Position
}

// DisplayName returns the label, the algorithm or the ID, whichever is set
// first.
func (n Node) DisplayName() string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Algorithm != "":
		return n.Algorithm
	}
	return n.ID
}

// Edge is a directed connection from Source to Target.
type Edge struct {
	Source string
	Target string
}

func (e Edge) String() string { return e.Source + "->" + e.Target }

// Graph is a pipeline graph: nodes in insertion order plus directed edges.
//
// Graph only stores structure and answers adjacency queries; structural
// rules such as acyclicity and single inputs are checked by the pipeline
// package before execution. A Graph may hold cycles and dangling shapes so
// that invalid graphs can be loaded, reported and edited.
//
// The zero value is not usable; use New. Graph is not safe for concurrent
// mutation, but concurrent reads are fine.
type Graph struct {
	order    []string
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // nodeID -> target IDs
	incoming map[string][]string // nodeID -> source IDs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds n to the graph. A nil Params map is replaced by an empty one.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: %q (node %s)", ErrInvalidKind, n.Kind, n.ID)
	}
	if n.Params == nil {
		n.Params = Params{}
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge adds a directed edge. Both endpoints must already exist.
// Duplicate and self edges are accepted and left for validation to report.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target)
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	return nil
}

// Connect adds an edge for every consecutive pair of ids.
func (g *Graph) Connect(ids ...string) error {
	for i := 1; i < len(ids); i++ {
		if err := g.AddEdge(Edge{Source: ids[i-1], Target: ids[i]}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEdge removes the first edge from source to target, if present.
func (g *Graph) RemoveEdge(source, target string) {
	i := slices.Index(g.edges, Edge{Source: source, Target: target})
	if i < 0 {
		return
	}
	g.edges = slices.Delete(g.edges, i, i+1)
	g.outgoing[source] = removeOne(g.outgoing[source], target)
	g.incoming[target] = removeOne(g.incoming[target], source)
}

// RemoveNode removes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
	for _, t := range g.outgoing[id] {
		g.incoming[t] = slices.DeleteFunc(g.incoming[t], func(s string) bool { return s == id })
	}
	for _, s := range g.incoming[id] {
		g.outgoing[s] = slices.DeleteFunc(g.outgoing[s], func(t string) bool { return t == id })
	}
	delete(g.outgoing, id)
	delete(g.incoming, id)
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	return nil
}

// SetParams replaces the parameters of a node.
func (g *Graph) SetParams(id string, p Params) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if p == nil {
		p = Params{}
	}
	n.Params = p
	return nil
}

func removeOne(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// NodesOfKind returns the nodes of kind k in insertion order.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Children returns the targets of edges leaving id.
func (g *Graph) Children(id string) []string { return slices.Clone(g.outgoing[id]) }

// Parents returns the sources of edges entering id.
func (g *Graph) Parents(id string) []string { return slices.Clone(g.incoming[id]) }

// InDegree returns the number of edges entering id.
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// OutDegree returns the number of edges leaving id.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// FindCycle returns the node IDs of one directed cycle, first node repeated
// at the end, or nil when the graph is acyclic. Traversal starts from nodes
// in insertion order so the reported cycle is stable.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range g.outgoing[id] {
			switch color[next] {
			case gray:
				start := slices.Index(stack, next)
				cycle = append(slices.Clone(stack[start:]), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// HasCycle reports whether the graph contains a directed cycle.
func (g *Graph) HasCycle() bool { return g.FindCycle() != nil }

// Clone returns a deep copy of the graph. Parameter maps are copied one
// level deep and list values are copied.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, id := range g.order {
		n := *g.nodes[id]
		n.Params = n.Params.Clone()
		if n.Position != nil {
			p := *n.Position
			n.Position = &p
		}
		c.nodes[id] = &n
		c.order = append(c.order, id)
	}
	c.edges = slices.Clone(g.edges)
	for k, v := range g.outgoing {
		c.outgoing[k] = slices.Clone(v)
	}
	for k, v := range g.incoming {
		c.incoming[k] = slices.Clone(v)
	}
	return c
}

// Clone returns a copy of p. Slice values are copied so that the copy can be
// edited independently.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	out := maps.Clone(p)
	for k, v := range out {
		switch s := v.(type) {
		case []any:
			out[k] = slices.Clone(s)
		case []string:
			out[k] = slices.Clone(s)
		}
	}
	return out
}
