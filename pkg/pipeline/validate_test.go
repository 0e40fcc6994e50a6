package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/transform"
)

func input(id string) graph.Node  { return graph.Node{ID: id, Kind: graph.KindInput} }
func output(id string) graph.Node { return graph.Node{ID: id, Kind: graph.KindOutput} }
func effect(id, algo string, p graph.Params) graph.Node {
	return graph.Node{ID: id, Kind: graph.KindEffect, Algorithm: algo, Params: p}
}

// build assembles a graph from nodes and "source->target" edge pairs.
func build(t *testing.T, nodes []graph.Node, edges ...[2]string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(graph.Edge{Source: e[0], Target: e[1]}); err != nil {
			t.Fatalf("AddEdge(%v): %v", e, err)
		}
	}
	return g
}

func TestValidate(t *testing.T) {
	known := transform.Default().Has

	tests := []struct {
		name  string
		graph func(t *testing.T) *graph.Graph
		want  []string
	}{
		{
			name: "Chain",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), effect("e1", "threshold", nil), effect("e2", "tint", nil), output("out")},
					[2]string{"in", "e1"}, [2]string{"e1", "e2"}, [2]string{"e2", "out"})
			},
		},
		{
			name: "InputToOutput",
			graph: func(t *testing.T) *graph.Graph {
				return build(t, []graph.Node{input("in"), output("out")}, [2]string{"in", "out"})
			},
		},
		{
			name:  "Empty",
			graph: func(t *testing.T) *graph.Graph { return graph.New() },
			want:  []string{"graph has no input node", "graph has no output node"},
		},
		{
			name: "Cycle",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), effect("a", "threshold", nil), effect("b", "threshold", nil), output("out")},
					[2]string{"in", "a"}, [2]string{"a", "b"}, [2]string{"b", "a"}, [2]string{"b", "out"})
			},
			want: []string{
				"graph contains a cycle: a -> b -> a",
				`effect node "a" has 2 incoming edges, want exactly one`,
			},
		},
		{
			name: "Diamond",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), effect("e1", "threshold", nil), effect("e2", "tint", nil), output("out")},
					[2]string{"in", "e1"}, [2]string{"in", "e2"}, [2]string{"e1", "out"}, [2]string{"e2", "out"})
			},
			want: []string{`output node "out" has 2 incoming edges, want exactly one`},
		},
		{
			name: "DanglingUnknownEffect",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), effect("x", "nope", nil), output("out")},
					[2]string{"in", "out"})
			},
			want: []string{
				`effect node "x" uses unknown algorithm "nope"`,
				`effect node "x" has no incoming edge`,
				`effect node "x" has no outgoing edge`,
			},
		},
		{
			name: "MissingAlgorithm",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), effect("x", "", nil), output("out")},
					[2]string{"in", "x"}, [2]string{"x", "out"})
			},
			want: []string{`effect node "x" has no algorithm`},
		},
		{
			name: "InputWithIncoming",
			graph: func(t *testing.T) *graph.Graph {
				return build(t,
					[]graph.Node{input("in"), input("in2"), output("out")},
					[2]string{"in", "in2"}, [2]string{"in2", "out"})
			},
			want: []string{`input node "in2" has 1 incoming edges, want none`},
		},
		{
			name: "OrphanOutput",
			graph: func(t *testing.T) *graph.Graph {
				return build(t, []graph.Node{input("in"), output("out")})
			},
			want: []string{`output node "out" has no incoming edge`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.graph(t), known)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *herrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if diff := cmp.Diff(tt.want, ve.Problems); diff != "" {
				t.Errorf("problems mismatch (-want +got):\n%s", diff)
			}
			if !herrors.Is(err, herrors.ErrCodeInvalidGraph) {
				t.Errorf("code = %q, want %q", herrors.GetCode(err), herrors.ErrCodeInvalidGraph)
			}
		})
	}
}

func TestValidateNilKnownSkipsAlgorithms(t *testing.T) {
	g := build(t,
		[]graph.Node{input("in"), effect("x", "whatever", nil), output("out")},
		[2]string{"in", "x"}, [2]string{"x", "out"})
	if err := Validate(g, nil); err != nil {
		t.Errorf("Validate(nil known) = %v", err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	// Inserted back to front so the order must come from the edges.
	g := build(t,
		[]graph.Node{output("out"), effect("e2", "tint", nil), effect("e1", "threshold", nil), input("in")},
		[2]string{"in", "e1"}, [2]string{"e1", "e2"}, [2]string{"e2", "out"})

	got, err := TopologicalOrder(g)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"in", "e1", "e2", "out"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalOrderStable(t *testing.T) {
	g := build(t,
		[]graph.Node{input("in"), effect("a", "threshold", nil), output("oa"), effect("b", "tint", nil), output("ob")},
		[2]string{"in", "a"}, [2]string{"a", "oa"}, [2]string{"in", "b"}, [2]string{"b", "ob"})

	first, err := TopologicalOrder(g)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, _ := TopologicalOrder(g)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("order changed between calls:\n%s", diff)
		}
	}
	if diff := cmp.Diff([]string{"in", "a", "oa", "b", "ob"}, first); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalOrderCycle(t *testing.T) {
	g := build(t,
		[]graph.Node{effect("a", "threshold", nil), effect("b", "threshold", nil)},
		[2]string{"a", "b"}, [2]string{"b", "a"})
	if _, err := TopologicalOrder(g); !errors.Is(err, ErrCycle) {
		t.Errorf("TopologicalOrder() = %v, want ErrCycle", err)
	}
}
