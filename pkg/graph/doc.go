// Package graph provides the pipeline graph model: nodes connected by
// directed edges that describe how image transforms are composed.
//
// # Overview
//
// A pipeline has three kinds of nodes. [KindInput] nodes receive the source
// buffer, [KindEffect] nodes apply one registered transform selected by its
// string key, and [KindOutput] nodes hand their predecessor's buffer back to
// the caller. Every effect and output node reads from exactly one
// predecessor; a node may feed any number of successors.
//
// This package only stores structure. Structural rules (acyclicity, a
// single incoming edge, reachability of the output) are checked by the
// pipeline package, which also computes the execution order. A [Graph] may
// therefore hold an invalid shape so that it can be loaded, reported and
// repaired.
//
// # Basic Usage
//
//	g := graph.New()
//	g.AddNode(graph.Node{ID: "in", Kind: graph.KindInput})
//	g.AddNode(graph.Node{ID: "fs", Kind: graph.KindEffect, Algorithm: "floydSteinberg"})
//	g.AddNode(graph.Node{ID: "out", Kind: graph.KindOutput})
//	g.Connect("in", "fs", "out")
//
// [Chain] builds the common linear case in one call.
//
// # Serialization
//
// [Description] is the canonical, human-editable form. [ReadJSON],
// [WriteJSON], [ReadTOML], [WriteTOML], [Load] and [Save] convert between
// files and graphs without loss: load → save → load reproduces the same
// nodes, edges and parameters. [Canonical] returns stable bytes for cache
// keys.
//
// # Visualization
//
// [ToDOT] exports a graph to Graphviz DOT; [RenderSVG] and [RenderPNG] render
// it through the embedded Graphviz library.
//
// # Concurrency
//
// Graph instances are not safe for concurrent mutation. Concurrent readers
// are fine, which is how frame batches share one graph.
package graph
