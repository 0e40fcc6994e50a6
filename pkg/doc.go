// Package pkg provides the core libraries for Halftone image effects.
//
// # Overview
//
// Halftone runs images through pipelines of dithering, halftone, tone,
// color and glitch effects. A pipeline is a small directed graph: one input
// node, effect nodes naming a registered algorithm, and one output node.
// The pkg directory is organized into four main areas:
//
//  1. Pixels and color: [raster], [palette]
//  2. Effects: [transform], [overlay], [fonts]
//  3. Pipelines: [graph], [pipeline], [animate]
//  4. Infrastructure: [cache], [store], [observability], [errors], [buildinfo]
//
// # Architecture
//
// The typical data flow through Halftone:
//
//	image file                graph description (JSON/TOML/preset)
//	    ↓                              ↓
//	[raster] decode             [graph] build + validate
//	    └──────────────┬───────────────┘
//	                   ↓
//	      [pipeline] order + execute nodes
//	   ([transform] registry, [overlay] adapters)
//	                   ↓
//	      [raster] encode → [cache] artifact
//
// # Quick Start
//
// Render one image through a saved description:
//
//	g, _ := graph.Load("retro.toml")
//	src, _ := raster.DecodeFile("photo.jpg")
//
//	runner := pipeline.NewRunner(nil, nil, nil, logger)
//	res, err := runner.Render(ctx, g, src, pipeline.Options{Format: raster.FormatPNG})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("out.png", res.Artifact, 0o644)
//
// Build a pipeline in code:
//
//	g := graph.Chain(
//	    graph.Step{Algorithm: "contrast", Params: graph.Params{"amount": 1.3}},
//	    graph.Step{Algorithm: "floydSteinberg", Params: graph.Params{"palette": "gameBoyOriginal"}},
//	)
//
// # Main Packages
//
// [raster] - The RGBA buffer every transform reads and writes, plus decode,
// encode and resampling helpers.
//
// [palette] - Colors, built-in palettes and nearest-color matching.
//
// [transform] - The algorithm registry: error diffusion, ordered and pattern
// dithering, tone, palette mapping, post effects and glitches.
//
// [overlay] - Host adapters for text and background masks.
//
// [graph] - Pipeline graphs and their JSON, TOML and DOT forms.
//
// [pipeline] - Validation, ordering, execution and cached rendering of
// graphs, including frame sequences.
//
// [animate] - Per-frame parameter schedules for animated sequences.
//
// [cache] - Artifact caches backed by memory, files or Redis.
//
// [store] - Named presets backed by files or MongoDB.
//
// [raster]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/raster
// [palette]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/palette
// [transform]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/transform
// [overlay]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/overlay
// [fonts]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/fonts
// [graph]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/graph
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/pipeline
// [animate]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/animate
// [cache]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/halftone/pkg/buildinfo
package pkg
