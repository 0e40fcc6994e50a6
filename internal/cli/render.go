package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
	"github.com/matzehuels/halftone/pkg/transform"
)

// graphSource holds the flags that select a pipeline: a description file,
// a saved preset, or a single algorithm with parameters.
type graphSource struct {
	file      string
	preset    string
	algorithm string
	params    []string
}

func (s *graphSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "graph", "g", "", "pipeline description file (.json or .toml)")
	cmd.Flags().StringVarP(&s.preset, "preset", "p", "", "saved preset name")
	cmd.Flags().StringVarP(&s.algorithm, "algorithm", "a", "", "single algorithm to apply")
	cmd.Flags().StringArrayVar(&s.params, "param", nil, "algorithm parameter key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("graph", "preset", "algorithm")
}

// load resolves the selected pipeline.
func (s *graphSource) load(ctx context.Context, c *CLI) (*graph.Graph, error) {
	switch {
	case s.file != "":
		if len(s.params) > 0 {
			return nil, fmt.Errorf("--param only applies to --algorithm")
		}
		return graph.Load(s.file)
	case s.preset != "":
		st, err := c.newStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		p, err := st.Get(ctx, s.preset)
		if err != nil {
			return nil, err
		}
		return p.Graph.Build()
	case s.algorithm != "":
		params, err := parseParams(s.params)
		if err != nil {
			return nil, err
		}
		return graph.Chain(graph.Step{Algorithm: s.algorithm, Params: params}), nil
	}
	return nil, fmt.Errorf("one of --graph, --preset or --algorithm is required")
}

// parseParams parses key=value flags. Values are read as JSON when
// possible (numbers, booleans, lists); comma-separated values become lists
// of strings; anything else is a plain string.
func parseParams(pairs []string) (graph.Params, error) {
	params := graph.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", pair)
		}
		params[key] = parseValue(strings.TrimSpace(value))
	}
	return params, nil
}

func parseValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if strings.HasPrefix(v, "[") || strings.HasPrefix(v, "{") {
		var out any
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
	}
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		list := make([]any, len(parts))
		for i, p := range parts {
			list[i] = strings.TrimSpace(p)
		}
		return list
	}
	return v
}

// applyDefaultPalette gives every dithering node without its own palette
// or colors the named palette.
func applyDefaultPalette(g *graph.Graph, reg *transform.Registry, name string) {
	if name == "" {
		return
	}
	for _, n := range g.NodesOfKind(graph.KindEffect) {
		info, ok := reg.Info(n.Algorithm)
		if !ok || (info.Family != transform.FamilyDiffusion && info.Family != transform.FamilyOrdered) {
			continue
		}
		if _, has := n.Params["palette"]; has {
			continue
		}
		if _, has := n.Params["colors"]; has {
			continue
		}
		p := n.Params.Clone()
		if p == nil {
			p = graph.Params{}
		}
		p["palette"] = name
		_ = g.SetParams(n.ID, p)
	}
}

// renderOpts holds the flags shared by render and frames.
type renderOpts struct {
	output  string
	format  string
	maxSide int
	smooth  bool
	noCache bool
	refresh bool
	palette string
}

func (o *renderOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format: png (default), jpeg, gif, bmp, tiff")
	cmd.Flags().IntVar(&o.maxSide, "max-side", 0, "downscale so neither side exceeds this many pixels")
	cmd.Flags().BoolVar(&o.smooth, "smooth", false, "smooth resampling for --max-side (default nearest-neighbor)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "ignore cached results and render again")
	cmd.Flags().StringVar(&o.palette, "palette", "", "default palette for dithering nodes without one")
}

func (o *renderOpts) options() pipeline.Options {
	return pipeline.Options{
		Format:  raster.Format(strings.ToLower(o.format)),
		MaxSide: o.maxSide,
		Smooth:  o.smooth,
		Refresh: o.refresh,
	}
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		src  graphSource
		opts renderOpts
	)

	cmd := &cobra.Command{
		Use:   "render [image]",
		Short: "Run an image through a pipeline",
		Long: `Run an image through a pipeline and write the result.

The pipeline comes from a description file (--graph), a saved preset
(--preset) or a single algorithm (--algorithm with --param key=value).`,
		Example: `  halftone render photo.jpg -a floydSteinberg --param palette=gameBoyOriginal
  halftone render photo.jpg -g pipeline.toml -o out.png --max-side 800
  halftone render photo.jpg -p retro -f gif`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], &src, &opts)
		},
	}

	src.register(cmd)
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <image>-halftone.<format>)")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, src *graphSource, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	g, err := src.load(ctx, c)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.palette == "" {
		opts.palette = cfg.Render.Palette
	}

	img, err := raster.DecodeFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	applyDefaultPalette(g, runner.Executor.Registry, opts.palette)

	po := opts.options()
	if po.Format == "" && opts.output != "" {
		po.Format = raster.FormatFromPath(opts.output)
	}
	po.Logger = logger

	prog := newProgress(logger)
	res, err := runner.Render(ctx, g, img, po)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = defaultOutput(input, res.Format)
	}
	if err := os.WriteFile(out, res.Artifact, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	prog.done("Rendered " + filepath.Base(out))

	printSuccess("Rendered %s", input)
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheHit)
	printFile(out)
	return nil
}

// defaultOutput derives <dir>/<name>-halftone.<ext> from the input path.
func defaultOutput(input string, format raster.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	ext := string(format)
	if format == raster.FormatJPEG {
		ext = "jpg"
	}
	return base + "-halftone." + ext
}
