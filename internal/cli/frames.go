package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/pkg/animate"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
)

// framesOpts holds the command-line flags for the frames command.
type framesOpts struct {
	renderOpts
	count     int     // number of frames; overrides duration × fps
	duration  float64 // sequence length in seconds
	fps       float64 // frames per second
	animation string  // animation mode
	cycles    float64 // full periods over the sequence
	intensity float64 // amplitude scale in [0, 1]
	workers   int     // concurrent frame renders
}

// framesCommand creates the frames command for rendering animated sequences.
func (c *CLI) framesCommand() *cobra.Command {
	var src graphSource
	opts := framesOpts{
		duration:  2,
		fps:       12,
		cycles:    1,
		intensity: 1,
	}

	modes := make([]string, 0, len(animate.Modes()))
	for _, m := range animate.Modes() {
		modes = append(modes, string(m))
	}

	cmd := &cobra.Command{
		Use:   "frames [image]",
		Short: "Render an animated frame sequence from one image",
		Long: `Render a numbered frame sequence from one image, animating node
parameters across the frames.

Animations: ` + strings.Join(modes, ", "),
		Example: `  halftone frames photo.jpg -a threshold --animation threshold-sweep -o frames/
  halftone frames photo.jpg -g glitch.json --animation glitch-wave --fps 24 --duration 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFrames(cmd.Context(), args[0], &src, &opts)
		},
	}

	src.register(cmd)
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default <image>-frames)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of frames (default duration × fps)")
	cmd.Flags().Float64Var(&opts.duration, "duration", opts.duration, "sequence length in seconds")
	cmd.Flags().Float64Var(&opts.fps, "fps", opts.fps, "frames per second")
	cmd.Flags().StringVar(&opts.animation, "animation", "", "animation mode (default none)")
	cmd.Flags().Float64Var(&opts.cycles, "cycles", opts.cycles, "full animation periods over the sequence")
	cmd.Flags().Float64Var(&opts.intensity, "intensity", opts.intensity, "animation intensity between 0 and 1")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "frames rendered concurrently (default from config)")

	_ = cmd.RegisterFlagCompletionFunc("animation", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return modes, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (o *framesOpts) frameCount() (int, error) {
	if o.count < 0 {
		return 0, fmt.Errorf("--count must be positive")
	}
	if o.count > 0 {
		return o.count, nil
	}
	if o.duration <= 0 || o.fps <= 0 {
		return 0, fmt.Errorf("--duration and --fps must be positive")
	}
	return animate.FrameCount(o.duration, o.fps), nil
}

func (c *CLI) runFrames(ctx context.Context, input string, src *graphSource, opts *framesOpts) error {
	logger := namedLogger(ctx, "frames")

	n, err := opts.frameCount()
	if err != nil {
		return err
	}
	mode, err := animate.ParseMode(opts.animation)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.workers <= 0 {
		opts.workers = cfg.Render.Workers
	}
	if opts.palette == "" {
		opts.palette = cfg.Render.Palette
	}

	g, err := src.load(ctx, c)
	if err != nil {
		return err
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

	dir := opts.output
	if dir == "" {
		dir = strings.TrimSuffix(input, filepath.Ext(input)) + "-frames"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	spinner := newSpinner(ctx, "Rendering frames", n)
	spinner.Start()

	prog := newProgress(logger)
	po := opts.options()
	po.Logger = logger
	results, err := runner.RenderSequence(ctx, g, img, n, pipeline.FrameOptions{
		Workers: opts.workers,
		Schedule: animate.Schedule{
			Mode:      mode,
			Cycles:    opts.cycles,
			Intensity: opts.intensity,
		},
		OnFrame: func(i int) {
			spinner.Advance()
			logger.Debug("frame done", "frame", i, "completed", spinner.Completed(), "total", n)
		},
	}, po)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}

	var cached int
	for i, res := range results {
		path := filepath.Join(dir, frameName(i, n, res.Format))
		if err := os.WriteFile(path, res.Artifact, 0o644); err != nil {
			spinner.StopWithError("Writing frames failed")
			return fmt.Errorf("write %s: %w", path, err)
		}
		if res.CacheHit {
			cached++
		}
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d frames", n))
	prog.done(fmt.Sprintf("Rendered %d frames (%d cached)", n, cached))

	printKeyValue("Animation", string(mode))
	printKeyValue("Frames", fmt.Sprintf("%d", n))
	printFile(dir)
	return nil
}

// frameName returns a zero-padded file name wide enough for n frames.
func frameName(i, n int, format raster.Format) string {
	width := len(fmt.Sprint(n - 1))
	if width < 4 {
		width = 4
	}
	ext := string(format)
	if format == raster.FormatJPEG {
		ext = "jpg"
	}
	return fmt.Sprintf("frame_%0*d.%s", width, i, ext)
}
