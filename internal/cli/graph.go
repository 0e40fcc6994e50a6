package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/pipeline"
)

// graphCommand creates the graph command group.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and create pipeline descriptions",
	}

	cmd.AddCommand(c.graphValidateCommand())
	cmd.AddCommand(c.graphOrderCommand())
	cmd.AddCommand(c.graphDotCommand())
	cmd.AddCommand(c.graphNewCommand())

	return cmd
}

// graphValidateCommand creates the "graph validate" subcommand.
func (c *CLI) graphValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a pipeline for structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return err
			}
			err = c.newExecutor().Validate(g)
			var ve *herrors.ValidationError
			if stderrors.As(err, &ve) {
				printError("%s has %d problem(s)", args[0], len(ve.Problems))
				for _, p := range ve.Problems {
					printDetail("%s", p)
				}
				return fmt.Errorf("invalid pipeline")
			}
			if err != nil {
				return err
			}
			printSuccess("%s is valid", args[0])
			printStats(g.NodeCount(), g.EdgeCount(), false)
			return nil
		},
	}
}

// graphOrderCommand creates the "graph order" subcommand.
func (c *CLI) graphOrderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order [file]",
		Short: "Print the execution order of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return err
			}
			order, err := pipeline.TopologicalOrder(g)
			if err != nil {
				return err
			}
			for i, id := range order {
				n, _ := g.Node(id)
				fmt.Printf("%s %s %s\n", StyleNumber.Render(fmt.Sprintf("%2d", i+1)), StyleValue.Render(id), StyleDim.Render(n.DisplayName()))
			}
			return nil
		},
	}
}

// graphDotCommand creates the "graph dot" subcommand.
func (c *CLI) graphDotCommand() *cobra.Command {
	var (
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "dot [file]",
		Short: "Export a pipeline as Graphviz DOT, SVG or PNG",
		Long: `Export a pipeline as Graphviz DOT. With -o ending in .svg or .png the
diagram is rendered with the embedded Graphviz.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return err
			}
			dot := graph.ToDOT(g, graph.DOTOptions{Detailed: detailed})

			var data []byte
			switch strings.ToLower(filepath.Ext(output)) {
			case "":
				fmt.Print(dot)
				return nil
			case ".svg":
				data, err = graph.RenderSVG(cmd.Context(), dot)
			case ".png":
				data, err = graph.RenderPNG(cmd.Context(), dot)
			default:
				data = []byte(dot)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Exported %s", args[0])
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg, .png; default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node parameters in labels")

	return cmd
}

// graphNewCommand creates the "graph new" subcommand.
func (c *CLI) graphNewCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "new [algorithm[:key=value...]]...",
		Short: "Scaffold a linear pipeline description",
		Example: `  halftone graph new tone:contrast=40 floydSteinberg:palette=gameBoyOriginal -o retro.toml
  halftone graph new bayerOrdered4x4:colors=#000000,#ffffff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := make([]graph.Step, 0, len(args))
			exec := c.newExecutor()
			for _, arg := range args {
				step, err := parseStep(arg)
				if err != nil {
					return err
				}
				if !exec.Known(step.Algorithm) {
					return herrors.New(herrors.ErrCodeUnknownAlgorithm, "unknown algorithm %q", step.Algorithm)
				}
				steps = append(steps, step)
			}
			g := graph.Chain(steps...)

			if output == "" {
				return graph.WriteJSON(os.Stdout, g)
			}
			if err := graph.Save(output, g); err != nil {
				return err
			}
			printSuccess("Created pipeline with %d step(s)", len(steps))
			printFile(output)
			printNextStep("Render it", "halftone render <image> -g "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json or .toml; default stdout as JSON)")

	return cmd
}

// parseStep parses "algorithm:key=value:key=value".
func parseStep(s string) (graph.Step, error) {
	parts := strings.Split(s, ":")
	if parts[0] == "" {
		return graph.Step{}, fmt.Errorf("invalid step %q: missing algorithm", s)
	}
	params, err := parseParams(parts[1:])
	if err != nil {
		return graph.Step{}, fmt.Errorf("invalid step %q: %w", s, err)
	}
	if len(params) == 0 {
		params = nil
	}
	return graph.Step{Algorithm: parts[0], Params: params}, nil
}
