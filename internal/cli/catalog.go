package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/palette"
)

// palettesCommand lists the built-in palettes.
func (c *CLI) palettesCommand() *cobra.Command {
	var noSwatch bool

	cmd := &cobra.Command{
		Use:   "palettes",
		Short: "List built-in palettes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := palette.Presets()
			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				colors := swatch(p.Colors)
				if noSwatch {
					colors = strings.Join(p.Colors.Hex(), " ")
				}
				rows = append(rows, []string{p.Key, p.Name, fmt.Sprint(len(p.Colors)), colors})
			}
			fmt.Println(renderTable([]string{"Key", "Name", "Colors", ""}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSwatch, "hex", false, "print hex values instead of color swatches")

	return cmd
}

// algorithmsCommand lists registered algorithms and adapters.
func (c *CLI) algorithmsCommand() *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:     "algorithms",
		Aliases: []string{"algos"},
		Short:   "List available algorithms",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := c.newExecutor().Infos()
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				if family != "" && string(info.Family) != family {
					continue
				}
				rows = append(rows, []string{info.Key, string(info.Family), info.Description, strings.Join(info.Params, ", ")})
			}
			if len(rows) == 0 {
				printWarning("No algorithms in family %q", family)
				return nil
			}
			fmt.Println(renderTable([]string{"Key", "Family", "Description", "Params"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "only list one family (diffusion, ordered, pattern, tone, palette, color, post, glitch, adapter)")

	return cmd
}

// pickCommand selects an algorithm interactively and emits a one-step
// pipeline for it.
func (c *CLI) pickCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick an algorithm interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model := NewAlgorithmListModel(c.newExecutor().Infos())
			final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("picker: %w", err)
			}
			picked := final.(AlgorithmListModel).Selected
			if picked == nil {
				printInfo("Nothing selected")
				return nil
			}

			g := graph.Chain(graph.Step{Algorithm: picked.Key})
			if output == "" {
				return graph.WriteJSON(os.Stdout, g)
			}
			if err := graph.Save(output, g); err != nil {
				return err
			}
			printSuccess("Selected %s", picked.Key)
			printFile(output)
			printNextStep("Render it", "halftone render <image> -g "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the pipeline to a file instead of stdout")

	return cmd
}
