package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/pkg/graph"
	"github.com/matzehuels/halftone/pkg/store"
)

// presetCommand creates the preset command group.
func (c *CLI) presetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preset",
		Aliases: []string{"presets"},
		Short:   "Save and recall named pipelines",
		Long: `Save and recall named pipelines.

Presets live in the configured store: JSON files under
$XDG_CONFIG_HOME/halftone/presets by default, or a MongoDB collection when
store.backend is "mongo".`,
	}

	cmd.AddCommand(c.presetSaveCommand())
	cmd.AddCommand(c.presetLoadCommand())
	cmd.AddCommand(c.presetListCommand())
	cmd.AddCommand(c.presetDeleteCommand())

	return cmd
}

// presetSaveCommand creates the "preset save" subcommand.
func (c *CLI) presetSaveCommand() *cobra.Command {
	var (
		file        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save a pipeline description under a name",
		Example: `  halftone preset save retro -g retro.toml --tag 8bit
  halftone preset save mono -g mono.json -d "two-tone Atkinson"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := graph.Load(file)
			if err != nil {
				return err
			}
			if err := c.newExecutor().Validate(g); err != nil {
				return err
			}

			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p := &store.Preset{
				Name:        args[0],
				Description: description,
				Tags:        tags,
				Graph:       g.Describe(),
			}
			if err := st.Put(ctx, p); err != nil {
				return err
			}
			loggerFromContext(ctx).Debug("preset saved", "name", p.Name, "nodes", g.NodeCount())
			printSuccess("Saved preset %s", StyleHighlight.Render(p.Name))
			printNextStep("Use it", "halftone render <image> -p "+p.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "graph", "g", "", "pipeline description file (.json or .toml)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "short description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("graph")

	return cmd
}

// presetLoadCommand creates the "preset load" subcommand.
func (c *CLI) presetLoadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:               "load [name]",
		Aliases:           []string{"show"},
		Short:             "Print or export a saved pipeline",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePresetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			g, err := p.Graph.Build()
			if err != nil {
				return err
			}
			if output == "" {
				return graph.WriteJSON(os.Stdout, g)
			}
			if err := graph.Save(output, g); err != nil {
				return err
			}
			printSuccess("Exported preset %s", p.Name)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json or .toml; default stdout as JSON)")

	return cmd
}

// presetListCommand creates the "preset list" subcommand.
func (c *CLI) presetListCommand() *cobra.Command {
	var opts store.ListOptions

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			presets, err := st.List(ctx, opts)
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				printInfo("No presets saved")
				printNextStep("Save one", "halftone preset save <name> -g <file>")
				return nil
			}
			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				rows = append(rows, []string{
					p.Name,
					fmt.Sprint(len(p.Graph.Nodes)),
					strings.Join(p.Tags, ", "),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
					truncate(p.Description, 40),
				})
			}
			fmt.Println(renderTable([]string{"Name", "Nodes", "Tags", "Updated", "Description"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "only names starting with this prefix")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only presets with this tag")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of presets (0 = all)")

	return cmd
}

// presetDeleteCommand creates the "preset delete" subcommand.
func (c *CLI) presetDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete [name]...",
		Aliases:           []string{"rm"},
		Short:             "Delete saved presets",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completePresetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, name := range args {
				if err := st.Delete(ctx, name); err != nil {
					return err
				}
				printSuccess("Deleted preset %s", name)
			}
			return nil
		},
	}
}

// completePresetNames completes preset names from the configured store.
func (c *CLI) completePresetNames(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	st, err := c.newStore(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()

	presets, err := st.List(cmd.Context(), store.ListOptions{Prefix: toComplete})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
