package main

import (
	"fmt"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/presentation/graph"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script|file.json>",
	Short: "Export the flow graph visualization",
	Long:  `Compiles the script and outputs a Mermaid diagram (graph TD), or a markdown summary with --summary.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, nodes, err := loadNodes(cmd, args[0])
		if err != nil {
			return err
		}
		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			out, err := tui.NewRenderer()(tui.Summary(name, nodes))
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}
		fmt.Print(graph.GenerateMermaid(nodes, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("summary", false, "Print a node summary instead of Mermaid")
}
