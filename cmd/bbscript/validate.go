package main

import (
	"fmt"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/presentation/tui"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script|file.json>",
	Short: "Check the graph for consistency",
	Long: `Reports graphs that would fail when run (no entry point, dangling successors,
duplicate ids) and warns about nodes the engine would skip or never reach.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, nodes, err := loadNodes(cmd, args[0])
		if err != nil {
			return err
		}
		report := validator.ValidateGraph(nodes)

		out, err := tui.NewRenderer()(tui.Report(name, report))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return report.Err()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
