package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <script|file.json>",
	Short: "Print the flat node records of a script",
	Long:  `Compiles an editor graph into the flat node records the engine walks and prints them as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, nodes, err := loadNodes(cmd, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"actions": nodes})
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
