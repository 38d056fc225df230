package main

import (
	"fmt"
	"strings"

	bbscript "github.com/Superfang0726/Better-BlueStacks-Script"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bbscript",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bbscript version %s\n", strings.TrimSpace(bbscript.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
