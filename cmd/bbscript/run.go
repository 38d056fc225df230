package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/cli"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/presentation/tui"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a stored script until it finishes",
	Long: `Connects to the emulator and the configured messaging backends, then runs the
script in the foreground. Ctrl+C stops the run; a node inside a timed wait
finishes its wait first. A script with only slash entry points keeps listening
for commands until stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr)
		}

		app, err := cli.NewApp(context.Background(), s, cli.AppOptions{Messaging: true})
		if err != nil {
			return err
		}
		defer app.Close()

		info, err := cli.RunScript(context.Background(), app, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Script %s %s\n", info.Script, info.Status)
		if info.Status == domain.StatusFailed {
			return fmt.Errorf("run %s failed: %s", info.ID, info.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
