package main

import (
	"fmt"
	"os"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bbscript",
	Short: "bbscript runs node-graph automation scripts against an Android emulator",
	Long: `bbscript compiles scripts drawn in the node editor and walks them against
an emulator reached through adb. Scripts can pause for chat commands and be
triggered by Discord slash commands or MQTT messages.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Settings file (.json or .yaml)")
	rootCmd.PersistentFlags().String("scripts", "", "Scripts directory (overrides settings)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides settings)")
}

// loadSettings reads the settings file and applies the persistent flag overrides.
func loadSettings(cmd *cobra.Command) (config.Settings, string, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path)
	if err != nil {
		return s, path, err
	}
	if cmd.Flags().Changed("scripts") {
		s.ScriptsDir, _ = cmd.Flags().GetString("scripts")
	}
	if cmd.Flags().Changed("log-level") {
		s.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return s, path, nil
}
