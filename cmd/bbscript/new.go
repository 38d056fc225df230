package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/cli"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/dsl"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a starter script",
	Long: `Saves a small script to the store: tap the screen center, wait, take a
screenshot and pause until /continue is received. Open it in the editor to extend it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		stores, err := cli.OpenStores(s, cli.NewLogger(os.Stderr, s.LogLevel, nil))
		if err != nil {
			return err
		}
		if stores.Redis != nil {
			defer stores.Redis.Close()
		}

		ctx := context.Background()
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")
		if _, err := stores.Scripts.Load(ctx, name); err == nil && !force {
			return fmt.Errorf("script %q already exists (use --force to overwrite)", name)
		} else if err != nil && !errors.Is(err, domain.ErrScriptNotFound) {
			return err
		}

		data, err := json.MarshalIndent(map[string]any{"actions": starterGraph()}, "", "  ")
		if err != nil {
			return err
		}
		if err := stores.Scripts.Save(ctx, name, data); err != nil {
			return err
		}
		fmt.Printf("Created script %s\n", name)
		return nil
	},
}

func starterGraph() []domain.Node {
	return dsl.New().
		Add("1", domain.KindStart).Then("2").
		Add("2", domain.KindClick).Prop("x", 500).Prop("y", 500).Then("3").
		Add("3", domain.KindWait).Prop("seconds", 1).Then("4").
		Add("4", domain.KindDiscordScreenshot).Prop("message", "Starter script reached the checkpoint").Then("5").
		Add("5", domain.KindDiscordWait).Prop("command_name", "continue").
		Build()
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Bool("force", false, "Overwrite an existing script")
}
