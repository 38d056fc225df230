package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apihttp "github.com/Superfang0726/Better-BlueStacks-Script/internal/adapters/http"
	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:   "signal <command>",
	Short: "Send a command to the script running in a bbscript server",
	Long: `Delivers a command the same way a Discord slash command would: it resumes a
discord_wait node waiting for it, or starts the matching discord_slash entry point.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			s, _, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			addr = s.HTTPAddr
		}
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		command := strings.TrimPrefix(strings.TrimSpace(args[0]), "/")
		endpoint := strings.TrimSuffix(addr, "/") + "/signal/" + url.PathEscape(command)

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Post(endpoint, "application/json", nil)
		if err != nil {
			return fmt.Errorf("send command: %w", err)
		}
		defer resp.Body.Close()

		var body apihttp.SignalResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
		}
		fmt.Println(body.Message)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("command /%s %s", command, body.Result)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.Flags().String("addr", "", "Server address (default: http_addr from settings)")
}
