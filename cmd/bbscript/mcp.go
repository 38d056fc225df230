package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/cli"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes run control and script inspection as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)
		app, err := cli.NewApp(context.Background(), s, cli.AppOptions{LogOutput: os.Stderr, Messaging: true})
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Supervisor, app.Engine)

		switch transport {
		case "stdio":
			app.Logger.Info("Starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			app.Logger.Info("Starting MCP server (SSE)", "port", port)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.Logger.Info("MCP server stopped")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
