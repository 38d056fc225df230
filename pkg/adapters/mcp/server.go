// Package mcp exposes script control to MCP clients: run, stop, status,
// command dispatch, listing, compilation and validation.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	bbscript "github.com/Superfang0726/Better-BlueStacks-Script"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/validator"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const scriptsURI = "bbscript://scripts"

// Supervisor is the run control surface the server drives.
type Supervisor interface {
	Start(ctx context.Context, script string) (domain.RunInfo, error)
	Stop() error
	Status() domain.RunInfo
	Dispatch(ctx context.Context, command string) domain.DispatchResult
}

// CommandResponse reports a dispatched command.
type CommandResponse struct {
	Command string                `json:"command" jsonschema_description:"The normalized command name"`
	Result  domain.DispatchResult `json:"result" jsonschema_description:"handled, not_waiting, busy or unknown"`
	Message string                `json:"message" jsonschema_description:"Human readable outcome"`
}

// RunResponse wraps a run snapshot.
type RunResponse struct {
	Run domain.RunInfo `json:"run" jsonschema_description:"Snapshot of the top-level run"`
}

// Server exposes a Supervisor as an MCP Server.
type Server struct {
	sup       Supervisor
	engine    *bbscript.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sup Supervisor, engine *bbscript.Engine) *Server {
	logger := engine.Logger()
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sup:       sup,
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("bbscript-mcp", strings.TrimSpace(bbscript.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("run_script",
		mcp.WithDescription("Start a stored script. Only one script runs at a time."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Script name")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("stop_run",
		mcp.WithDescription("Stop the running script. Nodes in progress finish first."),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleStop))

	s.mcpServer.AddTool(mcp.NewTool("run_status",
		mcp.WithDescription("Report the current or last run."),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleStatus))

	s.mcpServer.AddTool(mcp.NewTool("send_command",
		mcp.WithDescription("Send a command to the running script, as a slash command would."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command name, with or without a leading slash")),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(s.handleCommand))

	s.mcpServer.AddTool(mcp.NewTool("list_scripts",
		mcp.WithDescription("List stored scripts."),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("compile_script",
		mcp.WithDescription("Compile a stored script into flat node records."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Script name")),
	), s.handleCompile)

	s.mcpServer.AddTool(mcp.NewTool("validate_script",
		mcp.WithDescription("Check a stored script for missing entry points, dangling successors and unreachable nodes."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Script name")),
	), s.handleValidate)
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	name := stringArg(args, "name")
	info, err := s.sup.Start(ctx, name)
	if err != nil {
		s.logger.Warn("MCP run rejected", "script", name, "err", err)
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	return RunResponse{Run: info}, nil
}

func (s *Server) handleStop(_ context.Context, _ mcp.CallToolRequest, _ map[string]interface{}) (RunResponse, error) {
	if err := s.sup.Stop(); err != nil && !errors.Is(err, domain.ErrNoRunActive) {
		return RunResponse{}, err
	}
	return RunResponse{Run: s.sup.Status()}, nil
}

func (s *Server) handleStatus(_ context.Context, _ mcp.CallToolRequest, _ map[string]interface{}) (RunResponse, error) {
	return RunResponse{Run: s.sup.Status()}, nil
}

func (s *Server) handleCommand(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (CommandResponse, error) {
	cmd := strings.TrimPrefix(stringArg(args, "command"), "/")
	if cmd == "" {
		return CommandResponse{}, errors.New("command is required")
	}
	result := s.sup.Dispatch(ctx, cmd)
	return CommandResponse{Command: cmd, Result: result, Message: result.Message(cmd)}, nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.listScripts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.Marshal(names)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) listScripts(ctx context.Context) ([]string, error) {
	store := s.engine.Store()
	if store == nil {
		return nil, errors.New("no script store configured")
	}
	names, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.engine.LoadScript(ctx, request.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.MarshalIndent(nodes, "", "  ")
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.engine.LoadScript(ctx, request.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := validator.ValidateGraph(nodes)
	jsonBytes, _ := json.Marshal(report)
	if report.Err() != nil {
		return mcp.NewToolResultError(string(jsonBytes)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(scriptsURI, "Stored Scripts",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.listScripts(ctx)
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(names)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      scriptsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
