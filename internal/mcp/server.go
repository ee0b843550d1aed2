package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"
	"clickwatch-mcp-server/internal/recorder"
	"clickwatch-mcp-server/internal/scheduler"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime, the Rod session manager, the click
// scheduler and the Mangle journal into one operator surface.
type Server struct {
	cfg       config.Config
	sessions  *browser.SessionManager
	sched     *scheduler.Scheduler
	engine    *journal.Engine
	rec       *recorder.Recorder
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// NewServer constructs the ClickWatch MCP server and registers all tools.
// rec may be nil when tracing is disabled.
func NewServer(cfg config.Config, sessions *browser.SessionManager, sched *scheduler.Scheduler, engine *journal.Engine, rec *recorder.Recorder) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		sessions:  sessions,
		sched:     sched,
		engine:    engine,
		rec:       rec,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	server.registerAllTools()
	server.registerAllResources()
	return server, nil
}

// Start launches the stdio server.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ExecuteTool executes a tool directly (used by tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	// Session lifecycle
	s.registerTool(&LoginSessionTool{sessions: s.sessions})
	s.registerTool(&BrowserStatusTool{sessions: s.sessions})
	s.registerTool(&CloseSessionTool{sessions: s.sessions})
	s.registerTool(&NavigateTool{sessions: s.sessions, cfg: s.cfg})

	// Element discovery and targeting
	s.registerTool(&ScanPageTool{sessions: s.sessions, engine: s.engine, cfg: s.cfg})
	s.registerTool(&SelectTargetTool{sched: s.sched})

	// Clicking
	s.registerTool(&ClickElementTool{sessions: s.sessions, engine: s.engine, cfg: s.cfg})
	s.registerTool(&TestClickTool{sessions: s.sessions, sched: s.sched, engine: s.engine, cfg: s.cfg})

	// Capture
	s.registerTool(&ScreenshotTool{sessions: s.sessions, engine: s.engine})

	// Schedule control
	s.registerTool(&EnableAutoclickTool{sched: s.sched})
	s.registerTool(&DisableAutoclickTool{sched: s.sched})
	s.registerTool(&AutomationStatusTool{sched: s.sched})

	// Journal access
	s.registerTool(&ReadJournalTool{engine: s.engine})
	s.registerTool(&QueryJournalTool{engine: s.engine})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if s.rec != nil {
			s.rec.Log("tool_call", map[string]interface{}{
				"tool": tool.Name(),
				"args": args,
				"err":  fmt.Sprintf("%v", err),
			})
		}
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
