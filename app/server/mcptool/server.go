package mcptool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"moviemate/app/service/conversation"
	"moviemate/app/service/flow"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	serverName    = "moviemate"
	serverVersion = "1.0.0"
	askToolName   = "ask_movie_mate"
)

// Server answers movie questions as an MCP tool over stdio.
type Server struct {
	conversationSvc *conversation.Service
	mcpServer       *server.MCPServer
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(do.MustInvoke[*conversation.Service](di)), nil
}

func NewServer(conversationSvc *conversation.Service) *Server {
	s := &Server{
		conversationSvc: conversationSvc,
		mcpServer: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcpServer.AddTool(mcp.NewTool(askToolName,
		mcp.WithDescription("Ask a natural-language question about movies. Returns the answer text and, when the answer has a chart, the chart as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question to ask"),
		),
	), s.handleAsk)

	return s
}

// Serve blocks until ctx is cancelled or in is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return oops.In("mcp").Errorf("stdio server: %w", err)
	}

	return nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	ctrl := s.conversationSvc.Create(nil)
	defer s.conversationSvc.Close(ctrl.ID())

	view, ok := s.conversationSvc.Submit(ctx, ctrl.ID(), query)
	if !ok {
		return mcp.NewToolResultError("conversation expired"), nil
	}

	if view.State != flow.StateReply {
		return mcp.NewToolResultText(view.Message), nil
	}

	if view.Chart == nil {
		return mcp.NewToolResultText(view.Answer), nil
	}

	chart, err := json.Marshal(view.Chart)
	if err != nil {
		return mcp.NewToolResultText(view.Answer), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(view.Answer),
			mcp.NewTextContent(string(chart)),
		},
	}, nil
}
