package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"moviemate/app/client/queryapi"
	"moviemate/app/config"
	"moviemate/app/service/conversation"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherFunc func(ctx context.Context, query string) (*queryapi.RawResponse, error)

func (f dispatcherFunc) Dispatch(ctx context.Context, query string) (*queryapi.RawResponse, error) {
	return f(ctx, query)
}

func newTestServer(t *testing.T, d conversation.Dispatcher) (*Server, *conversation.Service) {
	t.Helper()

	svc := conversation.NewService(config.Chat{
		Greeting:         "Hi, How can I assist you today?",
		ClosingMessage:   "This conversation is closed. Thank you",
		EndToken:         "end",
		CloseDelay:       time.Hour,
		MaxConversations: 4,
	}, d, nil)
	t.Cleanup(func() { _ = svc.Shutdown() })

	return NewServer(svc), svc
}

func askRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = askToolName
	req.Params.Arguments = args
	return req
}

func texts(t *testing.T, result *mcp.CallToolResult) []string {
	t.Helper()

	var out []string
	for _, content := range result.Content {
		text, ok := content.(mcp.TextContent)
		require.True(t, ok)
		out = append(out, text.Text)
	}

	return out
}

func TestAskReturnsAnswer(t *testing.T) {
	var got string
	s, svc := newTestServer(t, dispatcherFunc(func(_ context.Context, query string) (*queryapi.RawResponse, error) {
		got = query
		return &queryapi.RawResponse{Answer: "Heat (1995)"}, nil
	}))

	result, err := s.handleAsk(context.Background(), askRequest(map[string]any{"query": " best heist movie "}))
	require.NoError(t, err)

	assert.False(t, result.IsError)
	assert.Equal(t, []string{"Heat (1995)"}, texts(t, result))
	assert.Equal(t, "best heist movie", got)
	assert.Equal(t, 0, svc.Len())
}

func TestAskReturnsChart(t *testing.T) {
	chart, err := json.Marshal(`{"data":[{"type":"bar","x":["Heat"],"y":[8.3]}],"layout":{}}`)
	require.NoError(t, err)

	s, _ := newTestServer(t, dispatcherFunc(func(context.Context, string) (*queryapi.RawResponse, error) {
		return &queryapi.RawResponse{Answer: "Ratings", Chart: chart}, nil
	}))

	result, err := s.handleAsk(context.Background(), askRequest(map[string]any{"query": "ratings"}))
	require.NoError(t, err)

	out := texts(t, result)
	require.Len(t, out, 2)
	assert.Equal(t, "Ratings", out[0])
	assert.JSONEq(t, `{"series":{"type":"bar","x":["Heat"],"y":[8.3]},"layout":{"autosize":true,"responsive":true}}`, out[1])
}

func TestAskReportsTransportFailure(t *testing.T) {
	s, _ := newTestServer(t, dispatcherFunc(func(context.Context, string) (*queryapi.RawResponse, error) {
		return nil, &queryapi.Failure{Message: queryapi.FallbackMessage, Err: errors.New("refused")}
	}))

	result, err := s.handleAsk(context.Background(), askRequest(map[string]any{"query": "top movies"}))
	require.NoError(t, err)

	assert.Equal(t, []string{queryapi.FallbackMessage}, texts(t, result))
}

func TestAskRejectsMissingQuery(t *testing.T) {
	s, _ := newTestServer(t, dispatcherFunc(func(context.Context, string) (*queryapi.RawResponse, error) {
		t.Fatal("dispatch must not be called")
		return nil, nil
	}))

	for _, args := range []map[string]any{nil, {"query": 3}, {"query": "  "}} {
		result, err := s.handleAsk(context.Background(), askRequest(args))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
}

func TestToolIsRegistered(t *testing.T) {
	s, _ := newTestServer(t, dispatcherFunc(func(context.Context, string) (*queryapi.RawResponse, error) {
		return nil, nil
	}))

	tool := s.mcpServer.GetTool(askToolName)
	require.NotNil(t, tool)
	assert.Contains(t, tool.Tool.InputSchema.Required, "query")
}
