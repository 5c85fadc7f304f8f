package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
)

var Version = "dev"

var askTool = mcp.NewTool("ask_hr_assistant",
	mcp.WithDescription("Answer an employee HR question from the company knowledge base. Returns the answer, its confidence and the referenced documents."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The employee question"),
	),
	mcp.WithString("conversation_id",
		mcp.Description("Conversation to continue; omit to start a new one"),
	),
	mcp.WithString("language",
		mcp.Description("Answer language hint"),
		mcp.Enum("auto", "en", "id"),
	),
)

// Server exposes the chat service as an MCP tool over stdio.
type Server struct {
	chat ports.ChatService
	mcp  *server.MCPServer
}

func NewServer(chat ports.ChatService) *Server {
	s := &Server{chat: chat}
	s.mcp = server.NewMCPServer(
		"hr-assistant",
		Version,
		server.WithToolCapabilities(false),
	)
	s.mcp.AddTool(askTool, s.handleAsk)
	return s
}

// Serve blocks on stdio. Stdout carries protocol frames only.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	resp, err := s.chat.Handle(ctx, domain.Query{
		Text:           query,
		ConversationID: strings.TrimSpace(request.GetString("conversation_id", "")),
		Language:       request.GetString("language", ""),
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		slog.Error("mcp_ask_failed", "error", err)
		return mcp.NewToolResultError("hr assistant is unavailable"), nil
	}
	return mcp.NewToolResultText(formatResponse(resp)), nil
}

func formatResponse(resp *domain.ChatResponse) string {
	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "conversation_id: %s\n", resp.ConversationID)
	fmt.Fprintf(&b, "confidence: %s (%.2f)\n", resp.ConfidenceBand, resp.ConfidenceScore)
	fmt.Fprintf(&b, "backend: %s\n", resp.BackendUsed)
	if len(resp.ReferencedDocumentIDs) > 0 {
		fmt.Fprintf(&b, "sources: %s\n", strings.Join(resp.ReferencedDocumentIDs, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
