package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server publishes the registry's tools over the stdio transport.
// Conversational failures come back as isError text results so the
// calling model can read them; only encoding faults become protocol
// errors.
type Server struct {
	registry *Registry
	mcp      *mcp.Server
	logger   *slog.Logger
}

func NewServer(registry *Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry: registry,
		logger:   logger,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "pulsa-bridge",
				Version: version,
			},
			nil,
		),
	}
	registerTool[ProcessSpeechArgs](s, ToolProcessSpeech)
	registerTool[ConfirmPurchaseArgs](s, ToolConfirmPurchase)
	registerTool[CheckAvailabilityArgs](s, ToolCheckAvailability)
	registerTool[PurchaseArgs](s, ToolPurchase)
	registerTool[ValidatePhoneArgs](s, ToolValidatePhone)
	return s
}

func registerTool[T any](s *Server, name string) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        name,
		Description: s.registry.Description(name),
	}, func(ctx context.Context, req *mcp.CallToolRequest, args *T) (*mcp.CallToolResult, any, error) {
		text, err := s.registry.Handle(ctx, name, argsMap(args))
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: err.Error()},
				},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	})
}

// argsMap flattens a typed argument struct back into the key-value
// form the registry validates. Optional fields marked omitempty drop
// out, so the schema check sees exactly what the caller sent.
func argsMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// Run serves tool calls on stdin/stdout until ctx is cancelled or the
// peer closes the pipe.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("tool_server_listening", "tools", len(s.registry.Names()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("tool server: %w", err)
	}
	return nil
}
