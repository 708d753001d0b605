package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"lawmcp/internal/legal"
	"lawmcp/internal/search"
)

const (
	ToolWebSearch  = "web_search"
	ParamQuery     = "query"
	webSearchDescr = "Return short search results (title + link + snippet) using DuckDuckGo or mock if unavailable."
)

type toolDefinition struct {
	Tool    mcpgo.Tool
	handler server.ToolHandlerFunc
}

// buildToolRegistry returns every published tool in listing order: the
// legal catalog followed by web_search.
func (s *Server) buildToolRegistry() []toolDefinition {
	catalog := legal.Catalog()
	defs := make([]toolDefinition, 0, len(catalog)+1)
	for _, pt := range catalog {
		opts := []mcpgo.ToolOption{mcpgo.WithDescription(pt.Description)}
		for _, p := range pt.Params {
			opts = append(opts, mcpgo.WithString(p.Name, mcpgo.Required(), mcpgo.Description(p.Description)))
		}
		defs = append(defs, toolDefinition{
			Tool:    mcpgo.NewTool(pt.Name, opts...),
			handler: s.promptToolHandler(pt),
		})
	}
	defs = append(defs, toolDefinition{
		Tool: mcpgo.NewTool(ToolWebSearch,
			mcpgo.WithDescription(webSearchDescr),
			mcpgo.WithString(ParamQuery, mcpgo.Required(), mcpgo.Description("Free-text search query.")),
		),
		handler: s.handleWebSearch,
	})
	return defs
}

// Tools lists the published tool declarations in order.
func (s *Server) Tools() []mcpgo.Tool {
	out := make([]mcpgo.Tool, 0, len(s.tools))
	for _, def := range s.tools {
		out = append(out, def.Tool)
	}
	return out
}

func (s *Server) promptToolHandler(pt legal.PromptTool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := make(map[string]string, len(pt.Params))
		for _, p := range pt.Params {
			v, err := req.RequireString(p.Name)
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}
			args[p.Name] = v
		}

		completion := s.resolver.Resolve(ctx, pt.Build(args))
		markDegraded(ctx, completion.Degraded())
		return mcpgo.NewToolResultText(completion.String()), nil
	}
}

func (s *Server) handleWebSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString(ParamQuery)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	limit := s.cfg.Search.MaxResults
	if limit <= 0 {
		limit = 5
	}
	out := search.Run(ctx, s.searcher, query, limit)
	markDegraded(ctx, out.Degraded())
	return mcpgo.NewToolResultText(out.String()), nil
}

type callStateKey struct{}

type callState struct {
	degraded bool
}

func markDegraded(ctx context.Context, degraded bool) {
	if st, ok := ctx.Value(callStateKey{}).(*callState); ok && degraded {
		st.degraded = true
	}
}

// logToolCall emits one line per tool call. Arguments carry caller text
// and are only logged at debug.
func (s *Server) logToolCall(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		st := &callState{}
		ctx = context.WithValue(ctx, callStateKey{}, st)
		logger := s.logger.With(
			zap.String("tool", req.Params.Name),
			zap.String("request_id", uuid.NewString()),
		)
		if ce := logger.Check(zap.DebugLevel, "tool call arguments"); ce != nil {
			ce.Write(zap.Any("arguments", req.GetArguments()))
		}

		start := time.Now()
		res, err := next(ctx, req)
		fields := []zap.Field{
			zap.Duration("duration", time.Since(start)),
			zap.Bool("degraded", st.degraded),
		}
		switch {
		case err != nil:
			logger.Error("tool call failed", append(fields, zap.Error(err))...)
		case res != nil && res.IsError:
			logger.Warn("tool call rejected", fields...)
		default:
			logger.Info("tool call", fields...)
		}
		return res, err
	}
}
