package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lawmcp/internal/config"
	"lawmcp/internal/llm"
	"lawmcp/internal/model"
	"lawmcp/internal/search"
)

const (
	// ServerName is the implementation name reported on initialize.
	ServerName = "UnifiedLawMCP"

	shutdownTimeout          = 5 * time.Second
	rateLimitCleanupInterval = time.Minute
	rateLimitMaxAge          = 10 * time.Minute
)

// ServerOptions for building the MCP server.
type ServerOptions struct {
	Config   *config.Config
	Resolver llm.Resolver
	Searcher model.Searcher
	// SearchName is reported by /healthz, e.g. "duckduckgo" or "disabled".
	SearchName string
	Version    string
	Logger     *zap.Logger
}

// Server publishes the legal tool catalog over MCP.
type Server struct {
	cfg        *config.Config
	resolver   llm.Resolver
	searcher   model.Searcher
	searchName string
	version    string
	logger     *zap.Logger

	mcp     *server.MCPServer
	tools   []toolDefinition
	limiter *ipRateLimiter
}

func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}

	s := &Server{
		cfg:        opts.Config,
		resolver:   opts.Resolver,
		searcher:   opts.Searcher,
		searchName: opts.SearchName,
		version:    opts.Version,
		logger:     opts.Logger,
	}
	if s.searcher == nil {
		s.searcher = search.Disabled{}
		s.searchName = "disabled"
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	proxies := make([]netip.Prefix, 0, len(s.cfg.Server.TrustedProxies))
	for _, entry := range s.cfg.Server.TrustedProxies {
		p, err := config.ParseProxy(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		proxies = append(proxies, p)
	}
	s.limiter = newIPRateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, proxies)

	// Middlewares wrap in registration order: logging sees the error a
	// recovered panic turns into.
	s.mcp = server.NewMCPServer(ServerName, s.version,
		server.WithToolCapabilities(false),
		server.WithToolHandlerMiddleware(s.logToolCall),
		server.WithRecovery(),
	)

	s.tools = s.buildToolRegistry()
	for _, def := range s.tools {
		s.mcp.AddTool(def.Tool, def.handler)
	}
	return s, nil
}

// Handler returns the HTTP surface: the MCP endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	streamable := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
		server.WithLogger(s.logger.Sugar()),
	)

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Server.MCPPath, s.rateLimit(streamable))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: a tool call lasts as long as the model takes.
		IdleTimeout: 60 * time.Second,
		ErrorLog:    zap.NewStdLog(s.logger),
	}
}

// Serve blocks while handling HTTP on listener. Cancel ctx to shut down;
// in-flight calls get shutdownTimeout to drain.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := s.httpServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	if s.limiter.enabled() {
		g.Go(func() error {
			ticker := time.NewTicker(rateLimitCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					s.limiter.cleanup(rateLimitMaxAge)
				}
			}
		})
	}
	return g.Wait()
}

// ServeStdio speaks newline-delimited JSON-RPC on in/out until in closes
// or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CallTool runs one tool through the same JSON-RPC path a remote client
// uses and returns its text. A tool-level rejection (for example a missing
// argument) is returned as an error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": mcpgo.JSONRPC_VERSION,
		"id":      1,
		"method":  string(mcpgo.MethodToolsCall),
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding tool call: %w", err)
	}

	switch resp := s.mcp.HandleMessage(ctx, raw).(type) {
	case mcpgo.JSONRPCResponse:
		result, ok := resp.Result.(mcpgo.CallToolResult)
		if !ok {
			return "", fmt.Errorf("unexpected tool result type %T", resp.Result)
		}
		text := resultText(result)
		if result.IsError {
			return "", errors.New(text)
		}
		return text, nil
	case mcpgo.JSONRPCError:
		return "", fmt.Errorf("tool %s: %s", name, resp.Error.Message)
	default:
		return "", fmt.Errorf("unexpected response type %T", resp)
	}
}

func resultText(result mcpgo.CallToolResult) string {
	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		if tc, ok := mcpgo.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type healthResponse struct {
	Status   string `json:"status"`
	Server   string `json:"server"`
	Version  string `json:"version"`
	Resolver string `json:"resolver"`
	Search   string `json:"search"`
	Tools    int    `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Server:   ServerName,
		Version:  s.version,
		Resolver: s.resolver.Name(),
		Search:   s.searchName,
		Tools:    len(s.tools),
	})
}
