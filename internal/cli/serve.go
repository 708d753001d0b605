package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lawmcp/internal/config"
	"lawmcp/internal/llm"
	"lawmcp/internal/mcp"
	"lawmcp/internal/netutil"
	"lawmcp/internal/search"
)

func (a *app) newServeCmd() *cobra.Command {
	var autoPort bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd, autoPort)
		},
	}

	f := cmd.Flags()
	f.String("host", "", "listen host (default 0.0.0.0)")
	f.Int("port", 0, "listen port (default $PORT or 10000)")
	f.String("mcp-path", "", "HTTP path for the MCP endpoint")
	f.String("transport", "", "transport: streamable-http|stdio")
	f.BoolVar(&autoPort, "auto-port", false, "bind the first free port in [server.port_range_start, server.port_range_end)")
	addLLMFlags(cmd)
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, autoPort bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, resolverName, searchName, err := a.buildServer(ctx)
	if err != nil {
		return err
	}
	cfg := a.cfg

	if cfg.Server.Transport == config.TransportStdio {
		// stdout carries JSON-RPC frames.
		fmt.Fprintf(cmd.ErrOrStderr(), "lawmcp starting on port %d...\n", cfg.Server.Port)
		a.logger.Info("serving over stdio")
		return srv.ServeStdio(ctx, a.stdin, cmd.OutOrStdout())
	}

	port := cfg.Server.Port
	if autoPort {
		port, err = netutil.FreePort(cfg.Server.PortRangeStart, cfg.Server.PortRangeEnd)
		if err != nil {
			return withExitCode(ExitBindFailure, err)
		}
	}
	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port)))
	if err != nil {
		return withExitCode(ExitBindFailure, fmt.Errorf("server bind failure: %w", err))
	}
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "lawmcp starting on port %d...\n", port)
	printEndpoint(out, cfg, port, resolverName, searchName)
	a.logger.Info("listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("mcp_path", cfg.Server.MCPPath),
	)

	if err := srv.Serve(ctx, listener); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// buildServer selects the resolver and search strategies for a.cfg and
// wires them into an MCP server.
func (a *app) buildServer(ctx context.Context) (*mcp.Server, string, string, error) {
	resolver, err := llm.New(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return nil, "", "", withExitCode(ExitConfigInvalid, err)
	}
	searcher, searchName := search.New(a.cfg.Search, a.logger)

	srv, err := mcp.NewServer(mcp.ServerOptions{
		Config:     a.cfg,
		Resolver:   resolver,
		Searcher:   searcher,
		SearchName: searchName,
		Version:    version,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, "", "", err
	}
	return srv, resolver.Name(), searchName, nil
}

func printEndpoint(w io.Writer, cfg *config.Config, port int, resolverName, searchName string) {
	st := newStyles(w, false)
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	base := "http://" + net.JoinHostPort(host, strconv.Itoa(port))

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.banner(), st.dim(version))
	fmt.Fprintln(w, st.separator(40))
	fmt.Fprintln(w, st.sectionHeader("MCP endpoint"))
	fmt.Fprintln(w, st.kv("URL", st.url(base+cfg.Server.MCPPath)))
	fmt.Fprintln(w, st.kv("Transport", cfg.Server.Transport))
	fmt.Fprintln(w, st.kv("Health", st.url(base+"/healthz")))
	fmt.Fprintln(w, st.kv("Resolver", resolverName))
	fmt.Fprintln(w, st.kv("Search", searchName))
	if resolverName == config.ProviderMock && cfg.LLM.Provider != config.ProviderMock {
		envVar := config.APIKeyEnvVar(cfg.LLM.Provider)
		fmt.Fprintln(w, st.warnPrefix(), "responses are mocked; set "+envVar+" to use "+cfg.LLM.Provider)
	}
	fmt.Fprintln(w)
}
