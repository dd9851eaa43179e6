package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpcore/mcp-runtime/pkg/config"
	"github.com/mcpcore/mcp-runtime/pkg/mcp"
)

var (
	configPath string
	logPath    string
)

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a server config YAML file")
	serveCmd.Flags().StringVar(&logPath, "log-file", "mcpd.log", "path to the rotated operational log file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the demo MCP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultServerConfig()
	if configPath != "" {
		loaded, err := config.LoadServerConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger := newLogger(logPath, cfg.Transport.Type != "stdio")

	server := mcp.NewServer(
		mcp.Implementation{Name: "mcpd", Version: version},
		&mcp.ServerOptions{
			NumThreads:   cfg.NumThreads,
			Logger:       logger,
			Capabilities: capabilitiesFromConfig(cfg),
		},
	)
	// mcpLogger bridges application-level log records into
	// notifications/message for whichever sessions subscribed at or below
	// their threshold (spec §4.5 "subscribe-log-messages!").
	mcpLogger := slog.New(mcp.NewLoggingHandler(server.Registry(), "mcpd"))
	registerDemoTools(server, mcpLogger)
	registerDemoResources(server)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cfg.Transport.Type {
	case "stdio":
		ss, err := server.Connect(ctx, mcp.NewStdioTransport())
		if err != nil {
			return fmt.Errorf("accepting stdio session: %w", err)
		}
		logger.Info("serving stdio session", "session", ss.ID())
		ss.Wait()
		return nil

	case "in-memory":
		return fmt.Errorf("in-memory transport is for tests, not `mcpd serve`")

	case "http":
		handler := mcp.NewHTTPHandler(server, &mcp.HTTPOptions{AllowedOrigins: cfg.Transport.AllowedOrigins})
		addr := fmt.Sprintf(":%d", cfg.Transport.Port)
		httpServer := &http.Server{Addr: addr, Handler: handler.Router()}

		go func() {
			<-ctx.Done()
			_ = httpServer.Close()
		}()

		logger.Info("serving http+sse", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported transport type: %q", cfg.Transport.Type)
	}
}

// capabilitiesFromConfig maps the loosely-typed capabilities map (spec §6)
// onto the strongly-typed ServerCapabilities the core understands. Absent
// entries are left nil, meaning "not supported".
func capabilitiesFromConfig(cfg *config.ServerConfig) mcp.ServerCapabilities {
	var caps mcp.ServerCapabilities
	if _, ok := cfg.Capabilities["logging"]; ok {
		caps.Logging = map[string]any{}
	}
	if v, ok := cfg.Capabilities["tools"]; ok {
		caps.Tools = &mcp.ListChangedCapable{ListChanged: boolField(v, "listChanged")}
	}
	if v, ok := cfg.Capabilities["prompts"]; ok {
		caps.Prompts = &mcp.ListChangedCapable{ListChanged: boolField(v, "listChanged")}
	}
	if v, ok := cfg.Capabilities["resources"]; ok {
		caps.Resources = &mcp.ResourceCapability{
			Subscribe:   boolField(v, "subscribe"),
			ListChanged: boolField(v, "listChanged"),
		}
	}
	return caps
}

func boolField(m config.CapabilityConfig, key string) bool {
	b, _ := m[key].(bool)
	return b
}
