// Command conduit-server runs a minimal Model Context Protocol server
// over stdio, wiring a server.Coordinator to a small built-in registry
// of example tools, resources, and prompts.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/server"
	"github.com/davenpi/conduit-mcp/transport"
)

var rootCmd = &cobra.Command{
	Use:   "conduit-server",
	Short: "A stdio Model Context Protocol server",
	Long: `conduit-server speaks the Model Context Protocol over stdin/stdout,
answering requests from the tools, resources, and prompts registered at
startup.`,
	RunE: runServer,
}

func init() {
	rootCmd.Flags().String("name", "conduit-server", "server name reported to clients during initialize")
	rootCmd.Flags().String("log-level", "info", "log verbosity; \"debug\" also logs each client's initialized notification to stderr")
	rootCmd.Flags().Duration("request-timeout", 30*time.Second, "default timeout for outbound requests to a client")
	rootCmd.Flags().Int("concurrency", 0, "max concurrent request handlers (0 = number of CPUs)")

	viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("CONDUIT")
	viper.AutomaticEnv()
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "conduit-server: ", log.LstdFlags)
	level := strings.ToLower(viper.GetString("log-level"))

	t := transport.NewStdio(os.Stdin, os.Stdout)
	coord := server.NewCoordinator(t, &server.CoordinatorOptions{
		Logger:         server.StdLogger(logger),
		Concurrency:    viper.GetInt("concurrency"),
		DefaultTimeout: viper.GetDuration("request-timeout"),
	})

	reg := newRegistry()
	coord.RegisterRequestHandler("ping", reg.handlePing)
	coord.RegisterRequestHandler("initialize", handleInitialize(viper.GetString("name")))
	coord.RegisterRequestHandler("tools/list", reg.handleListTools)
	coord.RegisterRequestHandler("tools/call", reg.handleCallTool)
	coord.RegisterRequestHandler("resources/list", reg.handleListResources)
	coord.RegisterRequestHandler("resources/read", reg.handleReadResource)
	coord.RegisterRequestHandler("prompts/list", reg.handleListPrompts)
	coord.RegisterRequestHandler("prompts/get", reg.handleGetPrompt)
	coord.RegisterNotificationHandler("notifications/initialized", func(ctx context.Context, id server.ClientID, note protocol.Method) {
		if level == "debug" {
			logger.Printf("client %s initialized", id)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Printf("%s received, shutting down", sig)
	case <-ctx.Done():
	}

	cancel()
	if err := coord.Stop(); err != nil {
		return fmt.Errorf("conduit-server: stop: %w", err)
	}
	return nil
}

func handleInitialize(name string) server.RequestHandler {
	return func(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
		init, ok := req.(protocol.InitializeRequest)
		if !ok {
			return nil, code.Errorf(code.InvalidParams, "unexpected params type")
		}
		if init.ProtocolVersion != protocol.ProtocolVersion {
			return nil, code.Errorf(code.ProtocolVersionMismatch, "server speaks %q, client offered %q", protocol.ProtocolVersion, init.ProtocolVersion)
		}
		return protocol.InitializeResult{
			ProtocolVersion: protocol.ProtocolVersion,
			Capabilities: protocol.ServerCapabilities{
				Tools:     &protocol.ToolsCapability{},
				Resources: &protocol.ResourcesCapability{},
				Prompts:   &protocol.PromptsCapability{},
			},
			ServerInfo: protocol.Implementation{Name: name, Version: "0.1.0"},
		}, nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
