// outline-mcp: Resilient MCP gateway for hierarchical outline notes.
//
// Exposes an outline-note API to AI assistants over MCP, with a
// request pipeline that retries transient upstream failures (rate
// limits included), coalesces concurrent identical reads, and caches
// read results with write-triggered invalidation.
//
// Usage:
//
//	outline-mcp serve        # Start MCP server (stdio transport)
//	outline-mcp serve-http   # Start stateless JSON-RPC HTTP handler
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/outlinedev/outline-mcp/internal/config"
	"github.com/outlinedev/outline-mcp/internal/rpc"
	"github.com/outlinedev/outline-mcp/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve-http":
		if err := runHTTP(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("outline-mcp v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runStdio serves MCP over stdio. All logging goes to stderr so it
// doesn't interfere with the protocol stream on stdout.
func runStdio() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return mcpserver.ServeStdio(s.MCP)
}

// runHTTP serves the JSON-RPC dispatcher over HTTP with graceful
// shutdown on interrupt.
func runHTTP() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rpc.NewHandler(s.RPC),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `outline-mcp v%s — MCP gateway for hierarchical outline notes

Usage:
  outline-mcp serve        Start the MCP server (stdio transport)
  outline-mcp serve-http   Start the stateless JSON-RPC HTTP handler

Configuration (environment):
  OUTLINE_API_KEY            API key for the outline service
  OUTLINE_API_URL            API base URL
  OUTLINE_HTTP_ADDR          serve-http listen address (default :8080)
  OUTLINE_CACHE_DIR          durable cache directory (default ~/.outline-mcp)
  OUTLINE_CACHE_PERSIST      set to 0 to disable the durable cache tier
  OUTLINE_OVERLOAD_FLOOR_MS  minimum rate-limit retry delay (default 5000)

MCP client config:

  {
    "mcpServers": {
      "outline": {
        "command": "outline-mcp",
        "args": ["serve"]
      }
    }
  }
`, server.Version)
}
