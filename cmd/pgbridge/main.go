// Command pgbridge serves a small catalog of read-only PostgreSQL tools
// over HTTP and MCP, backed by a shared bounded connection pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/pgbridge/internal/artifact"
	minioartifact "github.com/koustreak/pgbridge/internal/artifact/minio"
	"github.com/koustreak/pgbridge/internal/config"
	"github.com/koustreak/pgbridge/internal/database"
	"github.com/koustreak/pgbridge/internal/logger"
	"github.com/koustreak/pgbridge/internal/mcp"
	"github.com/koustreak/pgbridge/internal/server"
	"github.com/koustreak/pgbridge/internal/tools"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("pgbridge %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pgbridge - PostgreSQL tool gateway

Usage:
  pgbridge serve [--config config.yaml] [--addr :8080] [--stdio]
  pgbridge version
  pgbridge help

Commands:
  serve     Start the gateway (HTTP surface, plus MCP over SSE or stdio)
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	addr := fs.String("addr", "", "HTTP listen address (overrides config)")
	stdio := fs.Bool("stdio", false, "serve MCP over stdio instead of listening")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := database.NewManager(&database.Config{
		DSN:            cfg.Database.ConnString,
		MinConns:       cfg.Database.MinConns,
		MaxConns:       cfg.Database.MaxConns,
		AcquireTimeout: cfg.Database.AcquireTimeout(),
		QueryTimeout:   cfg.Database.QueryTimeout(),
		ConnectTimeout: cfg.Database.ConnectTimeout(),
	}, log)
	defer pool.Close()

	// Warm the pool up-front. A failure here is deliberately not fatal:
	// initialization retries on the first request once the environment is
	// fixed, and each tool invocation reports its own error meanwhile.
	if err := pool.Initialize(ctx); err != nil {
		log.Warnf("pool not ready at startup: %v", err)
	}

	exec := database.NewExecutor(pool, log, cfg.Database.QueryTimeout())
	registry := tools.NewRegistry(exec, log)

	sink := buildSink(ctx, cfg, log)
	defer sink.Close()

	mcpServer := mcp.NewServer(registry, version)

	if *stdio {
		log.Info("serving MCP over stdio")
		if err := mcp.ServeStdio(mcpServer); err != nil {
			log.Errorf("stdio server: %v", err)
			os.Exit(1)
		}
		return
	}

	if cfg.MCP.Addr != "" {
		sse := mcp.NewSSEServer(mcpServer)
		go func() {
			log.Infof("MCP/SSE listening on %s", cfg.MCP.Addr)
			if err := sse.Start(cfg.MCP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("sse server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sse.Shutdown(shutdownCtx)
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(registry, pool, sink, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("pgbridge %s listening on %s", version, cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

// buildSink connects the artifact backend when enabled, falling back to the
// disabled sink so a storage outage never blocks serving.
func buildSink(ctx context.Context, cfg *config.Config, log *logger.Logger) artifact.Sink {
	if !cfg.Artifact.Enabled {
		return artifact.Disabled{}
	}

	sink, err := minioartifact.New(ctx, &artifact.Config{
		Endpoint:  cfg.Artifact.Endpoint,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		log.ErrorWith("artifact sink unavailable, results will not be persisted", err, nil)
		return artifact.Disabled{}
	}

	log.Infof("artifact sink ready (bucket %s)", cfg.Artifact.Bucket)
	return sink
}
