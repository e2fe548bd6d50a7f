package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/etsotracker/internal/api"
	"github.com/hazyhaar/etsotracker/internal/config"
	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/llm"
	mcpsrv "github.com/hazyhaar/etsotracker/internal/mcp"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
	"github.com/hazyhaar/etsotracker/internal/scoring"
	"github.com/hazyhaar/etsotracker/internal/validate"
	"github.com/hazyhaar/etsotracker/pkg/audit"
	"github.com/hazyhaar/etsotracker/pkg/chassis"
	"github.com/hazyhaar/etsotracker/pkg/mcprt"
	"github.com/hazyhaar/etsotracker/pkg/trace"
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
		fmt.Printf("etsotracker %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`etsotracker — vessel traffic claim validation engine

Usage:
  etsotracker serve [--config config.toml] [--addr :8080]
  etsotracker version
  etsotracker help

Commands:
  serve     Start the HTTP + MCP server
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening claims database: %v", err)
	}
	defer database.Close()

	traffic, err := db.OpenTraffic(cfg.Database.TrafficPath)
	if err != nil {
		log.Fatalf("opening traffic mirror: %v", err)
	}
	defer traffic.Close()

	traces := trace.NewStore(database.DB)
	if err := traces.Init(); err != nil {
		log.Fatalf("initializing trace store: %v", err)
	}
	defer traces.Close()

	sb := sandbox.New(traffic, sandbox.Options{
		RowLimit:      cfg.Sandbox.RowLimit,
		Timeout:       time.Duration(cfg.Sandbox.TimeoutSec) * time.Second,
		QueriesPerSec: cfg.Sandbox.QueriesPerSec,
		Burst:         cfg.Sandbox.QueryBurst,
		Traces:        traces,
	}, nil)

	scorer := scoring.New(scoring.Weights{
		Execution:  cfg.Scoring.ExecutionWeight,
		Volume:     cfg.Scoring.VolumeWeight,
		Saturation: cfg.Scoring.VolumeSaturation,
		Truncation: cfg.Scoring.TruncationPenalty,
	})

	llmClient := llm.NewFromConfig(cfg.LLM)
	opts := validate.Options{
		Workers:   cfg.Research.Workers,
		MaxClaims: cfg.Research.MaxClaims,
	}
	if len(llmClient.Providers()) > 0 {
		opts.Researcher = llm.NewResearcher(llmClient, cfg.LLM.Model)
		opts.Summarizer = llm.NewSummarizer(llmClient, cfg.LLM.Model)
	} else {
		log.Printf("no LLM providers configured: research runs disabled, validation unaffected")
	}
	orch := validate.New(database, sb, scorer, opts)

	auditLog := audit.NewSQLiteLogger(database.DB)
	if err := auditLog.Init(); err != nil {
		log.Fatalf("initializing audit log: %v", err)
	}
	defer auditLog.Close()

	apiHandler := api.New(database, sb, orch, nil)
	apiHandler.SetTraceStore(traces)
	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Saved analyst queries, exposed as dynamic MCP tools.
	registry := mcprt.NewRegistry(database.DB)
	if err := registry.Init(); err != nil {
		log.Fatalf("initializing saved query registry: %v", err)
	}
	mcprt.SeedDefaults(database.DB)
	if err := registry.Load(ctx); err != nil {
		log.Fatalf("loading saved queries: %v", err)
	}
	go registry.RunWatcher(ctx)

	mcpServer := mcpsrv.NewServer(database, sb, orch, auditLog)
	mcprt.Bridge(mcpServer, registry, sb)

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Server.Addr,
		Handler:   api.SecurityHeaders(mux),
		MCPServer: mcpServer,
	})
	if err != nil {
		log.Fatalf("building server: %v", err)
	}

	log.Printf("etsotracker %s listening on %s", version, cfg.Server.Addr)
	log.Printf("claims database: %s", cfg.Database.Path)
	log.Printf("traffic mirror: %s (read-only)", cfg.Database.TrafficPath)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
