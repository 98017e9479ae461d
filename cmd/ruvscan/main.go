// RuvScan: GitHub leverage discovery MCP server.
//
// Scans GitHub sources into an embedded corpus and answers intent queries
// with ranked leverage cards, backed by a deterministic FACT cache.
//
// Usage:
//
//	ruvscan serve                      # Start MCP server (stdio transport)
//	ruvscan scan <type> <name> [limit] # One-shot scan (org, user, or topic)
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ruvscan/ruvscan/internal/config"
	"github.com/ruvscan/ruvscan/internal/embed"
	"github.com/ruvscan/ruvscan/internal/scanner"
	ruvserver "github.com/ruvscan/ruvscan/internal/server"
	"github.com/ruvscan/ruvscan/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "scan":
		if err := runScan(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("ruvscan v%s\n", ruvserver.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}

	s, cleanup, err := ruvserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Log output goes to stderr; stdout carries the MCP transport.
	return server.ServeStdio(s)
}

// runScan performs a one-shot scan from the command line and waits for it
// to finish, printing progress to stderr.
func runScan(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ruvscan scan <org|user|topic> <name> [limit]")
	}
	sourceType, sourceName := args[0], args[1]

	limit := scanner.DefaultLimit
	if len(args) > 2 {
		if _, err := fmt.Sscanf(args[2], "%d", &limit); err != nil {
			return fmt.Errorf("invalid limit %q", args[2])
		}
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := embed.NewOpenAIProvider(cfg.OpenAIAPIKey)
	if err != nil {
		return err
	}

	scan := scanner.New(cfg.GitHubToken, st, embedder)
	jobID, err := scan.Start(context.Background(), sourceType, sourceName, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Scanning %s/%s (job %s)...\n", sourceType, sourceName, jobID)

	for {
		time.Sleep(2 * time.Second)
		job, err := st.GetScanJob(jobID)
		if err != nil || job == nil {
			return fmt.Errorf("tracking job %s: %v", jobID, err)
		}
		fmt.Fprintf(os.Stderr, "  %d/%d repos processed\n", job.ReposProcessed, job.ReposFound)
		if job.Status == "completed" {
			fmt.Fprintf(os.Stderr, "Scan completed: %d repos\n", job.ReposProcessed)
			return nil
		}
		if job.Status == "failed" {
			return fmt.Errorf("scan failed: %s", job.Error)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `RuvScan v%s — GitHub leverage discovery MCP server

Usage:
  ruvscan serve                       Start the MCP server (stdio transport)
  ruvscan scan <type> <name> [limit]  One-shot scan (type: org, user, topic)
  ruvscan version                     Print version

Configuration:
  ~/.ruvscan/config.yaml, overridden by GITHUB_TOKEN, OPENAI_API_KEY,
  RUVSCAN_DATA_DIR, RUVSCAN_RATIONALE.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "ruvscan": {
        "command": "ruvscan",
        "args": ["serve"]
      }
    }
  }
`, ruvserver.Version)
}
