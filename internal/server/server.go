// Package server wires all RuvScan components and creates the MCP server
// instance.
//
// This is the composition root: it creates the concrete store, cache,
// embedding provider, rationale provider, pipeline, and scanner, and injects
// them into the tools that depend on them. No business logic lives here.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ruvscan/ruvscan/internal/config"
	"github.com/ruvscan/ruvscan/internal/embed"
	"github.com/ruvscan/ruvscan/internal/fact"
	"github.com/ruvscan/ruvscan/internal/leverage"
	"github.com/ruvscan/ruvscan/internal/scanner"
	"github.com/ruvscan/ruvscan/internal/store"
	"github.com/ruvscan/ruvscan/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("creating store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Printf("server: closing store: %v", err)
		}
	}

	cache := fact.New(st)

	embedder, err := embed.NewOpenAIProvider(cfg.OpenAIAPIKey)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating embedding provider: %w", err)
	}

	var rationale leverage.RationaleProvider
	switch cfg.Rationale {
	case config.RationaleModel:
		rationale, err = leverage.NewModelRationale(cfg.OpenAIAPIKey)
		if err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("creating rationale provider: %w", err)
		}
	default:
		rationale = leverage.NewKeywordRationale(cache)
	}

	pipeline := leverage.NewPipeline(cache, embedder, leverage.WithRationale(rationale))
	scan := scanner.New(cfg.GitHubToken, st, embedder)

	s := server.NewMCPServer(
		"ruvscan",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	scanTool := tools.NewScanTool(scan)
	s.AddTool(scanTool.Definition(), scanTool.Handle)

	statusTool := tools.NewScanStatusTool(st)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	queryTool := tools.NewQueryTool(pipeline, st)
	s.AddTool(queryTool.Definition(), queryTool.Handle)

	reposTool := tools.NewReposTool(st)
	s.AddTool(reposTool.Definition(), reposTool.Handle)

	replayTool := tools.NewReplayTool(cache)
	s.AddTool(replayTool.Definition(), replayTool.Handle)

	statsTool := tools.NewCacheStatsTool(cache)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	return s, cleanup, nil
}

func noop() {}

func serverInstructions() string {
	return `RuvScan discovers GitHub repositories you can leverage for a problem.

Typical flow:
1. scan_github to build a corpus from an org, user, or topic.
2. scan_status to wait for the scan to finish.
3. query_leverage with a problem statement to get ranked leverage cards.

Repeated queries with the same intent are served from the deterministic FACT
cache. replay_reasoning returns stored reasoning traces verbatim.`
}
