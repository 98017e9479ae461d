package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReposTool handles the list_repos MCP tool.
type ReposTool struct {
	corpus CorpusSource
}

// NewReposTool creates a ReposTool.
func NewReposTool(corpus CorpusSource) *ReposTool {
	return &ReposTool{corpus: corpus}
}

// Definition returns the MCP tool definition for list_repos.
func (t *ReposTool) Definition() mcp.Tool {
	return mcp.NewTool("list_repos",
		mcp.WithDescription("List scanned repositories currently in the leverage corpus."),
		mcp.WithNumber("limit",
			mcp.Description("Max repos to list (default: 50)"),
		),
	)
}

// Handle processes the list_repos tool call.
func (t *ReposTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 50)

	repos, err := t.corpus.ListRepos(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing repos: %v", err)), nil
	}

	if len(repos) == 0 {
		return mcp.NewToolResultText("No repositories scanned yet. Use scan_github to build the corpus."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d scanned repositories:\n\n", len(repos))
	for _, r := range repos {
		embedded := "embedded"
		if len(r.Embedding) == 0 {
			embedded = "no embedding"
		}
		fmt.Fprintf(&b, "- %s (%d stars, %s, %s)", r.FullName, r.Stars, valueOr(r.Language, "unknown language"), embedded)
		if r.Description != "" {
			fmt.Fprintf(&b, ": %s", r.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
