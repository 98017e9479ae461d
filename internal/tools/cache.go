package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ruvscan/ruvscan/internal/fact"
)

// CacheStatsTool handles the cache_stats MCP tool.
type CacheStatsTool struct {
	cache *fact.Cache
}

// NewCacheStatsTool creates a CacheStatsTool.
func NewCacheStatsTool(cache *fact.Cache) *CacheStatsTool {
	return &CacheStatsTool{cache: cache}
}

// Definition returns the MCP tool definition for cache_stats.
func (t *CacheStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Show FACT cache statistics: stored entries and cache version."),
	)
}

// Handle processes the cache_stats tool call.
func (t *CacheStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := t.cache.Stats()

	var b strings.Builder
	b.WriteString("## FACT Cache\n\n")
	fmt.Fprintf(&b, "- **Version**: %s\n", stats.Version)
	fmt.Fprintf(&b, "- **Entries**: %d\n", stats.TotalEntries)
	return mcp.NewToolResultText(b.String()), nil
}

// ─── replay_reasoning ────────────────────────────────────────────────────────

// ReplayTool handles the replay_reasoning MCP tool.
type ReplayTool struct {
	cache *fact.Cache
}

// NewReplayTool creates a ReplayTool.
func NewReplayTool(cache *fact.Cache) *ReplayTool {
	return &ReplayTool{cache: cache}
}

// Definition returns the MCP tool definition for replay_reasoning.
func (t *ReplayTool) Definition() mcp.Tool {
	return mcp.NewTool("replay_reasoning",
		mcp.WithDescription(
			"Replay a stored reasoning trace for a query, exactly as it was recorded. "+
				"Traces are deterministic: the same query always replays the same steps.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The original query whose trace to replay"),
		),
	)
}

// Handle processes the replay_reasoning tool call.
func (t *ReplayTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	trace := t.cache.ReplayReasoning(query)
	if trace == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No reasoning trace stored for %q.", query)), nil
	}

	encoded, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding trace: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reasoning trace for %q (%d steps, recorded %s):\n\n", trace.Query, len(trace.Steps), trace.Timestamp)
	b.WriteString("```json\n")
	b.Write(encoded)
	b.WriteString("\n```\n")
	return mcp.NewToolResultText(b.String()), nil
}
