package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ruvscan/ruvscan/internal/leverage"
	"github.com/ruvscan/ruvscan/internal/store"
)

// CorpusSource supplies the candidate corpus for a query.
type CorpusSource interface {
	ListRepos(limit int) ([]store.Repo, error)
}

// QueryTool handles the query_leverage MCP tool.
type QueryTool struct {
	pipeline *leverage.Pipeline
	corpus   CorpusSource
}

// NewQueryTool creates a QueryTool.
func NewQueryTool(pipeline *leverage.Pipeline, corpus CorpusSource) *QueryTool {
	return &QueryTool{pipeline: pipeline, corpus: corpus}
}

// Definition returns the MCP tool definition for query_leverage.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("query_leverage",
		mcp.WithDescription(
			"Find scanned GitHub repositories relevant to a problem statement. Returns ranked "+
				"leverage cards: what each repo can do, why it is relevant, and how to integrate it.",
		),
		mcp.WithString("intent",
			mcp.Required(),
			mcp.Description("Free-text problem statement or goal"),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Max cards to return (default: %d, max: %d)", leverage.DefaultMaxResults, leverage.MaxResultsLimit)),
		),
		mcp.WithNumber("min_score",
			mcp.Description(fmt.Sprintf("Minimum relevance score in [0, 1] (default: %g)", leverage.DefaultMinScore)),
		),
	)
}

// Handle processes the query_leverage tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intent := req.GetString("intent", "")
	maxResults := intArg(req, "max_results", leverage.DefaultMaxResults)
	minScore := floatArg(req, "min_score", leverage.DefaultMinScore)

	repos, err := t.corpus.ListRepos(0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading corpus: %v", err)), nil
	}

	corpus := make([]leverage.Candidate, 0, len(repos))
	for _, r := range repos {
		// Repos that never got an embedding cannot be scored.
		if len(r.Embedding) == 0 {
			continue
		}
		corpus = append(corpus, leverage.Candidate{
			FullName:    r.FullName,
			Vector:      r.Embedding,
			Description: r.Description,
			Stars:       r.Stars,
			Language:    r.Language,
		})
	}

	cards, err := t.pipeline.Query(ctx, intent, corpus, maxResults, minScore)
	if err != nil {
		var vErr *leverage.ValidationError
		if errors.As(err, &vErr) {
			return mcp.NewToolResultError(vErr.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	if len(cards) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No repositories scored >= %g for this intent. Scan more sources or lower min_score.", minScore,
		)), nil
	}

	return mcp.NewToolResultText(renderCards(cards)), nil
}

// renderCards formats cards as readable text followed by the JSON payload.
func renderCards(cards []leverage.Card) string {
	var b strings.Builder

	source := "computed"
	if cards[0].ServedFromCache {
		source = "served from FACT cache"
	}
	fmt.Fprintf(&b, "Found %d leverage cards (%s):\n\n", len(cards), source)

	for i, c := range cards {
		fmt.Fprintf(&b, "[%d] %s (score %.3f)\n", i+1, c.Repo, c.RelevanceScore)
		if c.Summary != "" {
			fmt.Fprintf(&b, "    %s\n", c.Summary)
		}
		fmt.Fprintf(&b, "    capabilities: %s\n", strings.Join(c.Capabilities, ", "))
		fmt.Fprintf(&b, "    reasoning: %s\n", c.Reasoning)
		if c.IntegrationHint != "" {
			fmt.Fprintf(&b, "    integration: %s\n", c.IntegrationHint)
		}
		if c.RuntimeComplexity != "" {
			fmt.Fprintf(&b, "    complexity: %s\n", c.RuntimeComplexity)
		}
		b.WriteString("\n")
	}

	encoded, err := json.MarshalIndent(cards, "", "  ")
	if err == nil {
		b.WriteString("```json\n")
		b.Write(encoded)
		b.WriteString("\n```\n")
	}
	return b.String()
}
