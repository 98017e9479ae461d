package leverage

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/ruvscan/ruvscan/internal/fact"
)

// Insight is the explanatory output of a rationale provider: why a candidate
// is relevant to the intent and how to put it to use.
type Insight struct {
	Reasoning       string   `json:"reasoning"`
	IntegrationHint string   `json:"integration_hint"`
	Domains         []string `json:"domains,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// RationaleProvider produces the reasoning text attached to a card. The
// pipeline falls back to a fixed insight when the provider is absent or
// failing, so a provider error never fails a query.
type RationaleProvider interface {
	Rationale(ctx context.Context, intent string, c Candidate) (Insight, error)
}

// fallbackInsight is the stand-in used when no provider is configured.
func fallbackInsight() Insight {
	return Insight{
		Reasoning: "This technology could be repurposed by applying its core " +
			"algorithmic approach to your use case, even though the original " +
			"implementation was designed for a different domain.",
		IntegrationHint: "Integrate as a standalone service with an API bridge",
		Confidence:      0.5,
	}
}

// ─── Keyword provider ────────────────────────────────────────────────────────

// KeywordRationale generates insights by analogical keyword mapping: intent
// concepts crossed with the candidate's capability domains. It is a pure
// function of its inputs, which keeps query results reproducible. Insights
// are memoized in the FACT cache when one is supplied.
type KeywordRationale struct {
	cache *fact.Cache
}

// NewKeywordRationale creates the provider. cache may be nil.
func NewKeywordRationale(cache *fact.Cache) *KeywordRationale {
	return &KeywordRationale{cache: cache}
}

// intentConcepts are the concept keywords scanned for in the intent text.
var intentConcepts = []string{
	"speed", "performance", "optimize", "scale",
	"context", "memory", "recall", "search",
	"api", "latency", "throughput", "real-time",
}

// domainTable maps capability keywords to reasoning domains, scanned in
// declaration order for deterministic output.
var domainTable = []struct {
	keyword string
	domains []string
}{
	{"solver", []string{"algorithmic", "performance"}},
	{"o(log n)", []string{"algorithmic", "scalability"}},
	{"context", []string{"architectural", "integration"}},
	{"caching", []string{"performance", "scalability"}},
	{"mcp", []string{"integration", "architectural"}},
}

// Rationale produces a keyword-derived insight. It never returns an error.
func (r *KeywordRationale) Rationale(ctx context.Context, intent string, c Candidate) (Insight, error) {
	cacheKey := rationaleCacheKey(intent, c)
	if r.cache != nil {
		if entry := r.cache.Get(cacheKey, nil); entry != nil {
			var cached Insight
			if err := json.Unmarshal([]byte(entry.Response), &cached); err == nil {
				return cached, nil
			}
			log.Printf("leverage: corrupt cached rationale for %s, recomputing", c.FullName)
		}
	}

	concepts := extractConcepts(intent)
	domains := mapDomains(c.Capabilities)
	insight := transferInsight(concepts, domains, c.Description)
	insight.Domains = domains

	if r.cache != nil {
		if encoded, err := json.Marshal(insight); err == nil {
			r.cache.Set(cacheKey, string(encoded), nil, map[string]any{"type": "rationale"})
		}
	}
	return insight, nil
}

// rationaleCacheKey namespaces rationale entries per (intent, candidate).
func rationaleCacheKey(intent string, c Candidate) string {
	summary := c.Description
	if len(summary) > 100 {
		summary = summary[:100]
	}
	return "rationale:" + intent + ":" + c.FullName + ":" + summary
}

func extractConcepts(text string) []string {
	lower := strings.ToLower(text)
	var concepts []string
	for _, kw := range intentConcepts {
		if strings.Contains(lower, kw) {
			concepts = append(concepts, kw)
		}
	}
	return concepts
}

func mapDomains(capabilities []string) []string {
	var domains []string
	seen := map[string]bool{}
	for _, capability := range capabilities {
		lower := strings.ToLower(capability)
		for _, row := range domainTable {
			if !strings.Contains(lower, row.keyword) {
				continue
			}
			for _, d := range row.domains {
				if !seen[d] {
					seen[d] = true
					domains = append(domains, d)
				}
			}
		}
	}
	return domains
}

func transferInsight(concepts, domains []string, summary string) Insight {
	insight := fallbackInsight()
	insight.Confidence = 0.85

	if contains(concepts, "performance") && contains(domains, "algorithmic") {
		insight.Reasoning = "The sublinear algorithmic approach could replace " +
			"linear operations in your system, achieving exponential speedup " +
			"through dimensional reduction and probabilistic guarantees."
	}

	if strings.Contains(summary, "MCP") || contains(domains, "integration") {
		insight.IntegrationHint = "Direct MCP integration: install the server and call it from your agent workflow"
	}

	return insight
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
