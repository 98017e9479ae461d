// Package leverage implements the query pipeline that turns a user intent
// and a corpus of scanned repositories into ranked leverage cards.
//
// A query embeds the intent, scores every candidate with the configured
// Scorer, filters and ranks the results, and assembles annotated cards. The
// full result list is cached in the FACT cache keyed by the intent, so a
// repeated query replays the stored cards without re-embedding or rescoring.
package leverage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ruvscan/ruvscan/internal/fact"
)

// Query bounds, matching the original request schema.
const (
	MaxResultsLimit   = 100
	DefaultMaxResults = 10
	DefaultMinScore   = 0.7
)

// queryKeyPrefix namespaces pipeline result entries in the FACT cache.
const queryKeyPrefix = "query:"

// Candidate is one corpus item: a scanned repository with its embedding
// vector. The pipeline treats the corpus as a read-only snapshot.
type Candidate struct {
	FullName     string
	Vector       []float64
	Capabilities []string
	Description  string
	Stars        int
	Language     string
}

// Card is one ranked result. Field names follow the original leverage card
// wire format.
type Card struct {
	Repo              string   `json:"repo"`
	Capabilities      []string `json:"capabilities"`
	Summary           string   `json:"summary"`
	Reasoning         string   `json:"reasoning"`
	IntegrationHint   string   `json:"integration_hint,omitempty"`
	RelevanceScore    float64  `json:"relevance_score"`
	RuntimeComplexity string   `json:"runtime_complexity,omitempty"`
	ServedFromCache   bool     `json:"served_from_cache"`
}

// Embedder is the narrow slice of the embedding provider the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Pipeline ranks candidates against an intent. All collaborators are
// injected at construction; tests substitute fakes.
type Pipeline struct {
	cache     *fact.Cache
	embedder  Embedder
	scorer    Scorer
	rationale RationaleProvider
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScorer replaces the default cosine scorer.
func WithScorer(s Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithRationale sets the rationale provider. Without one, cards carry a
// fixed stand-in insight.
func WithRationale(r RationaleProvider) Option {
	return func(p *Pipeline) { p.rationale = r }
}

// NewPipeline creates a Pipeline. cache may be nil (caching disabled).
func NewPipeline(cache *fact.Cache, embedder Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:    cache,
		embedder: embedder,
		scorer:   CosineScorer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Query returns ranked leverage cards for an intent.
//
// Results are sorted by relevance score descending with ties broken by repo
// name ascending, filtered to score >= minScore, and truncated to
// maxResults. For fixed inputs and a fixed embedder the output is exactly
// reproducible; that determinism is what makes the cache replay sound.
func (p *Pipeline) Query(ctx context.Context, intent string, corpus []Candidate, maxResults int, minScore float64) ([]Card, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return nil, &ValidationError{Field: "intent", Reason: "must not be empty"}
	}
	if maxResults <= 0 || maxResults > MaxResultsLimit {
		return nil, &ValidationError{Field: "max_results", Reason: fmt.Sprintf("must be in (0, %d], got %d", MaxResultsLimit, maxResults)}
	}
	if minScore < 0.0 || minScore > 1.0 {
		return nil, &ValidationError{Field: "min_score", Reason: fmt.Sprintf("must be in [0, 1], got %g", minScore)}
	}

	cacheKey := queryKeyPrefix + intent

	// A cached result is returned verbatim, with every card flagged as
	// served from cache. No embedding or scoring happens on a hit.
	if cards, ok := p.cachedCards(cacheKey); ok {
		return cards, nil
	}

	intentVector, err := p.embedder.Embed(ctx, intent)
	if err != nil {
		return nil, &UpstreamError{Op: "embed intent", Err: err}
	}
	if len(intentVector) == 0 {
		return nil, &UpstreamError{Op: "embed intent", Err: fmt.Errorf("provider returned an empty vector")}
	}

	for _, c := range corpus {
		if len(c.Vector) != len(intentVector) {
			return nil, &ValidationError{
				Field:  "corpus",
				Reason: fmt.Sprintf("%s has vector dimension %d, want %d", c.FullName, len(c.Vector), len(intentVector)),
			}
		}
	}

	ranked := p.rank(intentVector, corpus, minScore)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	cards := make([]Card, 0, len(ranked))
	for _, sc := range ranked {
		cards = append(cards, p.buildCard(ctx, intent, sc.candidate, sc.score))
	}

	p.storeCards(cacheKey, intent, cards)
	return cards, nil
}

type scoredCandidate struct {
	candidate Candidate
	score     float64
}

// rank scores the whole corpus, filters by minScore, and orders the
// survivors. This is a full scan, O(corpus x dimension) per query.
func (p *Pipeline) rank(intentVector []float64, corpus []Candidate, minScore float64) []scoredCandidate {
	ranked := make([]scoredCandidate, 0, len(corpus))
	for _, c := range corpus {
		score := p.scorer.Score(intentVector, c.Vector)
		if score >= minScore {
			ranked = append(ranked, scoredCandidate{candidate: c, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].candidate.FullName < ranked[j].candidate.FullName
	})
	return ranked
}

// buildCard assembles one leverage card for a surviving candidate.
func (p *Pipeline) buildCard(ctx context.Context, intent string, c Candidate, score float64) Card {
	capabilities := c.Capabilities
	if len(capabilities) == 0 {
		capabilities = InferCapabilities(c.Description)
	}

	insight := fallbackInsight()
	if p.rationale != nil {
		got, err := p.rationale.Rationale(ctx, intent, c)
		if err != nil {
			log.Printf("leverage: rationale provider failed for %s, using fallback: %v", c.FullName, err)
		} else {
			insight = got
		}
	}

	card := Card{
		Repo:            c.FullName,
		Capabilities:    capabilities,
		Summary:         c.Description,
		Reasoning:       insight.Reasoning,
		IntegrationHint: insight.IntegrationHint,
		RelevanceScore:  score,
	}
	if complexity, ok := InferComplexity(c.Description); ok {
		card.RuntimeComplexity = complexity
	}
	return card
}

// cachedCards returns the replayed result for a cache hit. A corrupt cached
// payload is treated as a miss.
func (p *Pipeline) cachedCards(cacheKey string) ([]Card, bool) {
	if p.cache == nil {
		return nil, false
	}
	entry := p.cache.Get(cacheKey, nil)
	if entry == nil {
		return nil, false
	}

	var cards []Card
	if err := json.Unmarshal([]byte(entry.Response), &cards); err != nil {
		log.Printf("leverage: corrupt cached result for %q, recomputing: %v", cacheKey, err)
		return nil, false
	}
	for i := range cards {
		cards[i].ServedFromCache = true
	}
	return cards, true
}

// storeCards caches a freshly computed result. Failures are already absorbed
// by the cache layer; an empty digest just means the result was not cached.
func (p *Pipeline) storeCards(cacheKey, intent string, cards []Card) {
	if p.cache == nil {
		return
	}
	encoded, err := json.Marshal(cards)
	if err != nil {
		log.Printf("leverage: encode cards: %v", err)
		return
	}
	p.cache.Set(cacheKey, string(encoded), nil, map[string]any{
		"query_length": len(intent),
	})
}
