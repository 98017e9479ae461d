// Package fact implements the FACT cache: a deterministic, content-addressed
// store for previously computed responses and reasoning traces.
//
// Every entry is keyed by a SHA-256 digest of (prompt, canonicalized
// context), which makes retrieval a pure function of the semantic request.
// The cache never evicts or expires entries; an absent row is the only miss
// condition. Store failures degrade to misses so callers keep working
// without caching.
package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"
)

// Version tags every cache entry so a future format change can invalidate
// old rows by inspection.
const Version = "0.5.0"

// tracePrefix namespaces reasoning-trace keys away from ordinary prompts.
const tracePrefix = "reasoning_trace:"

// EntryStore is the narrow persistence interface the cache needs. A nil
// store is valid and turns the cache into a no-op.
type EntryStore interface {
	PutEntry(e Entry) error
	GetEntry(hash string) (*Entry, error)
	CountEntries() (int, error)
}

// Entry is one cached record.
type Entry struct {
	Hash      string         `json:"hash"`
	Prompt    string         `json:"prompt"`
	Response  string         `json:"response"`
	Version   string         `json:"version"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// Trace is a recorded reasoning run, replayable byte-for-byte.
type Trace struct {
	Query       string           `json:"query"`
	Steps       []map[string]any `json:"steps"`
	FinalResult string           `json:"final_result"`
	Timestamp   string           `json:"timestamp"`
	Version     string           `json:"version"`
}

// Stats holds cache statistics.
type Stats struct {
	Version      string `json:"version"`
	TotalEntries int    `json:"total_entries"`
}

// Cache is the deterministic caching layer.
type Cache struct {
	store EntryStore
	now   func() time.Time
}

// New creates a Cache backed by the given store. Passing nil is allowed and
// produces a cache where every Get misses and every Set is a no-op.
func New(store EntryStore) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Digest computes the deterministic hash for a prompt and optional context.
// Context maps are canonicalized with recursive key sorting before hashing,
// so key insertion order never changes the digest.
func (c *Cache) Digest(prompt string, context map[string]any) string {
	content := prompt + canonicalize(context)
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Get retrieves the cached entry for a prompt, or nil on a miss. Store
// failures are logged and reported as misses.
func (c *Cache) Get(prompt string, context map[string]any) *Entry {
	if c.store == nil {
		return nil
	}

	hash := c.Digest(prompt, context)
	entry, err := c.store.GetEntry(hash)
	if err != nil {
		log.Printf("fact: cache retrieval error: %v", err)
		return nil
	}
	if entry == nil {
		log.Printf("fact: cache miss: %s...", hash[:16])
		return nil
	}
	log.Printf("fact: cache hit: %s...", hash[:16])
	return entry
}

// Set stores a response under the digest of (prompt, context), overwriting
// any previous entry with the same digest, and returns the digest. Caller
// metadata is merged with the cache version and an insertion timestamp. When
// the store is absent or failing, Set returns "" instead of an error.
func (c *Cache) Set(prompt, response string, context, metadata map[string]any) string {
	if c.store == nil {
		return ""
	}

	hash := c.Digest(prompt, context)

	merged := map[string]any{
		"version":   Version,
		"timestamp": c.now().UTC().Format(time.RFC3339),
	}
	if context != nil {
		merged["context"] = context
	}
	for k, v := range metadata {
		merged[k] = v
	}

	err := c.store.PutEntry(Entry{
		Hash:      hash,
		Prompt:    prompt,
		Response:  response,
		Version:   Version,
		Metadata:  merged,
		CreatedAt: c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("fact: cache storage error: %v", err)
		return ""
	}

	log.Printf("fact: cache stored: %s...", hash[:16])
	return hash
}

// TraceReasoning records a reasoning trace under a distinguished key so it
// can be replayed exactly later.
func (c *Cache) TraceReasoning(query string, steps []map[string]any, finalResult string) Trace {
	trace := Trace{
		Query:       query,
		Steps:       steps,
		FinalResult: finalResult,
		Timestamp:   c.now().UTC().Format(time.RFC3339),
		Version:     Version,
	}

	encoded, err := json.Marshal(trace)
	if err != nil {
		log.Printf("fact: encode trace: %v", err)
		return trace
	}

	c.Set(tracePrefix+query, string(encoded), nil, map[string]any{
		"type":        "reasoning_trace",
		"steps_count": len(steps),
	})
	return trace
}

// ReplayReasoning returns the stored trace for a query, or nil when no trace
// exists or the stored entry cannot be parsed. A corrupt entry is a miss,
// never an error.
func (c *Cache) ReplayReasoning(query string) *Trace {
	entry := c.Get(tracePrefix+query, nil)
	if entry == nil {
		return nil
	}

	var trace Trace
	if err := json.Unmarshal([]byte(entry.Response), &trace); err != nil {
		log.Printf("fact: replay parse error: %v", err)
		return nil
	}

	log.Printf("fact: replaying reasoning trace with %d steps", len(trace.Steps))
	return &trace
}

// ValidateDeterminism checks that a newly computed response matches the
// cached one for the same prompt. The first response seen for a prompt is
// stored and becomes ground truth. A mismatch is logged and reported as
// false but never aborts the caller.
func (c *Cache) ValidateDeterminism(prompt, newResponse string) bool {
	cached := c.Get(prompt, nil)
	if cached == nil {
		c.Set(prompt, newResponse, nil, nil)
		return true
	}

	if cached.Response != newResponse {
		log.Printf("fact: determinism violation detected for prompt: %.50s...", prompt)
		return false
	}
	return true
}

// Stats reports cache statistics.
func (c *Cache) Stats() Stats {
	st := Stats{Version: Version}
	if c.store == nil {
		return st
	}
	n, err := c.store.CountEntries()
	if err != nil {
		log.Printf("fact: stats error: %v", err)
		return st
	}
	st.TotalEntries = n
	return st
}
