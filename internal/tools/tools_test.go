package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ruvscan/ruvscan/internal/fact"
	"github.com/ruvscan/ruvscan/internal/leverage"
	"github.com/ruvscan/ruvscan/internal/store"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// fakeCorpus serves a fixed repo list.
type fakeCorpus struct {
	repos []store.Repo
	err   error
}

func (f *fakeCorpus) ListRepos(limit int) ([]store.Repo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.repos) {
		return f.repos[:limit], nil
	}
	return f.repos, nil
}

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct {
	vector []float64
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vector, nil
}

// memEntryStore is an in-memory fact.EntryStore.
type memEntryStore struct {
	entries map[string]fact.Entry
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: make(map[string]fact.Entry)}
}

func (m *memEntryStore) PutEntry(e fact.Entry) error {
	m.entries[e.Hash] = e
	return nil
}

func (m *memEntryStore) GetEntry(hash string) (*fact.Entry, error) {
	e, ok := m.entries[hash]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memEntryStore) CountEntries() (int, error) { return len(m.entries), nil }

// newTestPipeline wires a pipeline with fakes suitable for tool tests.
func newTestPipeline() *leverage.Pipeline {
	cache := fact.New(newMemEntryStore())
	return leverage.NewPipeline(cache, &fakeEmbedder{vector: []float64{1, 0, 0}})
}

// ─── QueryTool ───────────────────────────────────────────────────────────────

func TestQueryTool_Definition(t *testing.T) {
	tool := NewQueryTool(newTestPipeline(), &fakeCorpus{})
	def := tool.Definition()

	if def.Name != "query_leverage" {
		t.Errorf("tool name = %q, want query_leverage", def.Name)
	}
	props := def.InputSchema.Properties
	for _, p := range []string{"intent", "max_results", "min_score"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
}

func TestQueryTool_EmptyIntentIsToolError(t *testing.T) {
	tool := NewQueryTool(newTestPipeline(), &fakeCorpus{})

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"intent": "   ",
	}))
	if err != nil {
		t.Fatalf("Handle returned Go error: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error for empty intent")
	}
	if !strings.Contains(resultText(res), "intent") {
		t.Errorf("error should name the field: %s", resultText(res))
	}
}

func TestQueryTool_ReturnsRankedCards(t *testing.T) {
	corpus := &fakeCorpus{repos: []store.Repo{
		{FullName: "r/aligned", Description: "a sublinear solver", Embedding: []float64{1, 0, 0}, Stars: 10, Language: "Rust"},
		{FullName: "r/orthogonal", Description: "something else", Embedding: []float64{0, 1, 0}},
		{FullName: "r/unembedded", Description: "never scanned fully"},
	}}
	tool := NewQueryTool(newTestPipeline(), corpus)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"intent":    "solve large linear systems fast",
		"min_score": 0.9,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}

	text := resultText(res)
	if !strings.Contains(text, "r/aligned") {
		t.Errorf("expected the aligned repo in output:\n%s", text)
	}
	if strings.Contains(text, "r/orthogonal") {
		t.Errorf("orthogonal repo should be filtered out:\n%s", text)
	}
	if !strings.Contains(text, "```json") {
		t.Error("output should include the JSON payload")
	}
}

func TestQueryTool_NoMatchesMessage(t *testing.T) {
	corpus := &fakeCorpus{repos: []store.Repo{
		{FullName: "r/orthogonal", Description: "x", Embedding: []float64{0, 1, 0}},
	}}
	tool := NewQueryTool(newTestPipeline(), corpus)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"intent":    "anything",
		"min_score": 0.99,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "No repositories scored") {
		t.Errorf("expected empty-result guidance, got: %s", resultText(res))
	}
}

func TestQueryTool_CorpusFailureIsToolError(t *testing.T) {
	tool := NewQueryTool(newTestPipeline(), &fakeCorpus{err: errors.New("db locked")})

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"intent": "anything",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error when the corpus cannot load")
	}
}

// ─── ScanTool ────────────────────────────────────────────────────────────────

// fakeScanner records scan starts.
type fakeScanner struct {
	jobID string
	err   error
	calls []string
}

func (f *fakeScanner) Start(ctx context.Context, sourceType, sourceName string, limit int) (string, error) {
	f.calls = append(f.calls, sourceType+"/"+sourceName)
	if f.err != nil {
		return "", f.err
	}
	return f.jobID, nil
}

func TestScanTool_StartsJob(t *testing.T) {
	sc := &fakeScanner{jobID: "job-42"}
	tool := NewScanTool(sc)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type": "org",
		"source_name": "ruvnet",
		"limit":       float64(25),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "job-42") {
		t.Errorf("expected job ID in output: %s", resultText(res))
	}
	if len(sc.calls) != 1 || sc.calls[0] != "org/ruvnet" {
		t.Errorf("scanner calls = %v", sc.calls)
	}
}

func TestScanTool_MissingArgs(t *testing.T) {
	sc := &fakeScanner{jobID: "job-x"}
	tool := NewScanTool(sc)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type": "org",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error for missing source_name")
	}
	if len(sc.calls) != 0 {
		t.Errorf("scanner should not start on invalid input, got %v", sc.calls)
	}
}

func TestScanTool_StartFailure(t *testing.T) {
	tool := NewScanTool(&fakeScanner{err: errors.New("bad token")})

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type": "org",
		"source_name": "ruvnet",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error when the scan fails to start")
	}
}

// ─── ScanStatusTool ──────────────────────────────────────────────────────────

// fakeJobs serves a fixed job table.
type fakeJobs struct {
	jobs map[string]*store.ScanJob
}

func (f *fakeJobs) GetScanJob(id string) (*store.ScanJob, error) {
	return f.jobs[id], nil
}

func TestScanStatusTool_ReportsProgress(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]*store.ScanJob{
		"job-1": {
			ID: "job-1", SourceType: "org", SourceName: "ruvnet",
			Status: "running", ReposFound: 20, ReposProcessed: 5,
			StartedAt: "2025-01-01T00:00:00Z",
		},
	}}
	tool := NewScanStatusTool(jobs)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"job_id": "job-1",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := resultText(res)
	if !strings.Contains(text, "running") {
		t.Errorf("expected status in output: %s", text)
	}
	if !strings.Contains(text, "5/20") {
		t.Errorf("expected progress counts in output: %s", text)
	}
	if !strings.Contains(text, "25%") {
		t.Errorf("expected percentage in output: %s", text)
	}
}

func TestScanStatusTool_UnknownJob(t *testing.T) {
	tool := NewScanStatusTool(&fakeJobs{jobs: map[string]*store.ScanJob{}})

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"job_id": "nope",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error for an unknown job")
	}
}

// ─── CacheStatsTool and ReplayTool ───────────────────────────────────────────

func TestCacheStatsTool_ReportsEntries(t *testing.T) {
	cache := fact.New(newMemEntryStore())
	cache.Set("p1", "r1", nil, nil)
	cache.Set("p2", "r2", nil, nil)

	tool := NewCacheStatsTool(cache)
	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := resultText(res)
	if !strings.Contains(text, fact.Version) {
		t.Errorf("expected cache version in output: %s", text)
	}
	if !strings.Contains(text, "2") {
		t.Errorf("expected entry count in output: %s", text)
	}
}

func TestReplayTool_ReplaysTrace(t *testing.T) {
	cache := fact.New(newMemEntryStore())
	cache.TraceReasoning("why is it slow", []map[string]any{
		{"step": "embed", "duration_ms": float64(12)},
		{"step": "rank", "duration_ms": float64(3)},
	}, "done")

	tool := NewReplayTool(cache)
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "why is it slow",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}

	text := resultText(res)
	if !strings.Contains(text, "2 steps") {
		t.Errorf("expected step count in output: %s", text)
	}
	if !strings.Contains(text, "embed") {
		t.Errorf("expected the recorded steps in output: %s", text)
	}
}

func TestReplayTool_MissingTrace(t *testing.T) {
	tool := NewReplayTool(fact.New(newMemEntryStore()))

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "never asked",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("missing trace should not be a tool error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "No reasoning trace") {
		t.Errorf("expected a no-trace message, got: %s", resultText(res))
	}
}

// ─── ReposTool ───────────────────────────────────────────────────────────────

func TestReposTool_ListsRepos(t *testing.T) {
	corpus := &fakeCorpus{repos: []store.Repo{
		{FullName: "a/one", Stars: 5, Language: "Go", Embedding: []float64{1}},
		{FullName: "b/two", Description: "second repo"},
	}}
	tool := NewReposTool(corpus)

	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := resultText(res)
	if !strings.Contains(text, "a/one") || !strings.Contains(text, "b/two") {
		t.Errorf("expected both repos listed: %s", text)
	}
	if !strings.Contains(text, "no embedding") {
		t.Errorf("expected the unembedded repo flagged: %s", text)
	}
}

func TestReposTool_EmptyCorpus(t *testing.T) {
	tool := NewReposTool(&fakeCorpus{})

	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resultText(res), "scan_github") {
		t.Errorf("empty corpus should point at scan_github: %s", resultText(res))
	}
}

// ─── Argument helpers ────────────────────────────────────────────────────────

func TestArgHelpers(t *testing.T) {
	req := makeReq(map[string]interface{}{
		"n": float64(7),
		"f": 0.25,
		"s": "text",
	})

	if got := intArg(req, "n", 1); got != 7 {
		t.Errorf("intArg = %d, want 7", got)
	}
	if got := intArg(req, "missing", 1); got != 1 {
		t.Errorf("intArg default = %d, want 1", got)
	}
	if got := intArg(req, "s", 1); got != 1 {
		t.Errorf("intArg on non-number = %d, want default", got)
	}
	if got := floatArg(req, "f", 0.5); got != 0.25 {
		t.Errorf("floatArg = %g, want 0.25", got)
	}
	if got := floatArg(req, "missing", 0.5); got != 0.5 {
		t.Errorf("floatArg default = %g, want 0.5", got)
	}
}
