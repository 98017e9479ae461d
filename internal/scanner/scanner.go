// Package scanner fetches GitHub repositories with a pool of concurrent
// workers, embeds their summaries, and persists them into the corpus store.
//
// A scan runs in the background under a job ID; progress counters are
// written to the store so the scan_status tool can report on it.
package scanner

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ruvscan/ruvscan/internal/embed"
	"github.com/ruvscan/ruvscan/internal/store"
)

const (
	maxWorkers = 10
	// rateLimitPad keeps a reserve of requests before sleeping on the
	// GitHub rate limit.
	rateLimitPad = 100

	// MaxLimit bounds how many repositories one scan may fetch.
	MaxLimit     = 1000
	DefaultLimit = 50
)

// Source types accepted by Start.
const (
	SourceOrg   = "org"
	SourceUser  = "user"
	SourceTopic = "topic"
)

// JobStore is the persistence surface the scanner needs.
type JobStore interface {
	UpsertRepo(r store.Repo) (int64, error)
	CreateScanJob(id, sourceType, sourceName string) error
	UpdateScanProgress(id string, found, processed int) error
	FinishScanJob(id string, errMsg string) error
}

// Scanner fetches and analyzes GitHub repositories.
type Scanner struct {
	client   *github.Client
	store    JobStore
	embedder embed.Provider
	workers  int
}

// New creates a Scanner. token may be empty for unauthenticated access
// (which is severely rate limited by GitHub).
func New(token string, st JobStore, embedder embed.Provider) *Scanner {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &Scanner{
		client:   github.NewClient(hc),
		store:    st,
		embedder: embedder,
		workers:  maxWorkers,
	}
}

// ValidateSource checks a scan request's source type and limit, normalizing
// a zero limit to the default.
func ValidateSource(sourceType string, limit int) (int, error) {
	switch sourceType {
	case SourceOrg, SourceUser, SourceTopic:
	default:
		return 0, fmt.Errorf("scanner: unknown source type %q (want org, user, or topic)", sourceType)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return 0, fmt.Errorf("scanner: limit must be in (0, %d], got %d", MaxLimit, limit)
	}
	return limit, nil
}

// Start registers a scan job and runs it in the background. It returns the
// job ID immediately; progress is tracked in the store.
func (s *Scanner) Start(ctx context.Context, sourceType, sourceName string, limit int) (string, error) {
	limit, err := ValidateSource(sourceType, limit)
	if err != nil {
		return "", err
	}
	if sourceName == "" {
		return "", fmt.Errorf("scanner: source name is required")
	}

	jobID := uuid.NewString()
	if err := s.store.CreateScanJob(jobID, sourceType, sourceName); err != nil {
		return "", fmt.Errorf("scanner: create job: %w", err)
	}

	go func() {
		// The scan outlives the originating tool call.
		runCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := s.run(runCtx, jobID, sourceType, sourceName, limit); err != nil {
			log.Printf("scanner: job %s failed: %v", jobID, err)
			_ = s.store.FinishScanJob(jobID, err.Error())
			return
		}
		log.Printf("scanner: job %s completed", jobID)
		_ = s.store.FinishScanJob(jobID, "")
	}()

	return jobID, nil
}

// run lists repositories for the source and processes them with the worker
// pool.
func (s *Scanner) run(ctx context.Context, jobID, sourceType, sourceName string, limit int) error {
	repos, err := s.listRepos(ctx, sourceType, sourceName, limit)
	if err != nil {
		return err
	}

	if err := s.store.UpdateScanProgress(jobID, len(repos), 0); err != nil {
		log.Printf("scanner: update progress: %v", err)
	}

	jobs := make(chan *github.Repository)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)

	workers := s.workers
	if workers > len(repos) {
		workers = len(repos)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				if err := s.processRepo(ctx, repo); err != nil {
					log.Printf("scanner: %s: %v", repo.GetFullName(), err)
				}
				mu.Lock()
				processed++
				n := processed
				mu.Unlock()
				_ = s.store.UpdateScanProgress(jobID, len(repos), n)
			}
		}()
	}

	for _, repo := range repos {
		select {
		case jobs <- repo:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

// listRepos fetches up to limit repositories for the given source,
// paginating and respecting the rate limit between pages.
func (s *Scanner) listRepos(ctx context.Context, sourceType, sourceName string, limit int) ([]*github.Repository, error) {
	var repos []*github.Repository

	switch sourceType {
	case SourceOrg:
		opts := &github.RepositoryListByOrgOptions{
			Type:        "public",
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			page, resp, err := s.client.Repositories.ListByOrg(ctx, sourceName, opts)
			if err != nil {
				return nil, fmt.Errorf("scanner: list org repos: %w", err)
			}
			repos = append(repos, page...)
			if len(repos) >= limit || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
			if err := s.checkRateLimit(ctx); err != nil {
				return nil, err
			}
		}

	case SourceUser:
		opts := &github.RepositoryListOptions{
			Type:        "owner",
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			page, resp, err := s.client.Repositories.List(ctx, sourceName, opts)
			if err != nil {
				return nil, fmt.Errorf("scanner: list user repos: %w", err)
			}
			repos = append(repos, page...)
			if len(repos) >= limit || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
			if err := s.checkRateLimit(ctx); err != nil {
				return nil, err
			}
		}

	case SourceTopic:
		opts := &github.SearchOptions{
			Sort:        "stars",
			ListOptions: github.ListOptions{PerPage: 100},
		}
		query := "topic:" + sourceName
		for {
			result, resp, err := s.client.Search.Repositories(ctx, query, opts)
			if err != nil {
				return nil, fmt.Errorf("scanner: search topic repos: %w", err)
			}
			repos = append(repos, result.Repositories...)
			if len(repos) >= limit || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
			if err := s.checkRateLimit(ctx); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("scanner: unknown source type %q", sourceType)
	}

	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

// processRepo fetches the README, embeds the repository summary, and
// persists the result. A failed README fetch or embedding is logged and the
// repo is stored without that data rather than dropped.
func (s *Scanner) processRepo(ctx context.Context, repo *github.Repository) error {
	readme, err := s.fetchREADME(ctx, repo)
	if err != nil {
		log.Printf("scanner: no README for %s: %v", repo.GetFullName(), err)
		readme = ""
	}

	r := store.Repo{
		Name:        repo.GetName(),
		Org:         repo.GetOwner().GetLogin(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Topics:      repo.Topics,
		README:      readme,
		Stars:       repo.GetStargazersCount(),
		Language:    repo.GetLanguage(),
	}

	if s.embedder != nil {
		vector, err := s.embedder.Embed(ctx, embed.RepoText(r))
		if err != nil {
			log.Printf("scanner: embed %s: %v", r.FullName, err)
		} else {
			r.Embedding = vector
		}
	}

	if _, err := s.store.UpsertRepo(r); err != nil {
		return fmt.Errorf("store repo: %w", err)
	}
	return nil
}

// fetchREADME retrieves the repository README content.
func (s *Scanner) fetchREADME(ctx context.Context, repo *github.Repository) (string, error) {
	readme, _, err := s.client.Repositories.GetReadme(
		ctx, repo.GetOwner().GetLogin(), repo.GetName(), nil,
	)
	if err != nil {
		return "", err
	}
	return readme.GetContent()
}

// checkRateLimit sleeps until the rate limit resets when the remaining
// budget drops below the reserve.
func (s *Scanner) checkRateLimit(ctx context.Context) error {
	rate, _, err := s.client.RateLimits(ctx)
	if err != nil {
		return fmt.Errorf("scanner: rate limit check: %w", err)
	}

	core := rate.GetCore()
	if core.Remaining >= rateLimitPad {
		return nil
	}

	reset := core.Reset.Time
	log.Printf("scanner: rate limit low (%d remaining), sleeping until %v", core.Remaining, reset)
	select {
	case <-time.After(time.Until(reset)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
