package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ruvscan/ruvscan/internal/scanner"
	"github.com/ruvscan/ruvscan/internal/store"
)

// ScanStarter starts a background scan and returns its job ID.
type ScanStarter interface {
	Start(ctx context.Context, sourceType, sourceName string, limit int) (string, error)
}

// ScanTool handles the scan_github MCP tool.
type ScanTool struct {
	scanner ScanStarter
}

// NewScanTool creates a ScanTool.
func NewScanTool(s ScanStarter) *ScanTool {
	return &ScanTool{scanner: s}
}

// Definition returns the MCP tool definition for scan_github.
func (t *ScanTool) Definition() mcp.Tool {
	return mcp.NewTool("scan_github",
		mcp.WithDescription(
			"Scan a GitHub organization, user, or topic. Fetches repository metadata and READMEs "+
				"with concurrent workers, embeds each repo, and adds them to the leverage corpus. "+
				"Runs in the background; check progress with scan_status.",
		),
		mcp.WithString("source_type",
			mcp.Required(),
			mcp.Description("What to scan: org, user, or topic"),
		),
		mcp.WithString("source_name",
			mcp.Required(),
			mcp.Description("Organization, username, or topic name"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max repos to fetch (default: %d, max: %d)", scanner.DefaultLimit, scanner.MaxLimit)),
		),
	)
}

// Handle processes the scan_github tool call.
func (t *ScanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType := req.GetString("source_type", "")
	sourceName := req.GetString("source_name", "")
	limit := intArg(req, "limit", scanner.DefaultLimit)

	if sourceType == "" || sourceName == "" {
		return mcp.NewToolResultError("'source_type' and 'source_name' are required"), nil
	}

	jobID, err := t.scanner.Start(ctx, sourceType, sourceName, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed to start: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Scan initiated for %s/%s (up to %d repos).\nJob ID: %s\nUse scan_status to track progress.",
		sourceType, sourceName, limit, jobID,
	)), nil
}

// ─── scan_status ─────────────────────────────────────────────────────────────

// JobSource looks up scan jobs.
type JobSource interface {
	GetScanJob(id string) (*store.ScanJob, error)
}

// ScanStatusTool handles the scan_status MCP tool.
type ScanStatusTool struct {
	jobs JobSource
}

// NewScanStatusTool creates a ScanStatusTool.
func NewScanStatusTool(jobs JobSource) *ScanStatusTool {
	return &ScanStatusTool{jobs: jobs}
}

// Definition returns the MCP tool definition for scan_status.
func (t *ScanStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("scan_status",
		mcp.WithDescription("Check the progress of a background GitHub scan started with scan_github."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID returned by scan_github"),
		),
	)
}

// Handle processes the scan_status tool call.
func (t *ScanStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("'job_id' is required"), nil
	}

	job, err := t.jobs.GetScanJob(jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status lookup failed: %v", err)), nil
	}
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no scan job with ID %q", jobID)), nil
	}

	pct := 0.0
	if job.ReposFound > 0 {
		pct = 100 * float64(job.ReposProcessed) / float64(job.ReposFound)
	}

	text := fmt.Sprintf(
		"Scan %s (%s/%s)\nStatus: %s\nRepos: %d/%d processed (%.0f%%)\nStarted: %s",
		job.ID, job.SourceType, job.SourceName,
		job.Status, job.ReposProcessed, job.ReposFound, pct, job.StartedAt,
	)
	if job.FinishedAt != nil {
		text += fmt.Sprintf("\nFinished: %s", *job.FinishedAt)
	}
	if job.Error != "" {
		text += fmt.Sprintf("\nError: %s", job.Error)
	}
	return mcp.NewToolResultText(text), nil
}
