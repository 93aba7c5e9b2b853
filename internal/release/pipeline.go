// Package release runs the commit -> pull request -> task update pipeline.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drewfead/releasebridge/internal/config"
	"github.com/drewfead/releasebridge/internal/github"
	"github.com/drewfead/releasebridge/internal/logging"
	"github.com/drewfead/releasebridge/internal/ticket"
	"github.com/google/uuid"
)

// ErrBoardResolution means the board owning the tasks could not be determined.
var ErrBoardResolution = errors.New("could not determine board ID")

// CommitLister lists the commits in a revision range.
type CommitLister interface {
	Commits(ctx context.Context, rangeExpr string) ([]string, error)
}

// PRResolver maps commits to pull requests.
type PRResolver interface {
	Resolve(ctx context.Context, commits []string) ([]github.PullRequest, []error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Commits      CommitLister
	PullRequests PRResolver
	Tracker      ticket.Tracker
	RunID        string // defaults to a random UUID
}

// PlannedUpdate is what a dry run would write to one task.
type PlannedUpdate struct {
	TaskID      string
	ColumnID    string
	ColumnValue string
	Comment     string
}

// Report summarizes a run.
type Report struct {
	RunID        string
	CommitRange  string
	Commits      []string
	PullRequests []github.PullRequest
	PRErrors     []error
	TaskIDs      []string
	Board        *ticket.Board
	Results      []TaskResult
	Plan         []PlannedUpdate
	NoTasks      bool
	DryRun       bool
}

// Counts tallies task results by status.
func (r *Report) Counts() (succeeded, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusSuccess:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// Run executes the pipeline sequentially. The returned error is non-nil only for fatal
// failures (range resolution, board resolution); the report is returned either way.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Report, error) {
	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	rel := cfg.Release
	report := &Report{
		RunID:       runID,
		CommitRange: rel.CommitRange,
		DryRun:      rel.DryRun,
	}

	logging.Info("processing commit range", "range", rel.CommitRange)
	logging.Info("release", "version", rel.Version, "environment", rel.Environment)

	commits, err := deps.Commits.Commits(ctx, rel.CommitRange)
	if err != nil {
		return report, err
	}
	report.Commits = commits
	logging.Info("found commits in range", "count", len(commits), "commits", strings.Join(commits, ", "))

	if len(commits) == 0 {
		logging.Warn("no commits in range")
		report.NoTasks = true
		return report, nil
	}

	prs, prErrs := deps.PullRequests.Resolve(ctx, commits)
	report.PullRequests = prs
	report.PRErrors = prErrs
	logging.Info("found pull requests", "count", len(prs), "failed_commits", len(prErrs))
	for _, pr := range prs {
		logging.Debug("pull request", "number", pr.Number, "title", pr.Title, "body", preview(pr.BodyText(), 100))
	}

	taskIDs := ticket.Extract(prs)
	report.TaskIDs = taskIDs
	if len(taskIDs) == 0 {
		logging.Warn("no task IDs found in PR descriptions")
		report.NoTasks = true
		return report, nil
	}
	logging.Info("extracted task IDs", "tasks", strings.Join(taskIDs, ", "))

	record := Record{Version: rel.Version, Environment: rel.Environment, Description: rel.Description}

	if rel.DryRun {
		report.Plan = plan(taskIDs, cfg.Monday.ColumnID, record)
		logging.Info("dry run, not contacting tracker", "tasks", len(taskIDs))
		return report, nil
	}

	board, err := resolveBoard(ctx, deps.Tracker, taskIDs)
	if err != nil {
		return report, err
	}
	report.Board = board

	updater := NewUpdater(deps.Tracker, cfg.Monday.ColumnID, record)
	report.Results = updater.Update(ctx, board.ID, taskIDs)

	succeeded, skipped, failed := report.Counts()
	logging.Info("finished updating tasks",
		"tracker", deps.Tracker.Name(),
		"succeeded", succeeded,
		"skipped", skipped,
		"failed", failed)

	return report, nil
}

// resolveBoard finds the board from the first task id. All tasks are assumed to live on it.
func resolveBoard(ctx context.Context, tracker ticket.Tracker, taskIDs []string) (*ticket.Board, error) {
	first := taskIDs[0]
	logging.Info("resolving board from task", "task", first)

	board, err := tracker.ResolveBoard(ctx, first)
	if err != nil {
		logTrackerError("failed to get item info", first, err)
		return nil, fmt.Errorf("%w from task %s: %w", ErrBoardResolution, first, err)
	}

	logging.Info("found board", "board_id", board.ID, "board", board.Name)
	return board, nil
}

func plan(taskIDs []string, columnID string, record Record) []PlannedUpdate {
	out := make([]PlannedUpdate, 0, len(taskIDs))
	for _, id := range taskIDs {
		out = append(out, PlannedUpdate{
			TaskID:      id,
			ColumnID:    columnID,
			ColumnValue: ColumnValue(record.Environment, record.Version),
			Comment:     CommentBody(record.Version, record.Environment, record.Description),
		})
	}
	return out
}

func preview(s string, n int) string {
	if s == "" {
		return "No body"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
