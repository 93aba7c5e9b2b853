package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/drewfead/releasebridge/internal/logging"
	"github.com/drewfead/releasebridge/internal/ticket"
)

// Status is the outcome of updating one task.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Record is the deployment information written to each task.
type Record struct {
	Version     string
	Environment string
	Description string
}

// ColumnValue is environment immediately followed by version, e.g. "prod1.2.3".
func ColumnValue(environment, version string) string {
	return environment + version
}

// CommentBody renders the audit comment posted on each task.
func CommentBody(version, environment, description string) string {
	return fmt.Sprintf("Version: %s\nEnvironment: %s\nDescription: %s", version, environment, description)
}

// TaskResult records what happened to one task id.
type TaskResult struct {
	TaskID     string
	ItemID     string
	Status     Status
	Reason     string // why a task was skipped
	ColumnErr  error
	CommentErr error
	LookupErr  error
}

// Updater writes a deployment record to tasks on one board.
type Updater struct {
	tracker  ticket.Tracker
	columnID string
	record   Record
}

// NewUpdater creates an updater that sets columnID and comments with record.
func NewUpdater(tracker ticket.Tracker, columnID string, record Record) *Updater {
	return &Updater{tracker: tracker, columnID: columnID, record: record}
}

// Update processes every task id in order. A failure on one task never stops the others.
func (u *Updater) Update(ctx context.Context, boardID string, taskIDs []string) []TaskResult {
	results := make([]TaskResult, 0, len(taskIDs))
	for _, id := range taskIDs {
		results = append(results, u.updateTask(ctx, boardID, id))
	}
	return results
}

func (u *Updater) updateTask(ctx context.Context, boardID, taskID string) TaskResult {
	res := TaskResult{TaskID: taskID}
	log := logging.With("task", taskID, "board", boardID)

	log.Info("looking for task")
	item, err := u.tracker.FindItem(ctx, boardID, taskID)
	if err != nil {
		res.LookupErr = err
		var apiErr *ticket.APIError
		if errors.As(err, &apiErr) {
			logTrackerError("task lookup returned errors, skipping", taskID, err)
			res.Status = StatusSkipped
			res.Reason = "lookup errors"
			return res
		}
		logTrackerError("failed to look up task", taskID, err)
		res.Status = StatusFailed
		return res
	}
	if item == nil {
		log.Warn("task not found on board, skipping")
		res.Status = StatusSkipped
		res.Reason = "not found"
		return res
	}
	res.ItemID = item.ID

	value := ColumnValue(u.record.Environment, u.record.Version)
	log.Info("updating column", "item", item.ID, "column", u.columnID, "value", value)
	if err := u.tracker.SetColumnValue(ctx, item.ID, u.columnID, value); err != nil {
		res.ColumnErr = err
		logTrackerError("failed to update column", taskID, err)
	} else {
		log.Info("updated column", "item", item.ID)
	}

	// The comment is attempted even when the column update failed.
	body := CommentBody(u.record.Version, u.record.Environment, u.record.Description)
	if err := u.tracker.CreateUpdate(ctx, item.ID, body); err != nil {
		res.CommentErr = err
		logTrackerError("failed to add comment", taskID, err)
	} else {
		log.Info("added comment", "item", item.ID)
	}

	if res.ColumnErr != nil || res.CommentErr != nil {
		res.Status = StatusFailed
	} else {
		res.Status = StatusSuccess
		log.Info("updated task", "item", item.ID)
	}
	return res
}

// logTrackerError logs err with whatever detail the tracker returned.
func logTrackerError(msg, taskID string, err error) {
	var apiErr *ticket.APIError
	var transportErr *ticket.TransportError
	switch {
	case errors.As(err, &apiErr):
		for _, ge := range apiErr.Errors {
			args := []any{"task", taskID, "operation", apiErr.Operation, "message", ge.Message}
			if len(ge.Extensions) > 0 {
				args = append(args, "extensions", ge.Extensions)
			}
			logging.Error(msg, args...)
		}
	case errors.As(err, &transportErr) && transportErr.Body != "":
		logging.Error(msg, "task", taskID, "error", err, "status", transportErr.StatusCode, "response", transportErr.Body)
	default:
		logging.Error(msg, "task", taskID, "error", err)
	}
}
