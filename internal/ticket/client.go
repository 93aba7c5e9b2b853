// Package ticket extracts task references from pull requests and updates them in a task tracker.
package ticket

import (
	"context"
	"fmt"
	"strings"
)

// Board is a named collection of tracked items.
type Board struct {
	ID   string
	Name string
}

// Item is a tracked task on a board.
type Item struct {
	ID      string
	Name    string
	BoardID string
	Columns map[string]string // column id -> display text
}

// Tracker defines the task tracker operations needed to record a deployment.
type Tracker interface {
	// ResolveBoard returns the board owning itemID.
	ResolveBoard(ctx context.Context, itemID string) (*Board, error)

	// FindItem looks up the item named taskID on a board.
	// Returns nil, nil when no item matches.
	FindItem(ctx context.Context, boardID, taskID string) (*Item, error)

	// SetColumnValue writes value into a column of an item.
	SetColumnValue(ctx context.Context, itemID, columnID, value string) error

	// CreateUpdate posts a comment on an item.
	CreateUpdate(ctx context.Context, itemID, body string) error

	// Name returns the name of the tracker (e.g., "monday.com").
	Name() string
}

// GraphQLError is one entry of a GraphQL `errors` list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// APIError reports a response that carried an `errors` list.
type APIError struct {
	Operation string
	Errors    []GraphQLError
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("%s: tracker API errors: %s", e.Operation, strings.Join(msgs, "; "))
}

// TransportError reports a failed request: network failure or a non-2xx status.
// Body holds the response body when one was received.
type TransportError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
