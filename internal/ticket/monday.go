package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/drewfead/releasebridge/internal/logging"
)

// ErrNotFound is returned when the tracker has no item with the requested id.
var ErrNotFound = errors.New("item not found")

const (
	boardQuery = `query ($ids: [ID!]) {
  items(ids: $ids) {
    id
    name
    board {
      id
      name
    }
  }
}`

	itemByColumnQuery = `query ($boardId: ID!, $columnId: String!, $value: String!) {
  items_page_by_column_values(limit: 1, board_id: $boardId, columns: [{column_id: $columnId, column_values: [$value]}]) {
    items {
      id
      name
      column_values {
        id
        text
      }
    }
  }
}`

	changeColumnMutation = `mutation ($itemId: ID!, $columnId: String!, $value: JSON!) {
  change_column_value(item_id: $itemId, column_id: $columnId, value: $value) {
    id
  }
}`

	createUpdateMutation = `mutation ($itemId: ID!, $body: String!) {
  create_update(item_id: $itemId, body: $body) {
    id
  }
}`
)

// Item names are matched on the "name" column, then on "title" if that request fails outright.
var nameColumns = []string{"name", "title"}

// MondayClient implements Tracker for monday.com's GraphQL API.
type MondayClient struct {
	apiURL     string
	apiToken   string
	apiVersion string
	httpClient *http.Client
}

// NewMondayClient creates a monday.com client. apiVersion may be empty.
func NewMondayClient(apiURL, apiToken, apiVersion string) *MondayClient {
	return &MondayClient{
		apiURL:     apiURL,
		apiToken:   apiToken,
		apiVersion: apiVersion,
		httpClient: http.DefaultClient,
	}
}

// Name returns "monday.com".
func (c *MondayClient) Name() string {
	return "monday.com"
}

// ResolveBoard returns the board that owns itemID.
func (c *MondayClient) ResolveBoard(ctx context.Context, itemID string) (*Board, error) {
	var data struct {
		Items []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Board *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"board"`
		} `json:"items"`
	}

	vars := map[string]any{"ids": []string{itemID}}
	if err := c.do(ctx, "resolve board", boardQuery, vars, &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 || data.Items[0].Board == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}

	b := data.Items[0].Board
	return &Board{ID: b.ID, Name: b.Name}, nil
}

// FindItem returns the first item on boardID whose name equals taskID.
func (c *MondayClient) FindItem(ctx context.Context, boardID, taskID string) (*Item, error) {
	var (
		item *Item
		err  error
	)
	for i, column := range nameColumns {
		item, err = c.findByColumn(ctx, boardID, column, taskID)

		var transportErr *TransportError
		if err == nil || !errors.As(err, &transportErr) || i == len(nameColumns)-1 {
			break
		}
		logging.Warn("item lookup failed, trying alternative column",
			"task", taskID, "column", nameColumns[i+1], "error", err)
	}
	return item, err
}

func (c *MondayClient) findByColumn(ctx context.Context, boardID, columnID, value string) (*Item, error) {
	var data struct {
		Page *struct {
			Items []struct {
				ID           string `json:"id"`
				Name         string `json:"name"`
				ColumnValues []struct {
					ID   string `json:"id"`
					Text string `json:"text"`
				} `json:"column_values"`
			} `json:"items"`
		} `json:"items_page_by_column_values"`
	}

	vars := map[string]any{"boardId": boardID, "columnId": columnID, "value": value}
	if err := c.do(ctx, "find item", itemByColumnQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Page == nil || len(data.Page.Items) == 0 {
		return nil, nil
	}

	raw := data.Page.Items[0]
	item := &Item{ID: raw.ID, Name: raw.Name, BoardID: boardID, Columns: make(map[string]string)}
	for _, cv := range raw.ColumnValues {
		item.Columns[cv.ID] = cv.Text
	}
	return item, nil
}

// SetColumnValue writes value into columnID of itemID.
func (c *MondayClient) SetColumnValue(ctx context.Context, itemID, columnID, value string) error {
	vars := map[string]any{"itemId": itemID, "columnId": columnID, "value": value}
	return c.do(ctx, "change column value", changeColumnMutation, vars, nil)
}

// CreateUpdate posts body as an update on itemID.
func (c *MondayClient) CreateUpdate(ctx context.Context, itemID, body string) error {
	vars := map[string]any{"itemId": itemID, "body": body}
	return c.do(ctx, "create update", createUpdateMutation, vars, nil)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// do posts one GraphQL operation. out may be nil for mutations whose payload is ignored.
func (c *MondayClient) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("API-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Operation: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Operation: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var gr graphQLResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return &TransportError{Operation: op, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	if len(gr.Errors) > 0 {
		return &APIError{Operation: op, Errors: gr.Errors}
	}

	logging.Debug("tracker response", "operation", op, "data", string(gr.Data))

	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("%s: failed to parse response data: %w", op, err)
	}
	return nil
}
