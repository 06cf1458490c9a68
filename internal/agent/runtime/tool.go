package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/todoagent/internal/agent/core"
	"github.com/mohammad-safakhou/todoagent/internal/todos"
)

// Tool is a locally-defined callback the remote model may invoke
// mid-conversation. Execute receives the raw JSON arguments the model
// produced and returns the text handed back to the model as the tool result.
type Tool struct {
	Definition core.ToolDefinition
	Execute    func(ctx context.Context, args json.RawMessage) (string, error)
}

const lookupToolName = "get_todo_by_id"

var lookupToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"todo_id": {
			"type": "integer",
			"description": "The ID of the todo item to fetch (1-200)"
		}
	},
	"required": ["todo_id"]
}`)

// NewLookupTool builds the single tool exposed to the model: fetch one todo
// by ID from the upstream API. A missing todo is reported to the model as a
// normal result string, not an error.
func NewLookupTool(source *todos.Client) Tool {
	return Tool{
		Definition: core.ToolDefinition{
			Name:        lookupToolName,
			Description: "Fetch a specific todo item by its ID from the todo API. Use this when a user asks for details about a specific todo by ID. Valid IDs are 1-200.",
			Parameters:  lookupToolSchema,
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				TodoID int `json:"todo_id"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", lookupToolName, err)
			}

			item, err := source.Get(ctx, params.TodoID)
			if errors.Is(err, todos.ErrNotFound) {
				return fmt.Sprintf("Todo with ID %d not found. Valid IDs are 1-200.", params.TodoID), nil
			}
			if err != nil {
				return "", err
			}

			status := "Not completed ○"
			if item.Completed {
				status = "Completed ✓"
			}
			return fmt.Sprintf("Todo Details:\n  ID: %d\n  User ID: %d\n  Title: %s\n  Status: %s",
				item.ID, item.UserID, item.Title, status), nil
		},
	}
}
