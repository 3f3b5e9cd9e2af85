package tools

import (
	"context"
	"encoding/json"
)

// Tool is the interface for all function tools an assistant may call
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object.
	Parameters() json.RawMessage
	// Run executes the tool with the JSON encoded arguments.
	Run(ctx context.Context, args string) (string, error)
}

var emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)
