package tools

import (
	"context"

	"manbo/pkg/errors"
)

// Tool represents a callable data-retrieval capability exposed to analyst
// agents. Execute returns human-readable text that is appended to the
// agent's conversation.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() map[string]interface{}
	// Execute performs the tool's action using the provided arguments.
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	handler     HandlerFunc
}

// New creates a new function-backed Tool.
func New(name, description string, parameters map[string]interface{}, handler HandlerFunc) Tool {
	if parameters == nil {
		parameters = ObjectSchema(nil, nil)
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]interface{} { return t.parameters }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.handler == nil {
		return "", errors.New("tool handler is not defined")
	}

	return t.handler(ctx, args)
}

// ObjectSchema builds a minimal JSON schema for tool arguments.
func ObjectSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// StringProperty describes a string argument in a tool schema.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// IntProperty describes an integer argument in a tool schema.
func IntProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}
