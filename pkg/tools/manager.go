package tools

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/multierr"

	"github.com/comigor/azoai-go/internal/logger"
)

// Manager manages the available tools
type Manager struct {
	tools   map[string]Tool
	closers []io.Closer
}

// NewManager creates a new Manager
func NewManager() *Manager {
	return &Manager{
		tools: make(map[string]Tool),
	}
}

// Register registers a new tool. The first tool registered under a name
// wins; later ones are skipped.
func (m *Manager) Register(tool Tool) bool {
	if _, exists := m.tools[tool.Name()]; exists {
		logger.L.Warn("Tool already registered. Skipping.", "tool", tool.Name())
		return false
	}
	m.tools[tool.Name()] = tool
	return true
}

// Get retrieves a tool by name
func (m *Manager) Get(name string) (Tool, error) {
	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all registered tools, sorted by name
func (m *Manager) List() []Tool {
	ts := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name() < ts[j].Name() })
	return ts
}

// Definitions returns the function tool definitions to attach to an assistant.
func (m *Manager) Definitions() []openai.AssistantTool {
	defs := make([]openai.AssistantTool, 0, len(m.tools))
	for _, t := range m.List() {
		params := t.Parameters()
		if len(params) == 0 {
			params = emptySchema
		}
		defs = append(defs, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  params,
			},
		})
	}
	return defs
}

// Execute runs one tool call requested by a run. Failures are reported to
// the model as the tool output instead of aborting the run.
func (m *Manager) Execute(ctx context.Context, call openai.ToolCall) openai.ToolOutput {
	out := openai.ToolOutput{ToolCallID: call.ID}

	tool, err := m.Get(call.Function.Name)
	if err != nil {
		logger.L.Warn("Run requested an unknown tool", "tool", call.Function.Name)
		out.Output = "Error: " + err.Error()
		return out
	}

	logger.L.Debug("Executing tool", "tool", call.Function.Name, "arguments", call.Function.Arguments)
	result, err := tool.Run(ctx, call.Function.Arguments)
	if err != nil {
		logger.L.Warn("Tool execution failed", "tool", call.Function.Name, "error", err)
		out.Output = "Error: " + err.Error()
		return out
	}
	out.Output = result
	return out
}

// ExecuteAll runs the calls in order.
func (m *Manager) ExecuteAll(ctx context.Context, calls []openai.ToolCall) []openai.ToolOutput {
	outs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		outs = append(outs, m.Execute(ctx, call))
	}
	return outs
}

// Close releases the connections behind registered tools.
func (m *Manager) Close() error {
	var err error
	for _, c := range m.closers {
		err = multierr.Append(err, c.Close())
	}
	m.closers = nil
	return err
}
