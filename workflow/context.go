package workflow

import "fmt"

// ExecutionContext is the per-run scratch state shared by the nodes of one
// execution. Variables maps node ids to outputs and only grows; the engine
// is its only writer.
type ExecutionContext struct {
	executionID string
	workflowID  string
	input       map[string]any
	variables   map[string]any
	upstream    any
}

// NewExecutionContext creates an empty context for one run.
func NewExecutionContext(executionID, workflowID string, input map[string]any) *ExecutionContext {
	if input == nil {
		input = map[string]any{}
	}
	return &ExecutionContext{
		executionID: executionID,
		workflowID:  workflowID,
		input:       input,
		variables:   make(map[string]any),
	}
}

// PreviewContext builds a context with prefilled variables and upstream
// output, for running a single node outside the engine.
func PreviewContext(input map[string]any, upstream any, variables map[string]any) *ExecutionContext {
	ec := NewExecutionContext("", "", input)
	for id, v := range variables {
		ec.variables[id] = v
	}
	ec.upstream = upstream
	return ec
}

// ExecutionID returns the id of the running execution.
func (c *ExecutionContext) ExecutionID() string { return c.executionID }

// WorkflowID returns the id of the workflow being run.
func (c *ExecutionContext) WorkflowID() string { return c.workflowID }

// Input returns the caller-supplied payload.
func (c *ExecutionContext) Input() map[string]any { return c.input }

// Upstream returns the output of the current node's first predecessor, or
// nil if it has none.
func (c *ExecutionContext) Upstream() any { return c.upstream }

// Variable returns the output of a node that already ran.
func (c *ExecutionContext) Variable(nodeID string) (any, bool) {
	v, ok := c.variables[nodeID]
	return v, ok
}

// Variables returns a copy of the outputs recorded so far.
func (c *ExecutionContext) Variables() map[string]any {
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// Substitute resolves {{nodeId}} and {{nodeId.path}} references in text
// against the outputs recorded so far.
func (c *ExecutionContext) Substitute(text string) string {
	return Substitute(text, c.variables)
}

func (c *ExecutionContext) setUpstream(v any) { c.upstream = v }

func (c *ExecutionContext) setOutput(nodeID string, v any) error {
	if _, exists := c.variables[nodeID]; exists {
		return fmt.Errorf("output for node %q already recorded", nodeID)
	}
	c.variables[nodeID] = v
	return nil
}
