package workflow

import (
	"context"

	"github.com/kbukum/flowengine/dag"
)

// Node is a live instance of a graph node.
//
// Validate returns human-readable problems with the node's configuration;
// an empty result means the node can run. Execute must not write to the
// execution context's variables: the engine records the output once
// Execute returns.
type Node interface {
	Validate() []string
	Execute(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error)
}

// NodeResult is what a node produced and what it cost.
type NodeResult struct {
	Output      any
	CreditsUsed int64
}

// Constructor builds a Node from its graph declaration. An error means the
// declaration cannot be turned into a node at all, e.g. malformed config.
type Constructor func(node dag.Node) (Node, error)

// NodeFunc adapts a function to Node. It never reports config problems.
type NodeFunc func(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error)

// Validate returns nil.
func (f NodeFunc) Validate() []string { return nil }

// Execute calls f.
func (f NodeFunc) Execute(ctx context.Context, ec *ExecutionContext, userID string, cfg NodeTypeConfig) (*NodeResult, error) {
	return f(ctx, ec, userID, cfg)
}
