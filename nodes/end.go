package nodes

import (
	"context"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/workflow"
)

// EndConfig configures an end node.
type EndConfig struct {
	// Output, when set, is a template rendered as the workflow result.
	Output string `json:"output,omitempty"`
}

// End passes its upstream output through, or renders Output.
type End struct {
	cfg EndConfig
}

// NewEnd builds an end node.
func NewEnd(node dag.Node) (workflow.Node, error) {
	n := &End{}
	if err := decodeConfig(node, &n.cfg); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate implements workflow.Node.
func (n *End) Validate() []string { return nil }

// Execute implements workflow.Node.
func (n *End) Execute(_ context.Context, ec *workflow.ExecutionContext, _ string, cfg workflow.NodeTypeConfig) (*workflow.NodeResult, error) {
	if n.cfg.Output != "" {
		return charge(map[string]any{"output": ec.Substitute(n.cfg.Output)}, cfg), nil
	}
	return charge(ec.Upstream(), cfg), nil
}
