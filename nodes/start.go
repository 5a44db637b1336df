package nodes

import (
	"context"
	"fmt"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/workflow"
)

// Built-in node type keys.
const (
	TypeStart      = "start"
	TypeEnd        = "end"
	TypeLLM        = "llm"
	TypeKnowledge  = "knowledge"
	TypeClassifier = "classifier"
)

// StartConfig configures a start node.
type StartConfig struct {
	// Required lists input keys the caller must supply.
	Required []string `json:"required,omitempty" validate:"dive,required"`
}

// Start emits the caller's input unchanged.
type Start struct {
	cfg StartConfig
}

// NewStart builds a start node.
func NewStart(node dag.Node) (workflow.Node, error) {
	n := &Start{}
	if err := decodeConfig(node, &n.cfg); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate implements workflow.Node.
func (n *Start) Validate() []string { return problems(n.cfg) }

// Execute implements workflow.Node.
func (n *Start) Execute(_ context.Context, ec *workflow.ExecutionContext, _ string, cfg workflow.NodeTypeConfig) (*workflow.NodeResult, error) {
	input := ec.Input()
	for _, key := range n.cfg.Required {
		if _, ok := input[key]; !ok {
			return nil, fmt.Errorf("input %q is required", key)
		}
	}
	return charge(input, cfg), nil
}
