package dag

import (
	"fmt"

	"github.com/kbukum/flowengine/errors"
)

// Rules parameterise Validate.
type Rules struct {
	// StartType is the type exactly one node must have.
	StartType string
	// SinglePredecessor lists types that need exactly one incoming edge.
	SinglePredecessor []string
}

// DefaultRules requires one "start" node and a single input for "llm" nodes.
func DefaultRules() Rules {
	return Rules{
		StartType:         "start",
		SinglePredecessor: []string{"llm"},
	}
}

// Validate checks the shape of g against rules, in order: the graph has
// nodes, exactly one node is of the start type, and every node of a
// single-predecessor type has exactly one incoming edge. It does not look at
// edge endpoints or cycles; Sort reports those.
func Validate(g *Graph, rules Rules) error {
	if g == nil || len(g.Nodes) == 0 {
		return errors.InvalidGraph("Workflow has no nodes.")
	}

	starts := 0
	for _, n := range g.Nodes {
		if n.Type == rules.StartType {
			starts++
		}
	}
	if starts != 1 {
		return errors.InvalidGraph(fmt.Sprintf("Workflow must have exactly one %s node, found %d.", rules.StartType, starts)).
			WithDetail("start_nodes", starts)
	}

	single := make(map[string]bool, len(rules.SinglePredecessor))
	for _, t := range rules.SinglePredecessor {
		single[t] = true
	}
	in := Incoming(g)
	for _, n := range g.Nodes {
		if !single[n.Type] {
			continue
		}
		if got := len(in[n.ID]); got != 1 {
			return errors.InvalidGraph(fmt.Sprintf("Node %q of type %s must have exactly one input, found %d.", n.ID, n.Type, got)).
				WithDetails(map[string]any{"node_id": n.ID, "inputs": got})
		}
	}
	return nil
}
