package dag

import (
	"fmt"

	"github.com/kbukum/flowengine/errors"
)

// Sort returns the node ids of g in topological order using Kahn's
// algorithm. Ready nodes run in the order they became ready: seeds in node
// declaration order, then neighbours in edge declaration order, so a fixed
// graph always yields the same order.
//
// Edges naming an undeclared node fail with DANGLING_REFERENCE before any
// ordering starts. A graph where every node has a predecessor fails with
// NO_START_NODE, and a partial order fails with CYCLE_DETECTED.
func Sort(g *Graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := inDegree[n.ID]; dup {
			return nil, errors.InvalidGraph(fmt.Sprintf("Node id %q is declared more than once.", n.ID))
		}
		inDegree[n.ID] = 0
	}

	dependents := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := inDegree[e.Source]; !ok {
			return nil, errors.DanglingReference(e.Source)
		}
		if _, ok := inDegree[e.Target]; !ok {
			return nil, errors.DanglingReference(e.Target)
		}
		inDegree[e.Target]++
		dependents[e.Source] = append(dependents[e.Source], e.Target)
	}

	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 && len(g.Nodes) > 0 {
		return nil, errors.NoStartNode()
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, errors.CycleDetected(len(order), len(g.Nodes))
	}
	return order, nil
}
