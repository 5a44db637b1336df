package dag

// Node is a typed unit of work in a workflow graph. Config is opaque to this
// package and interpreted by the node implementation registered for Type.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Edge is a dependency: Target may only start after Source has completed.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Graph declares nodes and edges. Declaration order is significant: it
// breaks ties in Sort and decides which predecessor is "first".
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Types returns the distinct node types in first-seen order.
func (g *Graph) Types() []string {
	seen := make(map[string]bool, len(g.Nodes))
	types := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if !seen[n.Type] {
			seen[n.Type] = true
			types = append(types, n.Type)
		}
	}
	return types
}

// Incoming maps each target id to its source ids in edge declaration order.
func Incoming(g *Graph) map[string][]string {
	in := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		in[e.Target] = append(in[e.Target], e.Source)
	}
	return in
}

// FirstPredecessor returns the source of the first declared edge into id.
func FirstPredecessor(g *Graph, id string) (string, bool) {
	for _, e := range g.Edges {
		if e.Target == id {
			return e.Source, true
		}
	}
	return "", false
}
