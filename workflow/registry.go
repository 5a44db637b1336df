package workflow

import (
	"sort"
	"sync"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/logger"
)

// Registry maps node type keys to constructors. It is built explicitly and
// handed to the engine; callers seed it with the built-in types.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	log          *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		constructors: make(map[string]Constructor),
		log:          log.WithComponent("workflow.registry"),
	}
}

// Register adds or replaces the constructor for nodeType. Replacing an
// existing entry is logged, not rejected.
func (r *Registry) Register(nodeType string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[nodeType]; exists {
		r.log.Warn("Overriding node type", logger.Fields(logger.FieldNodeType, nodeType))
	}
	r.constructors[nodeType] = c
}

// Has reports whether nodeType is registered.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[nodeType]
	return ok
}

// Types returns the registered type keys, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create instantiates node. It returns nil, nil and logs when the type is
// unknown; a constructor error is returned as is.
func (r *Registry) Create(node dag.Node) (Node, error) {
	r.mu.RLock()
	c, ok := r.constructors[node.Type]
	r.mu.RUnlock()

	if !ok {
		r.log.Warn("Unknown node type", logger.Fields(
			logger.FieldNodeID, node.ID,
			logger.FieldNodeType, node.Type,
		))
		return nil, nil
	}
	return c(node)
}
