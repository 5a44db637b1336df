package nodes

import (
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/workflow"
)

// Dependencies are the collaborators of the built-in nodes. Nil members
// leave their node types registered but failing validation.
type Dependencies struct {
	LLM       llm.Provider
	Knowledge KnowledgeSearcher
}

// RegisterBuiltins registers every built-in node type with r.
func RegisterBuiltins(r *workflow.Registry, deps Dependencies) {
	r.Register(TypeStart, NewStart)
	r.Register(TypeEnd, NewEnd)
	r.Register(TypeLLM, NewLLM(deps.LLM))
	r.Register(TypeKnowledge, NewKnowledge(deps.Knowledge))
	r.Register(TypeClassifier, NewClassifier(deps.LLM))
}
