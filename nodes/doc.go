// Package nodes provides the built-in workflow node types: start, end, llm,
// knowledge and classifier.
//
// Each constructor decodes the node's config into a typed struct, checks it
// with struct tags and reports problems from Validate so the engine can
// reject the workflow before any credit is reserved. Every built-in charges
// the price configured for its type once per execution.
//
//	reg := workflow.NewRegistry(log)
//	nodes.RegisterBuiltins(reg, nodes.Dependencies{LLM: provider, Knowledge: searcher})
package nodes
