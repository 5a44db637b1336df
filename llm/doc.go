// Package llm is the language-model collaborator used by AI-call nodes.
//
// The Adapter speaks to any provider through a Dialect, similar to how
// database/sql works with driver packages. Dialects for OpenAI-compatible
// servers and Ollama live in the openai and ollama sub-packages and register
// themselves on import.
//
//	import (
//	    "github.com/kbukum/flowengine/llm"
//	    _ "github.com/kbukum/flowengine/llm/ollama"
//	)
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "ollama",
//	    BaseURL: "http://localhost:11434",
//	    Model:   "qwen2.5:1.5b",
//	})
//	text, err := llm.CompleteText(ctx, adapter, "You are terse.", "Hello!")
package llm
