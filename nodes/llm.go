package nodes

import (
	"context"
	"fmt"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/workflow"
)

// LLMConfig configures an llm node. Prompt and SystemPrompt are templates.
type LLMConfig struct {
	Prompt       string  `json:"prompt" validate:"required"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens    int     `json:"max_tokens,omitempty" validate:"gte=0,lte=32000"`
	JSON         bool    `json:"json,omitempty"`
}

// LLM sends a rendered prompt to a language model.
type LLM struct {
	cfg      LLMConfig
	provider llm.Provider
}

// NewLLM returns a constructor for llm nodes backed by provider.
func NewLLM(provider llm.Provider) workflow.Constructor {
	return func(node dag.Node) (workflow.Node, error) {
		n := &LLM{provider: provider}
		if err := decodeConfig(node, &n.cfg); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// Validate implements workflow.Node.
func (n *LLM) Validate() []string {
	out := problems(n.cfg)
	if n.provider == nil {
		out = append(out, "provider: no language model is configured")
	}
	return out
}

// Execute implements workflow.Node. The output carries content, model and
// token usage.
func (n *LLM) Execute(ctx context.Context, ec *workflow.ExecutionContext, _ string, cfg workflow.NodeTypeConfig) (*workflow.NodeResult, error) {
	resp, err := n.provider.Complete(ctx, llm.CompletionRequest{
		Model:        n.cfg.Model,
		SystemPrompt: ec.Substitute(n.cfg.SystemPrompt),
		Messages:     []llm.Message{llm.UserMessage(ec.Substitute(n.cfg.Prompt))},
		Temperature:  n.cfg.Temperature,
		MaxTokens:    n.cfg.MaxTokens,
		JSON:         n.cfg.JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.provider.Name(), err)
	}
	return charge(map[string]any{
		"content": resp.Content,
		"model":   resp.Model,
		"usage": map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}, cfg), nil
}
