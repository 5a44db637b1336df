package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/workflow"
)

// ClassifierConfig configures a classifier node. An empty Input classifies
// the upstream output.
type ClassifierConfig struct {
	Input        string   `json:"input,omitempty"`
	Categories   []string `json:"categories" validate:"min=2,unique,dive,required"`
	Instructions string   `json:"instructions,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Classifier asks a language model to pick one of a fixed set of categories.
type Classifier struct {
	cfg      ClassifierConfig
	provider llm.Provider
}

type classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// NewClassifier returns a constructor for classifier nodes backed by provider.
func NewClassifier(provider llm.Provider) workflow.Constructor {
	return func(node dag.Node) (workflow.Node, error) {
		n := &Classifier{provider: provider}
		if err := decodeConfig(node, &n.cfg); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// Validate implements workflow.Node.
func (n *Classifier) Validate() []string {
	out := problems(n.cfg)
	if n.provider == nil {
		out = append(out, "provider: no language model is configured")
	}
	return out
}

// Execute implements workflow.Node. The chosen category is the node's
// "output"; a reply outside the category list fails the node.
func (n *Classifier) Execute(ctx context.Context, ec *workflow.ExecutionContext, _ string, cfg workflow.NodeTypeConfig) (*workflow.NodeResult, error) {
	system := "Classify the user's text into exactly one of these categories: " +
		strings.Join(n.cfg.Categories, ", ") +
		`. Reply as {"category": "...", "confidence": 0.0-1.0, "reasoning": "..."}.`
	if n.cfg.Instructions != "" {
		system += "\n\n" + ec.Substitute(n.cfg.Instructions)
	}

	var out classification
	resp, err := llm.CompleteStructured(ctx, n.provider, llm.CompletionRequest{
		Model:        n.cfg.Model,
		SystemPrompt: system,
		Messages:     []llm.Message{llm.UserMessage(textOf(ec, n.cfg.Input))},
	}, &out)
	if err != nil {
		return nil, err
	}

	category, ok := n.match(out.Category)
	if !ok {
		return nil, fmt.Errorf("classifier: %q is not one of %v", out.Category, n.cfg.Categories)
	}
	return charge(map[string]any{
		"output":     category,
		"confidence": out.Confidence,
		"reasoning":  out.Reasoning,
		"model":      resp.Model,
	}, cfg), nil
}

func (n *Classifier) match(got string) (string, bool) {
	got = strings.TrimSpace(got)
	for _, c := range n.cfg.Categories {
		if strings.EqualFold(c, got) {
			return c, true
		}
	}
	return "", false
}
