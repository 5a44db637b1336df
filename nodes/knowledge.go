package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/workflow"
)

// Document is one knowledge search hit.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// KnowledgeSearcher finds documents for a query within a user's knowledge
// base.
type KnowledgeSearcher interface {
	Search(ctx context.Context, userID, collection, query string, limit int) ([]Document, error)
}

// KnowledgeConfig configures a knowledge node. An empty Query searches for
// the upstream output.
type KnowledgeConfig struct {
	Collection string `json:"collection,omitempty"`
	Query      string `json:"query,omitempty"`
	TopK       int    `json:"top_k,omitempty" validate:"gte=0,lte=50"`
}

// Knowledge retrieves documents relevant to a rendered query.
type Knowledge struct {
	cfg      KnowledgeConfig
	searcher KnowledgeSearcher
}

// NewKnowledge returns a constructor for knowledge nodes backed by searcher.
func NewKnowledge(searcher KnowledgeSearcher) workflow.Constructor {
	return func(node dag.Node) (workflow.Node, error) {
		n := &Knowledge{searcher: searcher}
		if err := decodeConfig(node, &n.cfg); err != nil {
			return nil, err
		}
		if n.cfg.TopK == 0 {
			n.cfg.TopK = 5
		}
		return n, nil
	}
}

// Validate implements workflow.Node.
func (n *Knowledge) Validate() []string {
	out := problems(n.cfg)
	if n.searcher == nil {
		out = append(out, "searcher: no knowledge base is configured")
	}
	return out
}

// Execute implements workflow.Node. The output lists the hits and joins
// their content into context for a downstream prompt.
func (n *Knowledge) Execute(ctx context.Context, ec *workflow.ExecutionContext, userID string, cfg workflow.NodeTypeConfig) (*workflow.NodeResult, error) {
	query := strings.TrimSpace(textOf(ec, n.cfg.Query))
	if query == "" {
		return nil, fmt.Errorf("knowledge query is empty")
	}
	docs, err := n.searcher.Search(ctx, userID, n.cfg.Collection, query, n.cfg.TopK)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return charge(map[string]any{
		"query":     query,
		"documents": docs,
		"count":     len(docs),
		"context":   strings.Join(parts, "\n\n"),
	}, cfg), nil
}
