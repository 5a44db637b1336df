package nodes

import (
	"context"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/workflow"
)

// --- test doubles ---

type fakeProvider struct {
	reply string
	err   error
	last  llm.CompletionRequest
}

func (p *fakeProvider) Name() string                     { return "fake" }
func (p *fakeProvider) IsAvailable(context.Context) bool { return true }

func (p *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{
		Content: p.reply,
		Model:   "fake-1",
		Usage:   llm.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}, nil
}

type fakeSearcher struct {
	docs      []Document
	lastQuery string
	lastLimit int
}

func (s *fakeSearcher) Search(_ context.Context, _, _, query string, limit int) ([]Document, error) {
	s.lastQuery, s.lastLimit = query, limit
	return s.docs, nil
}

var priced = workflow.NodeTypeConfig{CreditsPerExecution: 7, IsActive: true}

func build(t *testing.T, c workflow.Constructor, config map[string]any) workflow.Node {
	t.Helper()
	n, err := c(dag.Node{ID: "n", Type: "x", Config: config})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	return n
}

// --- start / end ---

func TestStart_EmitsInput(t *testing.T) {
	n := build(t, NewStart, nil)
	ec := workflow.NewExecutionContext("e", "w", map[string]any{"q": "hi"})

	res, err := n.Execute(context.Background(), ec, "u", priced)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !reflect.DeepEqual(res.Output, map[string]any{"q": "hi"}) || res.CreditsUsed != 7 {
		t.Errorf("result = %+v", res)
	}
}

func TestStart_RequiredInput(t *testing.T) {
	n := build(t, NewStart, map[string]any{"required": []any{"q"}})
	if _, err := n.Execute(context.Background(), workflow.NewExecutionContext("", "", nil), "u", priced); err == nil {
		t.Fatal("expected missing input error")
	}
}

func TestEnd(t *testing.T) {
	ec := workflow.PreviewContext(nil, "upstream", map[string]any{"a": map[string]any{"content": "x"}})

	res, _ := build(t, NewEnd, nil).Execute(context.Background(), ec, "u", workflow.NodeTypeConfig{})
	if res.Output != "upstream" {
		t.Errorf("pass-through = %v", res.Output)
	}

	res, _ = build(t, NewEnd, map[string]any{"output": "final: {{a.content}}"}).Execute(context.Background(), ec, "u", workflow.NodeTypeConfig{})
	if !reflect.DeepEqual(res.Output, map[string]any{"output": "final: x"}) {
		t.Errorf("template = %v", res.Output)
	}
}

// --- llm ---

func TestLLM_Execute(t *testing.T) {
	p := &fakeProvider{reply: "an answer"}
	n := build(t, NewLLM(p), map[string]any{
		"prompt":        "Answer: {{start.q}}",
		"system_prompt": "Be brief.",
		"max_tokens":    100,
	})
	if problems := n.Validate(); len(problems) != 0 {
		t.Fatalf("Validate = %v", problems)
	}
	ec := workflow.PreviewContext(nil, nil, map[string]any{"start": map[string]any{"q": "why"}})

	res, err := n.Execute(context.Background(), ec, "u", priced)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p.last.Messages[0].Content != "Answer: why" || p.last.SystemPrompt != "Be brief." || p.last.MaxTokens != 100 {
		t.Errorf("request = %+v", p.last)
	}
	out := res.Output.(map[string]any)
	if out["content"] != "an answer" || out["model"] != "fake-1" || res.CreditsUsed != 7 {
		t.Errorf("result = %+v", res)
	}
	if got := workflow.NormalizeOutput(res.Output); got["type"] != workflow.OutputLLMResponse {
		t.Errorf("normalized = %v", got)
	}
}

func TestLLM_Validate(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		config   map[string]any
		want     []string
	}{
		{"missing prompt", &fakeProvider{}, nil, []string{"prompt"}},
		{"temperature too high", &fakeProvider{}, map[string]any{"prompt": "p", "temperature": 3}, []string{"temperature"}},
		{"no provider", nil, map[string]any{"prompt": "p"}, []string{"provider"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := build(t, NewLLM(tc.provider), tc.config).Validate()
			if len(got) != len(tc.want) {
				t.Fatalf("Validate = %v, want %d problems", got, len(tc.want))
			}
			for i, field := range tc.want {
				if !strings.HasPrefix(got[i], field) {
					t.Errorf("problem %d = %q, want field %s", i, got[i], field)
				}
			}
		})
	}
}

func TestLLM_ProviderError(t *testing.T) {
	p := &fakeProvider{err: stderrors.New("rate limited")}
	n := build(t, NewLLM(p), map[string]any{"prompt": "p"})
	_, err := n.Execute(context.Background(), workflow.NewExecutionContext("", "", nil), "u", priced)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v", err)
	}
}

func TestLLM_MalformedConfig(t *testing.T) {
	_, err := NewLLM(&fakeProvider{})(dag.Node{ID: "n", Config: map[string]any{"max_tokens": "lots"}})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

// --- knowledge ---

func TestKnowledge_UsesUpstreamWhenQueryEmpty(t *testing.T) {
	s := &fakeSearcher{docs: []Document{{ID: "1", Content: "alpha"}, {ID: "2", Content: "beta"}}}
	n := build(t, NewKnowledge(s), nil)
	ec := workflow.PreviewContext(nil, "find alpha", nil)

	res, err := n.Execute(context.Background(), ec, "u", priced)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.lastQuery != "find alpha" || s.lastLimit != 5 {
		t.Errorf("search(%q, %d)", s.lastQuery, s.lastLimit)
	}
	out := res.Output.(map[string]any)
	if out["count"] != 2 || out["context"] != "alpha\n\nbeta" {
		t.Errorf("output = %v", out)
	}
}

func TestKnowledge_EmptyQueryFails(t *testing.T) {
	n := build(t, NewKnowledge(&fakeSearcher{}), nil)
	if _, err := n.Execute(context.Background(), workflow.NewExecutionContext("", "", nil), "u", priced); err == nil {
		t.Fatal("expected error")
	}
}

func TestKnowledge_Validate(t *testing.T) {
	if got := build(t, NewKnowledge(nil), map[string]any{"top_k": 500}).Validate(); len(got) != 2 {
		t.Errorf("Validate = %v", got)
	}
}

// --- classifier ---

func TestClassifier_Execute(t *testing.T) {
	p := &fakeProvider{reply: "```json\n{\"category\": \"BILLING\", \"confidence\": 0.9, \"reasoning\": \"mentions invoice\"}\n```"}
	n := build(t, NewClassifier(p), map[string]any{"categories": []any{"billing", "support"}})
	ec := workflow.PreviewContext(nil, "where is my invoice", nil)

	res, err := n.Execute(context.Background(), ec, "u", priced)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := res.Output.(map[string]any)
	if out["output"] != "billing" || out["confidence"] != 0.9 {
		t.Errorf("output = %v", out)
	}
	if !p.last.JSON || p.last.Messages[0].Content != "where is my invoice" {
		t.Errorf("request = %+v", p.last)
	}
	if got := workflow.NormalizeOutput(res.Output); !reflect.DeepEqual(got, map[string]any{"result": "billing", "type": workflow.OutputText}) {
		t.Errorf("normalized = %v", got)
	}
}

func TestClassifier_UnknownCategory(t *testing.T) {
	p := &fakeProvider{reply: `{"category": "other"}`}
	n := build(t, NewClassifier(p), map[string]any{"categories": []any{"a", "b"}})
	if _, err := n.Execute(context.Background(), workflow.PreviewContext(nil, "x", nil), "u", priced); err == nil {
		t.Fatal("expected error for category outside the list")
	}
}

func TestClassifier_NeedsTwoCategories(t *testing.T) {
	got := build(t, NewClassifier(&fakeProvider{}), map[string]any{"categories": []any{"only"}}).Validate()
	if len(got) != 1 || !strings.HasPrefix(got[0], "categories") {
		t.Errorf("Validate = %v", got)
	}
}

// --- registration ---

func TestRegisterBuiltins(t *testing.T) {
	r := workflow.NewRegistry(logger.NewNop())
	RegisterBuiltins(r, Dependencies{LLM: &fakeProvider{}})

	want := []string{TypeClassifier, TypeEnd, TypeKnowledge, TypeLLM, TypeStart}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}
