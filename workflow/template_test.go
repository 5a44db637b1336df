package workflow

import (
	"math"
	"testing"
)

func TestSubstitute_Table(t *testing.T) {
	vars := map[string]any{
		"start": map[string]any{"question": "why?", "tags": []any{"a", "b"}},
		"llm1":  map[string]any{"content": "answer", "usage": map[string]any{"total": 12}},
		"plain": "text",
		"num":   3,
		"null":  nil,
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no references", "hello", "hello"},
		{"whole string output", "say {{plain}}", "say text"},
		{"nested path", "Q: {{start.question}}", "Q: why?"},
		{"deep path", "{{llm1.usage.total}} tokens", "12 tokens"},
		{"list index", "{{start.tags.1}}", "b"},
		{"whole object is JSON", "{{llm1.usage}}", `{"total":12}`},
		{"number", "n={{num}}", "n=3"},
		{"nil value", "{{null}}", "null"},
		{"spaces inside braces", "{{ plain }}", "text"},
		{"unknown node left as is", "{{later.content}}", "{{later.content}}"},
		{"unknown path left as is", "{{llm1.missing}}", "{{llm1.missing}}"},
		{"index out of range", "{{start.tags.5}}", "{{start.tags.5}}"},
		{"path into scalar", "{{plain.x}}", "{{plain.x}}"},
		{"several references", "{{plain}}/{{num}}/{{nope}}", "text/3/{{nope}}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Substitute(tc.in, vars); got != tc.want {
				t.Errorf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSubstitute_UnencodableValueStaysVisible(t *testing.T) {
	vars := map[string]any{"score": map[string]any{"value": math.NaN(), "label": "ok"}}

	if got := Substitute("v={{score.value}} l={{score.label}}", vars); got != "v={{score.value}} l=ok" {
		t.Errorf("got %q", got)
	}
	if got := Stringify(math.NaN()); got != "NaN" {
		t.Errorf("Stringify(NaN) = %q", got)
	}
}

func TestSubstitute_StructOutput(t *testing.T) {
	type usage struct {
		Total int `json:"total"`
	}
	vars := map[string]any{"n": struct {
		Usage usage `json:"usage"`
	}{Usage: usage{Total: 7}}}

	if got := Substitute("{{n.usage.total}}", vars); got != "7" {
		t.Errorf("got %q", got)
	}
}

func TestStringify(t *testing.T) {
	if got := Stringify(map[string]any{"b": 1, "a": 2}); got != `{"a":2,"b":1}` {
		t.Errorf("map = %q", got)
	}
	if got := Stringify([]any{1, "x"}); got != `[1,"x"]` {
		t.Errorf("list = %q", got)
	}
	if got := Stringify(true); got != "true" {
		t.Errorf("bool = %q", got)
	}
}
