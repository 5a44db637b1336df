package openai

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/llm"
)

func TestDialectRegistered(t *testing.T) {
	if _, err := llm.GetDialect(DialectName); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildRequest(t *testing.T) {
	body, err := Dialect{}.BuildRequest(llm.CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: "user", Content: "hi"}},
		JSON:         true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := json.Marshal(body)
	var got map[string]any
	_ = json.Unmarshal(raw, &got)

	if _, ok := got["temperature"]; ok {
		t.Error("expected temperature to be omitted when zero")
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", got["response_format"])
	}
	msgs := got["messages"].([]any)
	if first := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system message first, got %v", first)
	}
}

func TestParseResponse(t *testing.T) {
	body := `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`
	resp, err := Dialect{}.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" || resp.Usage.TotalTokens != 5 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"api error", `{"error":{"message":"rate limited","type":"requests"}}`},
		{"no choices", `{"model":"x","choices":[]}`},
		{"malformed", `{`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := (Dialect{}).ParseResponse([]byte(tc.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
