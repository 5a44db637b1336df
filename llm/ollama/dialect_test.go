package ollama

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/llm"
)

func TestDialectRegistered(t *testing.T) {
	d, err := llm.GetDialect(DialectName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ChatPath() != "/api/chat" || d.HealthPath() != "/api/tags" {
		t.Errorf("unexpected paths %q %q", d.ChatPath(), d.HealthPath())
	}
}

func TestBuildRequest(t *testing.T) {
	body, err := Dialect{}.BuildRequest(llm.CompletionRequest{
		Model:        "llama3",
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: "user", Content: "hi"}},
		Temperature:  0.2,
		MaxTokens:    64,
		JSON:         true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := json.Marshal(body)
	var got map[string]any
	_ = json.Unmarshal(raw, &got)

	if got["stream"] != false {
		t.Errorf("expected stream=false, got %v", got["stream"])
	}
	if got["format"] != "json" {
		t.Errorf("expected format=json, got %v", got["format"])
	}
	if msgs := got["messages"].([]any); len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %v", msgs)
	}
	opts := got["options"].(map[string]any)
	if opts["num_predict"] != float64(64) || opts["temperature"] != 0.2 {
		t.Errorf("unexpected options %v", opts)
	}
}

func TestBuildRequest_RequiresModel(t *testing.T) {
	if _, err := (Dialect{}).BuildRequest(llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := Dialect{}.ParseResponse([]byte(`{"model":"llama3","message":{"role":"assistant","content":"hey"},"done":true,"prompt_eval_count":5,"eval_count":7}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hey" || resp.Usage.TotalTokens != 12 {
		t.Errorf("unexpected response %+v", resp)
	}

	if _, err := (Dialect{}).ParseResponse([]byte(`{"error":"model not found"}`)); err == nil {
		t.Error("expected provider error")
	}
	if _, err := (Dialect{}).ParseResponse([]byte(`nope`)); err == nil {
		t.Error("expected decode error")
	}
}
