package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/errors"
)

// --- mock dialect for testing ---

type mockDialect struct {
	name       string
	healthPath string
	buildErr   error
}

func (d *mockDialect) Name() string {
	if d.name != "" {
		return d.name
	}
	return "mock"
}

func (d *mockDialect) ChatPath() string   { return "/chat" }
func (d *mockDialect) HealthPath() string { return d.healthPath }

func (d *mockDialect) BuildRequest(req CompletionRequest) (any, error) {
	if d.buildErr != nil {
		return nil, d.buildErr
	}
	return map[string]any{
		"model":       req.Model,
		"messages":    req.AllMessages(),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"json":        req.JSON,
	}, nil
}

func (d *mockDialect) ParseResponse(body []byte) (*CompletionResponse, error) {
	var raw struct {
		Content string `json:"content"`
		Model   string `json:"model"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &CompletionResponse{Content: raw.Content, Model: raw.Model, Usage: Usage{PromptTokens: 6, CompletionTokens: 4}}, nil
}

func newMockServer(t *testing.T, handler func(body map[string]any, r *http.Request) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil && r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		status, resp := handler(body, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// --- tests ---

func TestAdapter_New_FromRegistry(t *testing.T) {
	original := registered
	registered = &dialectSet{byKey: map[string]Dialect{}}
	defer func() { registered = original }()

	RegisterDialect("mock", &mockDialect{})

	a, err := New(Config{Dialect: "mock", BaseURL: "http://localhost:12345", Model: "test-model"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Name() != "mock-llm" {
		t.Errorf("Name() = %q, want %q", a.Name(), "mock-llm")
	}
	if a.Dialect().Name() != "mock" {
		t.Errorf("Dialect().Name() = %q, want mock", a.Dialect().Name())
	}
	if got := Dialects(); len(got) != 1 || got[0] != "mock" {
		t.Errorf("Dialects() = %v, want [mock]", got)
	}
}

func TestAdapter_New_UnknownDialect(t *testing.T) {
	_, err := New(Config{Dialect: "nonexistent-xyz"})
	if err == nil || !strings.Contains(err.Error(), "registered:") {
		t.Fatalf("New() error = %v, want unknown dialect listing the registered ones", err)
	}
}

func TestAdapter_NewWithDialect_NilDialect(t *testing.T) {
	if _, err := NewWithDialect(nil, Config{}); err != ErrNoDialect {
		t.Errorf("expected ErrNoDialect, got %v", err)
	}
}

func TestAdapter_Complete(t *testing.T) {
	srv := newMockServer(t, func(body map[string]any, r *http.Request) (int, any) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q, want /chat", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Team"); got != "flow" {
			t.Errorf("X-Team = %q", got)
		}
		if body["model"] != "test-model" {
			t.Errorf("model = %v, want test-model", body["model"])
		}
		return http.StatusOK, map[string]any{"content": "Hello from LLM!", "model": "test-model"}
	})

	a, err := NewWithDialect(&mockDialect{}, Config{
		BaseURL: srv.URL + "/",
		Model:   "test-model",
		APIKey:  "secret",
		Headers: map[string]string{"X-Team": "flow"},
	})
	if err != nil {
		t.Fatalf("NewWithDialect() error: %v", err)
	}

	resp, err := a.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("Hi")}})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "Hello from LLM!" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want prompt+completion", resp.Usage.TotalTokens)
	}
}

func TestAdapter_Complete_AppliesDefaults(t *testing.T) {
	srv := newMockServer(t, func(body map[string]any, _ *http.Request) (int, any) {
		if body["model"] != "default-model" {
			t.Errorf("model = %v, want default-model", body["model"])
		}
		if body["temperature"] != 0.3 {
			t.Errorf("temperature = %v, want 0.3", body["temperature"])
		}
		if body["max_tokens"] != float64(256) {
			t.Errorf("max_tokens = %v, want 256", body["max_tokens"])
		}
		return http.StatusOK, map[string]any{"content": "ok"}
	})

	a, _ := NewWithDialect(&mockDialect{}, Config{BaseURL: srv.URL, Model: "default-model", Temperature: 0.3, MaxTokens: 256})
	if _, err := a.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
}

func TestAdapter_Complete_RequestOverridesDefaults(t *testing.T) {
	srv := newMockServer(t, func(body map[string]any, _ *http.Request) (int, any) {
		if body["model"] != "override" {
			t.Errorf("model = %v, want override", body["model"])
		}
		return http.StatusOK, map[string]any{"content": "ok"}
	})

	a, _ := NewWithDialect(&mockDialect{}, Config{BaseURL: srv.URL, Model: "default-model"})
	if _, err := a.Complete(context.Background(), CompletionRequest{Model: "override"}); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
}

func TestAdapter_Complete_HTTPError(t *testing.T) {
	srv := newMockServer(t, func(map[string]any, *http.Request) (int, any) {
		return http.StatusServiceUnavailable, map[string]any{"error": "overloaded"}
	})

	a, _ := NewWithDialect(&mockDialect{}, Config{BaseURL: srv.URL, Model: "m"})
	_, err := a.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeExternalService {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
	if !appErr.Retryable {
		t.Error("expected upstream failure to be retryable")
	}
	if appErr.Details["status"] != http.StatusServiceUnavailable {
		t.Errorf("expected status detail, got %v", appErr.Details["status"])
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("expected body in error, got %q", err.Error())
	}
}

func TestAdapter_Complete_BuildError(t *testing.T) {
	a, _ := NewWithDialect(&mockDialect{buildErr: errors.Validation("no model")}, Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := a.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("expected build error")
	}
}

func TestAdapter_Complete_Unreachable(t *testing.T) {
	a, _ := NewWithDialect(&mockDialect{}, Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	_, err := a.Complete(context.Background(), CompletionRequest{})
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.ErrCodeExternalService {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

func TestAdapter_IsAvailable(t *testing.T) {
	srv := newMockServer(t, func(_ map[string]any, r *http.Request) (int, any) {
		if r.URL.Path == "/health" {
			return http.StatusOK, map[string]any{}
		}
		return http.StatusInternalServerError, map[string]any{}
	})

	healthy, _ := NewWithDialect(&mockDialect{healthPath: "/health"}, Config{BaseURL: srv.URL})
	if !healthy.IsAvailable(context.Background()) {
		t.Error("expected available via health path")
	}
	broken, _ := NewWithDialect(&mockDialect{healthPath: "/broken"}, Config{BaseURL: srv.URL})
	if broken.IsAvailable(context.Background()) {
		t.Error("expected unavailable on 500")
	}
	down, _ := NewWithDialect(&mockDialect{}, Config{BaseURL: "http://127.0.0.1:1"})
	if down.IsAvailable(context.Background()) {
		t.Error("expected unreachable server to be unavailable")
	}
}

func TestCompletionRequest_AllMessages(t *testing.T) {
	req := CompletionRequest{SystemPrompt: "be brief", Messages: []Message{{Role: "user", Content: "hi"}}}
	msgs := req.AllMessages()
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Content != "hi" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
	if got := (CompletionRequest{}).AllMessages(); len(got) != 0 {
		t.Errorf("expected no messages, got %+v", got)
	}
}
