// Package ollama maps llm requests onto Ollama's native chat API.
// Importing it registers the "ollama" dialect.
package ollama

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/llm"
)

// DialectName is the registered name for the Ollama dialect.
const DialectName = "ollama"

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// Dialect implements llm.Dialect for Ollama.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string       { return DialectName }
func (Dialect) ChatPath() string   { return "/api/chat" }
func (Dialect) HealthPath() string { return "/api/tags" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// BuildRequest creates a non-streaming Ollama chat request.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	all := req.AllMessages()
	msgs := make([]chatMessage, len(all))
	for i, m := range all {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	out := chatRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.JSON {
		out.Format = "json"
	}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		out.Options = &chatOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}
	return out, nil
}

// ParseResponse decodes an Ollama chat response.
func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}
	return &llm.CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
