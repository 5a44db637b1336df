// Package openai maps llm requests onto the OpenAI chat completions API,
// which most hosted and self-hosted model servers also accept.
// Importing it registers the "openai" dialect.
package openai

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/llm"
)

// DialectName is the registered name for the OpenAI-compatible dialect.
const DialectName = "openai"

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// Dialect implements llm.Dialect for OpenAI-compatible servers.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

func (Dialect) Name() string       { return DialectName }
func (Dialect) ChatPath() string   { return "/v1/chat/completions" }
func (Dialect) HealthPath() string { return "/v1/models" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type response struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// BuildRequest creates a chat completions request.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	all := req.AllMessages()
	msgs := make([]message, len(all))
	for i, m := range all {
		msgs[i] = message{Role: m.Role, Content: m.Content}
	}
	out := request{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.JSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out, nil
}

// ParseResponse decodes a chat completions response using the first choice.
func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
