package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// CompleteText sends system + user prompts and returns the text response.
func CompleteText(ctx context.Context, p Provider, system, user string) (string, error) {
	resp, err := p.Complete(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{UserMessage(user)},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteStructured sends a prompt expecting JSON and unmarshals the
// response into result. It appends JSON formatting instructions to the
// system prompt and asks the dialect for JSON mode.
func CompleteStructured(ctx context.Context, p Provider, req CompletionRequest, result any) (*CompletionResponse, error) {
	req.SystemPrompt += "\n\nIMPORTANT: Respond with ONLY the JSON object. " +
		"No markdown, no code blocks, no explanations. " +
		"Start with { and end with }."
	req.SystemPrompt = strings.TrimSpace(req.SystemPrompt)
	req.JSON = true

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Content)), result); err != nil {
		return resp, fmt.Errorf("llm: unmarshal structured response: %w", err)
	}
	return resp, nil
}

// ExtractJSON pulls a JSON object from LLM output that may contain markdown fences.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s[3:], "\n"); idx >= 0 {
			s = s[3+idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
