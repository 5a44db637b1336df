package llm

// Chat roles understood by every dialect.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// UserMessage is the single-turn prompt nodes send.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionRequest is what nodes hand to a Provider. Zero values defer to
// the adapter's configured defaults: Model, Temperature and MaxTokens are
// only sent when set.
type CompletionRequest struct {
	Model        string    `json:"model,omitempty" yaml:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty" yaml:"system_prompt"`
	Messages     []Message `json:"messages" yaml:"messages"`
	Temperature  float64   `json:"temperature,omitempty" yaml:"temperature"`
	MaxTokens    int       `json:"max_tokens,omitempty" yaml:"max_tokens"`
	// JSON requests a JSON object from dialects that have a native mode.
	JSON bool `json:"json,omitempty" yaml:"json"`
}

// AllMessages is Messages with SystemPrompt, if any, as the leading turn.
func (r CompletionRequest) AllMessages() []Message {
	if r.SystemPrompt == "" {
		return r.Messages
	}
	return append([]Message{{Role: RoleSystem, Content: r.SystemPrompt}}, r.Messages...)
}

type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage is the provider's token accounting. TotalTokens is filled from the
// two parts when the provider leaves it out.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u Usage) withTotal() Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}
