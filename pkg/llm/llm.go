// Package llm provides the outbound client used for model-driven table
// rebuilds: an OpenAI-compatible chat endpoint behind a small Provider
// interface, plus a rotating API key pool.
package llm

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse represents a completed chat response.
type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}
