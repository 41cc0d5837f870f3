package chat

import "context"

// Message is one turn in a model conversation. Images carry data URLs or
// https URLs for vision-capable models.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"-"`
}

// ResponseFormat requests a structured output mode.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is a model invocation.
type Request struct {
	Model          string          `json:"model"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Messages       []Message       `json:"messages"`
}

// Result is a model response.
type Result struct {
	Message Message
}

// Provider executes chat completions.
type Provider interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
