package llm

import (
	"fmt"
	"log/slog"
	"time"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Options are sampling parameters for a chat request.
type Options struct {
	// Temperature controls sampling randomness. Zero is a valid value,
	// so providers send it unconditionally.
	Temperature float64 `json:"temperature"`

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ChatResponse is the unified response from any LLM provider.
// Wire format conversion happens at provider boundaries
// (gemini.go, ollama.go).
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Content   string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// InvocationError wraps any failure to obtain a model response:
// network errors, non-2xx API statuses, quota exhaustion, and
// malformed response bodies. Callers receive it as an error value
// at the dispatch boundary — it never escapes as a panic.
type InvocationError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: model invocation failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InvocationError) Unwrap() error {
	return e.Err
}
