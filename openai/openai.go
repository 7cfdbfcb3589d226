// Package openai implements [dagtalk.Resolver] over any OpenAI-compatible
// chat-completions endpoint (OpenAI, Azure, Ollama, vLLM, Groq and friends)
// using function calling.
//
// The tool specs are sent as function definitions and the catalog is
// inlined into the system prompt. Exactly one tool call is accepted per
// resolution; parallel tool calls are disabled. A plain-text answer from
// the model classifies the instruction as unsupported, with the model's
// text carried as the explanation.
package openai

import "encoding/json"

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultModel    = "gpt-4o"
	completionsPath = "/chat/completions"
)

type oaiRequest struct {
	Model             string       `json:"model"`
	Messages          []oaiMessage `json:"messages"`
	Tools             []oaiTool    `json:"tools,omitempty"`
	ParallelToolCalls *bool        `json:"parallel_tool_calls,omitempty"`
	Temperature       float64      `json:"temperature"`
}

type oaiMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []oaiToolCall `json:"tool_calls,omitempty"`
}

type oaiTool struct {
	Type     string      `json:"type"` // always "function"
	Function oaiFunction `json:"function"`
}

type oaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type oaiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function oaiFunctionCall `json:"function"`
}

// oaiFunctionCall carries arguments as a JSON-encoded string, per the API.
type oaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *oaiError   `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
