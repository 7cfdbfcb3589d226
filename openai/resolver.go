package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dagtalk/dagtalk"
)

// Interface compliance check.
var _ dagtalk.Resolver = (*Resolver)(nil)

// Resolver resolves instructions by asking a chat-completions model to
// pick one tool call. It holds no mutable state and is safe for
// concurrent use.
type Resolver struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL overrides the endpoint base URL. Useful for testing with
// httptest and for OpenAI-compatible servers such as Ollama or vLLM.
func WithBaseURL(baseURL string) Option {
	return func(r *Resolver) {
		r.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(r *Resolver) {
		r.model = model
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// New creates a Resolver with the given API key.
func New(apiKey string, opts ...Option) *Resolver {
	r := &Resolver{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve asks the model for a single tool call and decodes it into an
// intent. When the model answers in plain text the returned error wraps
// [dagtalk.ErrUnsupportedInstruction] and the Resolution still carries
// the model's text as its explanation.
func (r *Resolver) Resolve(ctx context.Context, req dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
	msg, err := r.complete(ctx, buildRequest(r.model, req))
	if err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("openai: %w", err)
	}

	switch n := len(msg.ToolCalls); {
	case n == 0:
		res := dagtalk.Resolution{Explanation: strings.TrimSpace(msg.Content)}
		return res, fmt.Errorf("openai: model answered in text instead of a tool call: %w", dagtalk.ErrUnsupportedInstruction)
	case n > 1:
		return dagtalk.Resolution{}, fmt.Errorf("openai: model made %d tool calls, want one: %w", n, dagtalk.ErrProtocol)
	}

	call := msg.ToolCalls[0]
	intent, err := decodeCall(call, req.Specs)
	if err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("openai: %w", err)
	}
	if err := dagtalk.ValidateIntent(intent, req.Instruction, req.Catalog); err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("openai: %w", err)
	}
	return dagtalk.Resolution{
		Intent:      intent,
		Explanation: strings.TrimSpace(msg.Content),
	}, nil
}

// complete performs one non-streaming chat-completions call and returns
// the first choice's message.
func (r *Resolver) complete(ctx context.Context, body oaiRequest) (oaiMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return oaiMessage{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return oaiMessage{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return oaiMessage{}, fmt.Errorf("%w: %w", dagtalk.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return oaiMessage{}, fmt.Errorf("read response: %w: %w", dagtalk.ErrTransport, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return oaiMessage{}, statusError(httpResp.StatusCode, raw)
	}

	var resp oaiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return oaiMessage{}, fmt.Errorf("decode response: %w: %w", dagtalk.ErrProtocol, err)
	}
	if resp.Error != nil {
		return oaiMessage{}, fmt.Errorf("endpoint error: %s: %w", resp.Error.Message, dagtalk.ErrProtocol)
	}
	if len(resp.Choices) == 0 {
		return oaiMessage{}, fmt.Errorf("response has no choices: %w", dagtalk.ErrProtocol)
	}
	return resp.Choices[0].Message, nil
}

// buildRequest assembles the completion request: tool definitions from
// the specs, the catalog inlined into the system prompt, and parallel
// tool calls disabled so at most one intent comes back.
func buildRequest(model string, req dagtalk.ResolveRequest) oaiRequest {
	tools := make([]oaiTool, 0, len(req.Specs))
	for _, spec := range req.Specs {
		tools = append(tools, oaiTool{
			Type: "function",
			Function: oaiFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	parallel := false
	return oaiRequest{
		Model: model,
		Messages: []oaiMessage{
			{Role: "system", Content: dagtalk.SystemPrompt(req.Catalog)},
			{Role: "user", Content: string(req.Instruction)},
		},
		Tools:             tools,
		ParallelToolCalls: &parallel,
		Temperature:       0,
	}
}

// decodeCall routes a tool call to the matching spec's decoder.
func decodeCall(call oaiToolCall, specs []dagtalk.ToolSpec) (dagtalk.Intent, error) {
	for _, spec := range specs {
		if spec.Name == call.Function.Name {
			return spec.Decode(json.RawMessage(call.Function.Arguments))
		}
	}
	return nil, fmt.Errorf("model called unregistered tool %q: %w", call.Function.Name, dagtalk.ErrUnknownTool)
}

// statusError classifies a non-200 chat-completions response.
func statusError(code int, body []byte) error {
	detail := string(bytes.TrimSpace(body))
	var resp oaiResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		detail = resp.Error.Message
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("HTTP %d: %s: %w", code, detail, dagtalk.ErrTransport)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("HTTP %d: %s: %w", code, detail, dagtalk.ErrTransport)
	default:
		return fmt.Errorf("unexpected HTTP %d: %s: %w", code, detail, dagtalk.ErrProtocol)
	}
}
