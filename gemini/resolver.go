package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dagtalk/dagtalk"
)

// Interface compliance check.
var _ dagtalk.Resolver = (*Resolver)(nil)

// Resolver resolves instructions by asking a Gemini model to pick one
// function call.
type Resolver struct {
	client *genai.Client
	model  string
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(r *Resolver) { r.model = model }
}

// New creates a new Gemini [Resolver] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Resolver, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	r := &Resolver{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Resolve sends the instruction with the tool specs as function
// declarations and converts the model's reply into a [dagtalk.Resolution].
func (r *Resolver) Resolve(ctx context.Context, req dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: string(req.Instruction)}},
	}}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, buildConfig(req))
	if err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("gemini: %w: %w", dagtalk.ErrTransport, err)
	}
	return ConvertResponse(resp, req)
}

func buildConfig(req dagtalk.ResolveRequest) *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		Tools:       ConvertSpecs(req.Specs),
		Temperature: &temp,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: dagtalk.SystemPrompt(req.Catalog)}},
		},
	}
}

// ConvertSpecs converts tool specs to genai Tools.
// Exported for testing.
func ConvertSpecs(specs []dagtalk.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(specs))
	for i, spec := range specs {
		// Parameters is json.RawMessage holding valid JSON from domain types.
		var schema map[string]any
		_ = json.Unmarshal(spec.Parameters, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:                 spec.Name,
			Description:          spec.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertResponse converts a generate-content response into a Resolution:
// exactly one function call decoded through the specs, or the model's text
// as an unsupported-instruction explanation. Thought parts never reach the
// explanation. Exported for testing.
func ConvertResponse(resp *genai.GenerateContentResponse, req dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return dagtalk.Resolution{}, fmt.Errorf("gemini: response has no candidates: %w", dagtalk.ErrProtocol)
	}

	var (
		calls []*genai.FunctionCall
		text  strings.Builder
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			calls = append(calls, part.FunctionCall)
		case part.Thought:
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	explanation := strings.TrimSpace(text.String())

	switch n := len(calls); {
	case n == 0:
		res := dagtalk.Resolution{Explanation: explanation}
		return res, fmt.Errorf("gemini: model answered in text instead of a function call: %w", dagtalk.ErrUnsupportedInstruction)
	case n > 1:
		return dagtalk.Resolution{}, fmt.Errorf("gemini: model made %d function calls, want one: %w", n, dagtalk.ErrProtocol)
	}

	intent, err := decodeCall(calls[0], req.Specs)
	if err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("gemini: %w", err)
	}
	if err := dagtalk.ValidateIntent(intent, req.Instruction, req.Catalog); err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("gemini: %w", err)
	}
	return dagtalk.Resolution{Intent: intent, Explanation: explanation}, nil
}

// decodeCall routes a function call to the matching spec's decoder.
func decodeCall(call *genai.FunctionCall, specs []dagtalk.ToolSpec) (dagtalk.Intent, error) {
	for _, spec := range specs {
		if spec.Name == call.Name {
			// Args comes from the SDK's JSON decoding, so it always marshals.
			raw, _ := json.Marshal(call.Args)
			return spec.Decode(raw)
		}
	}
	return nil, fmt.Errorf("model called unregistered function %q: %w", call.Name, dagtalk.ErrUnknownTool)
}
