package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"manbo/pkg/errors"
)

// GeminiClient implements ChatClient on top of the Gemini API.
type GeminiClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	client  *genai.Client
}

// NewGeminiClient creates a ChatClient backed by the Gemini API.
func NewGeminiClient(apiKey, model string, timeout time.Duration, reqPerMinute float64) (*GeminiClient, error) {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if reqPerMinute <= 0 {
		reqPerMinute = 60
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	burst := int(reqPerMinute / 10)
	if burst < 1 {
		burst = 1
	}

	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst),
		client:  client,
	}, nil
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return "gemini" }

// RequiresContinuationAfterTool is true: Gemini does not resume on its own
// after function responses are appended, the caller must issue an explicit
// follow-up generation turn.
func (c *GeminiClient) RequiresContinuationAfterTool() bool { return true }

// Chat sends a generation request with function calling support.
func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "gemini API key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "gemini: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	contents, genCfg := c.convertRequest(req)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExternal, err.Error())
	}

	return c.convertResponse(model, resp)
}

// convertRequest maps our messages to genai contents. System messages are
// collected into the system instruction, tool results become function
// response parts.
func (c *GeminiClient) convertRequest(req ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case RoleTool:
			var respData map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Content), &respData); err != nil {
				respData = map[string]interface{}{"result": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     msg.Name,
						Response: respData,
					},
				}},
			})

		case RoleAssistant:
			content := &genai.Content{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = map[string]interface{}{}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)

		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}
	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  convertSchema(t.Function.Parameters),
			})
		}
		genCfg.Tools = []*genai.Tool{tool}
	}

	return contents, genCfg
}

func (c *GeminiClient) convertResponse(model string, resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.Wrap(errors.ErrExternal, "gemini returned no candidates")
	}

	msg := Message{Role: RoleAssistant}
	var texts []string

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				argsJSON = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   part.FunctionCall.Name,
				Type: "function",
				Function: FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}
	msg.Content = strings.Join(texts, "\n")

	finishReason := FinishReasonStop
	if len(msg.ToolCalls) > 0 {
		finishReason = FinishReasonToolCalls
	}

	return &ChatResponse{
		Model: model,
		Choices: []Choice{{
			Message:      msg,
			FinishReason: finishReason,
		}},
	}, nil
}

// convertSchema maps a JSON-schema parameter map to the genai schema type.
// Only object/string/number/integer/boolean property shapes are needed for
// our tool definitions.
func convertSchema(params map[string]interface{}) *genai.Schema {
	if params == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	schema := &genai.Schema{Type: genai.TypeObject}

	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			prop, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			ps := &genai.Schema{}
			switch prop["type"] {
			case "number":
				ps.Type = genai.TypeNumber
			case "integer":
				ps.Type = genai.TypeInteger
			case "boolean":
				ps.Type = genai.TypeBoolean
			default:
				ps.Type = genai.TypeString
			}
			if desc, ok := prop["description"].(string); ok {
				ps.Description = desc
			}
			schema.Properties[name] = ps
		}
	}

	if required, ok := params["required"].([]string); ok {
		schema.Required = required
	} else if rawRequired, ok := params["required"].([]interface{}); ok {
		for _, r := range rawRequired {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return schema
}
