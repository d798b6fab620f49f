package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"manbo/pkg/errors"
)

const (
	openaiAPIURL   = "https://api.openai.com/v1/chat/completions"
	deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
)

// openAICompatClient talks to any chat-completions endpoint that speaks the
// OpenAI wire format. OpenAI and DeepSeek share this implementation.
type openAICompatClient struct {
	name    string
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewOpenAIClient creates a ChatClient backed by the OpenAI API.
func NewOpenAIClient(apiKey, model string, timeout time.Duration, reqPerMinute float64) ChatClient {
	return newOpenAICompatClient("openai", openaiAPIURL, apiKey, model, timeout, reqPerMinute)
}

// NewDeepSeekClient creates a ChatClient backed by the DeepSeek API, which
// uses the OpenAI-compatible wire format.
func NewDeepSeekClient(apiKey, model string, timeout time.Duration, reqPerMinute float64) ChatClient {
	return newOpenAICompatClient("deepseek", deepseekAPIURL, apiKey, model, timeout, reqPerMinute)
}

func newOpenAICompatClient(name, apiURL, apiKey, model string, timeout time.Duration, reqPerMinute float64) *openAICompatClient {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if reqPerMinute <= 0 {
		reqPerMinute = 60
	}

	burst := int(reqPerMinute / 10)
	if burst < 1 {
		burst = 1
	}

	return &openAICompatClient{
		name:    name,
		apiURL:  apiURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst),
	}
}

// Name returns the provider identifier.
func (c *openAICompatClient) Name() string { return c.name }

// RequiresContinuationAfterTool is false: OpenAI-format providers route tool
// results through the regular message history and decide the next step on
// the following turn.
func (c *openAICompatClient) RequiresContinuationAfterTool() bool { return false }

// Chat sends a chat completion request.
func (c *openAICompatClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s API key not configured", c.name)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "%s: %v", c.name, err)
	}

	wireReq := c.convertRequest(req)

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s request", c.name)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "send %s request", c.name)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", c.name)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, errors.Wrapf(errors.ErrExternal, "%s API error (%d): %s - %s",
				c.name, resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, errors.Wrapf(errors.ErrExternal, "%s API error (%d): %s",
			c.name, resp.StatusCode, string(respBody))
	}

	var wireResp openAIResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s response", c.name)
	}

	return c.convertResponse(&wireResp), nil
}

func (c *openAICompatClient) convertRequest(req ChatRequest) openAIRequest {
	wireReq := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if wireReq.Model == "" {
		wireReq.Model = c.model
	}
	if wireReq.MaxTokens == 0 {
		wireReq.MaxTokens = 4096
	}

	for _, msg := range req.Messages {
		wireMsg := openAIMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}

		for _, tc := range msg.ToolCalls {
			wireMsg.ToolCalls = append(wireMsg.ToolCalls, openAIToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: openAIFunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		wireReq.Messages = append(wireReq.Messages, wireMsg)
	}

	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, openAITool{
			Type: tool.Type,
			Function: openAIFunctionDef{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	return wireReq
}

func (c *openAICompatClient) convertResponse(wireResp *openAIResponse) *ChatResponse {
	chatResp := &ChatResponse{
		ID:    wireResp.ID,
		Model: wireResp.Model,
		Usage: Usage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		},
	}

	for _, choice := range wireResp.Choices {
		msg := Message{
			Role:    MessageRole(choice.Message.Role),
			Content: choice.Message.Content,
			Name:    choice.Message.Name,
		}

		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		finishReason := FinishReasonStop
		switch choice.FinishReason {
		case "length":
			finishReason = FinishReasonLength
		case "tool_calls", "function_call":
			finishReason = FinishReasonToolCalls
		}

		chatResp.Choices = append(chatResp.Choices, Choice{
			Index:        choice.Index,
			Message:      msg,
			FinishReason: finishReason,
		})
	}

	return chatResp
}

// OpenAI-compatible wire types

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
