package analysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/internal/adapters/ai"
	"manbo/internal/tools"
)

// stubClient replays scripted responses in order. When the script runs
// out, the last response repeats.
type stubClient struct {
	name         string
	continuation bool
	script       []stubTurn
	calls        int
	requests     []ai.ChatRequest
}

type stubTurn struct {
	resp *ai.ChatResponse
	err  error
}

func (s *stubClient) Name() string                        { return s.name }
func (s *stubClient) RequiresContinuationAfterTool() bool { return s.continuation }

func (s *stubClient) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.requests = append(s.requests, req)
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	turn := s.script[idx]
	return turn.resp, turn.err
}

func textTurn(text string) stubTurn {
	return stubTurn{resp: &ai.ChatResponse{Choices: []ai.Choice{{
		Message:      ai.Message{Role: ai.RoleAssistant, Content: text},
		FinishReason: ai.FinishReasonStop,
	}}}}
}

func toolTurn(toolName, args string) stubTurn {
	return stubTurn{resp: &ai.ChatResponse{Choices: []ai.Choice{{
		Message: ai.Message{
			Role: ai.RoleAssistant,
			ToolCalls: []ai.ToolCall{{
				ID:       "call-1",
				Type:     "function",
				Function: ai.FunctionCall{Name: toolName, Arguments: args},
			}},
		},
		FinishReason: ai.FinishReasonToolCalls,
	}}}}
}

func errTurn(err error) stubTurn { return stubTurn{err: err} }

func testTool(t *testing.T, name string, handler tools.HandlerFunc) tools.Tool {
	t.Helper()
	return tools.New(name, "test tool",
		tools.ObjectSchema(map[string]interface{}{
			"symbol": tools.StringProperty("symbol"),
		}, []string{"symbol"}), handler)
}

var testJob = JobContext{Symbol: "AAPL", Market: "US", AsOfDate: "2026-08-01"}

func TestAnalystDirectReport(t *testing.T) {
	client := &stubClient{name: "openai", script: []stubTurn{textTurn("a fine report")}}
	analyst := NewAnalyst("market", client, nil, AnalystOptions{})
	conv := &Conversation{}

	report, done, err := analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "a fine report", report)

	// First entry frames the task as a mandatory tool call.
	msgs := conv.Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "must first call your data tool")
}

func TestAnalystOffersToolsOnlyBeforeData(t *testing.T) {
	tool := testTool(t, "get_market_data", func(context.Context, map[string]interface{}) (string, error) {
		return "data", nil
	})
	client := &stubClient{name: "openai", script: []stubTurn{
		toolTurn("get_market_data", `{"symbol":"MSFT"}`),
		textTurn("report"),
	}}
	analyst := NewAnalyst("market", client, []tools.Tool{tool}, AnalystOptions{})
	conv := &Conversation{}

	_, done, err := analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.True(t, done)

	require.Len(t, client.requests, 2)
	assert.NotEmpty(t, client.requests[0].Tools)
	assert.Empty(t, client.requests[1].Tools)
}

func TestAnalystYieldsAfterToolExecution(t *testing.T) {
	var gotArgs map[string]interface{}
	tool := testTool(t, "get_market_data", func(_ context.Context, args map[string]interface{}) (string, error) {
		gotArgs = args
		return "OHLCV data here", nil
	})

	client := &stubClient{name: "openai", script: []stubTurn{
		toolTurn("get_market_data", `{"symbol":"MSFT","lookback":30}`),
		textTurn("final report"),
	}}
	analyst := NewAnalyst("market", client, []tools.Tool{tool}, AnalystOptions{})
	conv := &Conversation{}

	report, done, err := analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, report)
	assert.True(t, conv.HasToolResult())

	// The job's own facts override whatever symbol the model invented.
	assert.Equal(t, "AAPL", gotArgs["symbol"])
	assert.Equal(t, "US", gotArgs["market"])
	assert.Equal(t, "2026-08-01", gotArgs["date"])
	assert.Equal(t, float64(30), gotArgs["lookback"])

	report, done, err = analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "final report", report)
}

func TestAnalystUnknownToolBecomesFailureResult(t *testing.T) {
	client := &stubClient{name: "openai", script: []stubTurn{
		toolTurn("get_astrology", `{}`),
		textTurn("report without data"),
	}}
	analyst := NewAnalyst("market", client, nil, AnalystOptions{})
	conv := &Conversation{}

	_, done, err := analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.False(t, done)

	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Contains(t, last.Content, "not available")
	assert.Equal(t, "call-1", last.ToolCallID)
}

func TestAnalystToolErrorBecomesFailureResult(t *testing.T) {
	tool := testTool(t, "get_market_data", func(context.Context, map[string]interface{}) (string, error) {
		return "", fmt.Errorf("upstream down")
	})
	client := &stubClient{name: "openai", script: []stubTurn{
		toolTurn("get_market_data", `{}`),
	}}
	analyst := NewAnalyst("market", client, []tools.Tool{tool}, AnalystOptions{})
	conv := &Conversation{}

	_, done, err := analyst.Step(context.Background(), conv, testJob)
	require.NoError(t, err)
	assert.False(t, done)

	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Contains(t, last.Content, "upstream down")
}

func TestAnalystInferenceFailureDegrades(t *testing.T) {
	client := &stubClient{name: "openai", script: []stubTurn{
		errTurn(fmt.Errorf("connection refused")),
	}}
	analyst := NewAnalyst("news", client, nil, AnalystOptions{})

	report, done, err := analyst.Step(context.Background(), &Conversation{}, testJob)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, report, "unavailable")
	assert.Contains(t, report, "AAPL")
}

func TestAnalystContinuationRunsInternally(t *testing.T) {
	tool := testTool(t, "get_market_data", func(context.Context, map[string]interface{}) (string, error) {
		return "data", nil
	})
	client := &stubClient{name: "gemini", continuation: true, script: []stubTurn{
		toolTurn("get_market_data", `{}`),
		textTurn("gemini report"),
	}}
	analyst := NewAnalyst("market", client, []tools.Tool{tool}, AnalystOptions{})

	report, done, err := analyst.Step(context.Background(), &Conversation{}, testJob)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "gemini report", report)
	assert.Equal(t, 2, client.calls)
}

func TestAnalystContinuationCapDegrades(t *testing.T) {
	tool := testTool(t, "get_market_data", func(context.Context, map[string]interface{}) (string, error) {
		return "data", nil
	})
	// Always requests another tool call, never produces text.
	client := &stubClient{name: "gemini", continuation: true, script: []stubTurn{
		toolTurn("get_market_data", `{}`),
	}}
	analyst := NewAnalyst("market", client, []tools.Tool{tool}, AnalystOptions{MaxToolRounds: 3})

	report, done, err := analyst.Step(context.Background(), &Conversation{}, testJob)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, report, "unavailable")
	// One initial call plus three capped continuation rounds.
	assert.Equal(t, 4, client.calls)
}
