package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"manbo/internal/adapters/ai"
	"manbo/internal/metrics"
	"manbo/internal/tools"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// JobContext carries the per-job facts injected into every tool call so
// the model cannot route the analysis to the wrong instrument.
type JobContext struct {
	Symbol   string
	Market   string
	AsOfDate string
}

// AnalystOptions bound an analyst's model and tool usage.
type AnalystOptions struct {
	Model         string
	MaxToolRounds int
	ToolTimeout   time.Duration
	ModelTimeout  time.Duration
	Temperature   float64
	MaxTokens     int
}

// Analyst runs one role's decision loop: frame the task, let the model
// either call its data tool or write the report, execute requested tools,
// and continue until a text report comes out.
type Analyst struct {
	role    string
	client  ai.ChatClient
	toolset []tools.Tool
	opts    AnalystOptions
	log     *logger.Logger
}

// NewAnalyst creates an analyst for a role with its assigned tools.
func NewAnalyst(role string, client ai.ChatClient, toolset []tools.Tool, opts AnalystOptions) *Analyst {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 6
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = 30 * time.Second
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 120 * time.Second
	}
	return &Analyst{
		role:    role,
		client:  client,
		toolset: toolset,
		opts:    opts,
		log:     logger.Get().With("analyst", role, "provider", client.Name()),
	}
}

// Role returns the analyst's role name.
func (a *Analyst) Role() string { return a.role }

// Step runs one pipeline entry for this analyst. It returns the finished
// report with done=true, or done=false when tool results were appended and
// the pipeline should re-enter. An inference failure does not propagate:
// the analyst degrades to a placeholder report so the job can complete.
func (a *Analyst) Step(ctx context.Context, conv *Conversation, job JobContext) (string, bool, error) {
	hasData := conv.HasToolResult()

	if conv.Len() == 0 {
		conv.Append(
			ai.Message{Role: ai.RoleSystem, Content: systemPromptFor(a.role)},
			ai.Message{Role: ai.RoleUser, Content: taskPrompt(a.role, job.Symbol, job.Market, job.AsOfDate, false)},
		)
	} else if hasData && conv.Messages()[conv.Len()-1].Role == ai.RoleTool {
		conv.Append(ai.Message{
			Role:    ai.RoleUser,
			Content: taskPrompt(a.role, job.Symbol, job.Market, job.AsOfDate, true),
		})
	}

	resp, err := a.infer(ctx, conv, !hasData)
	if err != nil {
		a.log.Errorf("inference failed, degrading report: %v", err)
		return degradedReport(a.role, job.Symbol, err.Error()), true, nil
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return choice.Message.Content, true, nil
	}

	conv.Append(choice.Message)
	a.executeToolCalls(ctx, conv, job, choice.Message.ToolCalls)

	if !a.client.RequiresContinuationAfterTool() {
		// Yield: the pipeline re-enters this analyst with the tool
		// results in place.
		return "", false, nil
	}

	return a.continueAfterTools(ctx, conv, job)
}

// continueAfterTools drives the bounded internal sub-loop for providers
// that cannot resume a tool exchange across separate requests. Exceeding
// the round cap degrades instead of failing the job.
func (a *Analyst) continueAfterTools(ctx context.Context, conv *Conversation, job JobContext) (string, bool, error) {
	for round := 0; round < a.opts.MaxToolRounds; round++ {
		conv.Append(ai.Message{
			Role:    ai.RoleUser,
			Content: taskPrompt(a.role, job.Symbol, job.Market, job.AsOfDate, true),
		})

		resp, err := a.infer(ctx, conv, false)
		if err != nil {
			a.log.Errorf("continuation inference failed, degrading report: %v", err)
			return degradedReport(a.role, job.Symbol, err.Error()), true, nil
		}

		choice := resp.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			return choice.Message.Content, true, nil
		}

		conv.Append(choice.Message)
		a.executeToolCalls(ctx, conv, job, choice.Message.ToolCalls)
	}

	a.log.Warnf("tool round cap %d reached for %s", a.opts.MaxToolRounds, job.Symbol)
	return degradedReport(a.role, job.Symbol,
		fmt.Sprintf("the model kept requesting tools past the %d round limit", a.opts.MaxToolRounds)), true, nil
}

func (a *Analyst) infer(ctx context.Context, conv *Conversation, offerTools bool) (*ai.ChatResponse, error) {
	req := ai.ChatRequest{
		Model:       a.opts.Model,
		Messages:    conv.Messages(),
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
	}
	if offerTools {
		req.Tools = a.toolDefinitions()
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()

	resp, err := a.client.Chat(callCtx, req)
	if err != nil {
		metrics.AgentCalls.WithLabelValues(a.role, a.client.Name(), "error").Inc()
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "%s: %v", a.client.Name(), err)
	}
	if len(resp.Choices) == 0 {
		metrics.AgentCalls.WithLabelValues(a.role, a.client.Name(), "error").Inc()
		return nil, errors.Wrap(errors.ErrInferenceFailure, "model returned no choices")
	}

	metrics.AgentCalls.WithLabelValues(a.role, a.client.Name(), "ok").Inc()
	return resp, nil
}

// executeToolCalls runs every requested tool and appends one tool result
// message per call. Failures, including unknown tool names, become failure
// results in the conversation rather than errors.
func (a *Analyst) executeToolCalls(ctx context.Context, conv *Conversation, job JobContext, calls []ai.ToolCall) {
	for _, call := range calls {
		name := call.Function.Name
		content := a.runTool(ctx, job, call)

		conv.Append(ai.Message{
			Role:       ai.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       name,
		})
	}
}

func (a *Analyst) runTool(ctx context.Context, job JobContext, call ai.ToolCall) string {
	name := call.Function.Name

	tool := a.findTool(name)
	if tool == nil {
		a.log.Warnf("model requested unknown tool %q", name)
		metrics.ToolCalls.WithLabelValues(name, "unknown").Inc()
		return fmt.Sprintf("Error: tool %q is not available to this analyst.", name)
	}

	args := map[string]interface{}{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			metrics.ToolCalls.WithLabelValues(name, "error").Inc()
			return fmt.Sprintf("Error: tool arguments were not valid JSON: %v", err)
		}
	}
	injectJobContext(args, job)

	toolCtx, cancel := context.WithTimeout(ctx, a.opts.ToolTimeout)
	defer cancel()

	start := time.Now()
	result, err := tool.Execute(toolCtx, args)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		a.log.Warnf("tool %s failed: %v", name, err)
		metrics.ToolCalls.WithLabelValues(name, "error").Inc()
		return fmt.Sprintf("Error: tool %s failed: %v", name, err)
	}

	metrics.ToolCalls.WithLabelValues(name, "ok").Inc()
	return result
}

func (a *Analyst) toolDefinitions() []ai.ToolDefinition {
	defs := make([]ai.ToolDefinition, 0, len(a.toolset))
	for _, t := range a.toolset {
		defs = append(defs, ai.ToolDefinition{
			Type: "function",
			Function: ai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

func (a *Analyst) findTool(name string) tools.Tool {
	for _, t := range a.toolset {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// injectJobContext overrides routing arguments with the job's own facts.
// The model may hallucinate a different symbol; the job wins.
func injectJobContext(args map[string]interface{}, job JobContext) {
	args["symbol"] = job.Symbol
	if job.Market != "" {
		args["market"] = job.Market
	}
	if job.AsOfDate != "" {
		args["date"] = job.AsOfDate
	}
}
