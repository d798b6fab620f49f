package analysis

import (
	"context"
	"regexp"
	"strings"

	"manbo/internal/adapters/ai"
	"manbo/internal/tools"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// Result is the outcome of one full analysis run.
type Result struct {
	Success        bool              `json:"success"`
	Action         string            `json:"action,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	Reports        map[string]string `json:"reports,omitempty"`
	RiskAssessment string            `json:"risk_assessment,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// PipelineOptions configures the analysis pipeline.
type PipelineOptions struct {
	// Models maps provider name to the model identifier to request.
	Models map[string]string
	// Analyst holds the per-analyst bounds; Model is filled per provider.
	Analyst AnalystOptions
}

// Pipeline runs the full multi-analyst flow for one job: each requested
// role gets a fresh conversation and its assigned tools, the per-role
// reports feed the final decision, and an optional risk pass reviews it.
type Pipeline struct {
	providers *ai.Registry
	tools     *tools.Registry
	opts      PipelineOptions
	log       *logger.Logger
}

// NewPipeline wires the pipeline to its provider and tool registries.
func NewPipeline(providers *ai.Registry, toolRegistry *tools.Registry, opts PipelineOptions) *Pipeline {
	return &Pipeline{
		providers: providers,
		tools:     toolRegistry,
		opts:      opts,
		log:       logger.Get().With("component", "pipeline"),
	}
}

// Run executes the analysis described by params. A returned error means
// the job must be marked failed; analyst-level degradation is absorbed
// into the reports instead.
func (p *Pipeline) Run(ctx context.Context, params JobParams) (*Result, error) {
	client, err := p.providers.Get(params.LLMProvider)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve provider %q", params.LLMProvider)
	}

	opts := p.opts.Analyst
	opts.Model = p.opts.Models[client.Name()]

	job := JobContext{
		Symbol:   params.Symbol,
		Market:   params.Market,
		AsOfDate: params.AsOfDate,
	}

	// Each re-entry is one model turn; deeper research allows more tool
	// exchanges before the run is considered stuck.
	entryCap := 2*params.ResearchDepth + 2

	reports := make(map[string]string, len(params.Analysts))
	for _, role := range params.Analysts {
		report, err := p.runAnalyst(ctx, role, client, opts, job, entryCap)
		if err != nil {
			return nil, err
		}
		reports[role] = report
	}

	action, decision := p.decide(ctx, client, opts, params.Symbol, reports, params.Analysts)

	result := &Result{
		Success:  true,
		Action:   action,
		Decision: decision,
		Reports:  reports,
	}

	if params.IncludeRiskAssessment {
		result.RiskAssessment = p.assessRisk(ctx, client, opts, params.Symbol, reports, params.Analysts)
	}

	return result, nil
}

func (p *Pipeline) runAnalyst(ctx context.Context, role string, client ai.ChatClient,
	opts AnalystOptions, job JobContext, entryCap int) (string, error) {

	analyst := NewAnalyst(role, client, p.tools.ForNames(tools.AssignmentsFor(role)), opts)
	conv := &Conversation{}

	for entry := 0; entry < entryCap; entry++ {
		report, done, err := analyst.Step(ctx, conv, job)
		if err != nil {
			return "", errors.Wrapf(err, "%s analyst", role)
		}
		if done {
			p.log.Infof("%s analyst finished for %s after %d entries", role, job.Symbol, entry+1)
			return report, nil
		}
	}

	return "", errors.Wrapf(errors.ErrRoundLimit,
		"%s analyst did not converge within %d entries", role, entryCap)
}

var actionPattern = regexp.MustCompile(`\b(BUY|SELL|HOLD)\b`)

// decide asks the model for the final call. If that inference fails, the
// reports are tallied by keyword so the job still carries a decision.
func (p *Pipeline) decide(ctx context.Context, client ai.ChatClient, opts AnalystOptions,
	symbol string, reports map[string]string, order []string) (action, decision string) {

	trader := NewAnalyst("decision", client, nil, opts)
	conv := &Conversation{}
	conv.Append(
		ai.Message{Role: ai.RoleSystem, Content: decisionPrompt},
		ai.Message{Role: ai.RoleUser, Content: decisionUserPrompt(symbol, reports, order)},
	)

	resp, err := trader.infer(ctx, conv, false)
	if err != nil {
		p.log.Warnf("decision inference failed for %s, falling back to report vote: %v", symbol, err)
		return voteAction(reports), "Decision derived from analyst report consensus; the model decision call failed."
	}

	text := resp.Choices[0].Message.Content
	if match := actionPattern.FindString(strings.ToUpper(text)); match != "" {
		return match, text
	}

	p.log.Warnf("decision for %s contained no action keyword, falling back to report vote", symbol)
	return voteAction(reports), text
}

// voteAction tallies action keywords across the analyst reports. Ties and
// empty tallies resolve to HOLD: acting on a split verdict is worse than
// standing still.
func voteAction(reports map[string]string) string {
	votes := map[string]int{}
	for _, report := range reports {
		for _, match := range actionPattern.FindAllString(strings.ToUpper(report), -1) {
			votes[match]++
		}
	}

	switch {
	case votes["BUY"] > votes["SELL"] && votes["BUY"] > votes["HOLD"]:
		return "BUY"
	case votes["SELL"] > votes["BUY"] && votes["SELL"] > votes["HOLD"]:
		return "SELL"
	default:
		return "HOLD"
	}
}

func (p *Pipeline) assessRisk(ctx context.Context, client ai.ChatClient, opts AnalystOptions,
	symbol string, reports map[string]string, order []string) string {

	risk := NewAnalyst("risk", client, nil, opts)
	conv := &Conversation{}
	conv.Append(
		ai.Message{Role: ai.RoleSystem, Content: riskPrompt},
		ai.Message{Role: ai.RoleUser, Content: decisionUserPrompt(symbol, reports, order)},
	)

	resp, err := risk.infer(ctx, conv, false)
	if err != nil {
		p.log.Warnf("risk inference failed for %s: %v", symbol, err)
		return "Risk assessment is unavailable: the model call failed."
	}
	return resp.Choices[0].Message.Content
}
