package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"manbo/pkg/errors"
)

// JobStatus is the lifecycle state of an analysis job. Transitions are
// monotonic: queued -> running -> completed|failed. Terminal states absorb.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var validTransitions = map[JobStatus][]JobStatus{
	StatusQueued:  {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from to next is allowed.
func CanTransition(from, next JobStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// JobParams is the client-supplied request for an analysis run.
type JobParams struct {
	Symbol                string   `json:"symbol"`
	Market                string   `json:"market"`
	AsOfDate              string   `json:"as_of_date,omitempty"`
	ResearchDepth         int      `json:"research_depth"`
	LLMProvider           string   `json:"llm_provider,omitempty"`
	Analysts              []string `json:"analysts,omitempty"`
	IncludeRiskAssessment bool     `json:"include_risk_assessment"`
}

// Normalize fills defaults and canonicalizes fields in place.
func (p *JobParams) Normalize(defaultAnalysts []string) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	p.Market = strings.ToUpper(strings.TrimSpace(p.Market))
	if p.ResearchDepth <= 0 {
		p.ResearchDepth = 1
	}
	if len(p.Analysts) == 0 {
		p.Analysts = append([]string(nil), defaultAnalysts...)
	}
	for i, role := range p.Analysts {
		p.Analysts[i] = strings.ToLower(strings.TrimSpace(role))
	}
}

// Validate checks the params after normalization. Failures are reported
// before any job record is created.
func (p *JobParams) Validate(knownRoles map[string]bool) error {
	if p.Symbol == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "symbol is required")
	}
	if p.Market == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "market is required")
	}
	if p.ResearchDepth > 5 {
		return errors.Wrapf(errors.ErrInvalidRequest, "research_depth %d exceeds maximum 5", p.ResearchDepth)
	}
	if p.AsOfDate != "" {
		if _, err := time.Parse("2006-01-02", p.AsOfDate); err != nil {
			return errors.Wrapf(errors.ErrInvalidRequest, "as_of_date %q is not YYYY-MM-DD", p.AsOfDate)
		}
	}
	for _, role := range p.Analysts {
		if !knownRoles[role] {
			return errors.Wrapf(errors.ErrInvalidRequest, "unknown analyst role %q", role)
		}
	}
	return nil
}

// JobRecord is the stored state of a job. Result and Error are mutually
// exclusive and only set in terminal states.
type JobRecord struct {
	ID          string                 `json:"id"`
	Status      JobStatus              `json:"status"`
	Params      JobParams              `json:"params"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// NewJobID generates an identifier of the form
// analysis_<8 hex chars>_<timestamp>.
func NewJobID(now time.Time) string {
	return fmt.Sprintf("analysis_%s_%s",
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		now.Format("20060102_150405"))
}
