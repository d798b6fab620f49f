package analysis

// Flatten merges a result into the single map stored on the job record.
// Per-role reports are keyed as "<role>_report"; decision-level fields are
// applied last so they win over any identically named report key.
func Flatten(result *Result) map[string]interface{} {
	flat := make(map[string]interface{}, len(result.Reports)+5)

	for role, report := range result.Reports {
		flat[role+"_report"] = report
	}

	if result.RiskAssessment != "" {
		flat["risk_assessment"] = result.RiskAssessment
	}

	flat["success"] = result.Success
	if result.Action != "" {
		flat["action"] = result.Action
	}
	if result.Decision != "" {
		flat["decision"] = result.Decision
	}
	if result.Error != "" {
		flat["error"] = result.Error
	}

	return flat
}
