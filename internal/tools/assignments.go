package tools

// Role-to-tool assignments. Each analyst role gets the data tools relevant
// to its report section; the agent loop binds only these to the model.
var roleAssignments = map[string][]string{
	"market":       {"get_market_data"},
	"fundamentals": {"get_fundamentals"},
	"news":         {"get_company_news"},
	"social":       {"get_social_sentiment"},
}

// AssignmentsFor returns the tool names bound to an analyst role.
func AssignmentsFor(role string) []string {
	names, ok := roleAssignments[role]
	if !ok {
		return nil
	}

	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Roles returns all roles with tool assignments.
func Roles() []string {
	roles := make([]string, 0, len(roleAssignments))
	for role := range roleAssignments {
		roles = append(roles, role)
	}
	return roles
}
