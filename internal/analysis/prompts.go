package analysis

import (
	"fmt"
	"strings"
)

var roleDescriptions = map[string]string{
	"market": "You are a market analyst. You study recent price action and technical " +
		"indicators (RSI, MACD, moving averages, KDJ) and translate them into a trading " +
		"view: trend direction, momentum, support and resistance.",
	"fundamentals": "You are a fundamentals analyst. You evaluate a company's price " +
		"structure over the past year: 52-week range, position within it, volume " +
		"patterns, and what they imply about accumulation or distribution.",
	"news": "You are a news analyst. You read recent headlines about a company and " +
		"assess their likely impact on the stock: catalysts, risks, and the overall " +
		"tone of coverage.",
	"social": "You are a social sentiment analyst. You read retail investor " +
		"discussions and gauge crowd positioning: bullish or bearish mood, conviction, " +
		"and contrarian signals.",
}

const riskPrompt = "You are a risk manager. Given the analyst reports below, identify " +
	"the key risks of acting on the proposed direction: what could invalidate the " +
	"thesis, position sizing concerns, and conditions that should trigger an exit. " +
	"Be concise and concrete."

const decisionPrompt = "You are the head trader. Based on the analyst reports below, " +
	"issue a final trading decision for the symbol. Your answer must contain exactly " +
	"one of the words BUY, SELL or HOLD, followed by a short rationale."

// systemPromptFor returns the system prompt for an analyst role.
func systemPromptFor(role string) string {
	desc, ok := roleDescriptions[role]
	if !ok {
		desc = "You are a financial analyst."
	}
	return desc + " Write your findings as a structured markdown report."
}

// taskPrompt frames the user turn. An analyst with no tool output yet is
// instructed to call its tool; one that already holds data is instructed
// to analyze and must not call tools again.
func taskPrompt(role, symbol, market, asOfDate string, hasToolResult bool) string {
	subject := fmt.Sprintf("%s (market: %s)", symbol, market)
	if asOfDate != "" {
		subject += fmt.Sprintf(" as of %s", asOfDate)
	}

	if hasToolResult {
		return fmt.Sprintf(
			"You now have the data you requested for %s above. Do not call any more tools. "+
				"Write your %s analysis report based on that data.", subject, role)
	}
	return fmt.Sprintf(
		"Analyze %s. You must first call your data tool to retrieve current information; "+
			"do not answer from memory.", subject)
}

// decisionUserPrompt assembles the head-trader turn from the per-role
// reports.
func decisionUserPrompt(symbol string, reports map[string]string, order []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	for _, role := range order {
		report, ok := reports[role]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "--- %s analyst report ---\n%s\n\n", role, report)
	}
	b.WriteString("Issue the final decision now.")
	return b.String()
}

// degradedReport is the placeholder emitted when inference fails and the
// analyst cannot produce a real report. The job still completes; the
// pipeline records the degradation instead of aborting.
func degradedReport(role, symbol, reason string) string {
	return fmt.Sprintf(
		"%s analysis for %s is unavailable: %s. Treat this perspective as missing "+
			"when weighing the final decision.", capitalize(role), symbol, reason)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
