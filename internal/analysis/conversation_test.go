package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"manbo/internal/adapters/ai"
)

func TestConversationAppendOnly(t *testing.T) {
	conv := NewConversation("system text", "user text")
	assert.Equal(t, 2, conv.Len())

	conv.Append(ai.Message{Role: ai.RoleAssistant, Content: "answer"})
	assert.Equal(t, 3, conv.Len())

	msgs := conv.Messages()
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, "user text", msgs[1].Content)
	assert.Equal(t, "answer", msgs[2].Content)
}

func TestConversationHasToolResult(t *testing.T) {
	conv := NewConversation("s", "u")
	assert.False(t, conv.HasToolResult())

	conv.Append(ai.Message{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "c1"}}})
	assert.False(t, conv.HasToolResult())

	conv.Append(ai.Message{Role: ai.RoleTool, Content: "data", ToolCallID: "c1"})
	assert.True(t, conv.HasToolResult())
}

func TestTaskPromptFraming(t *testing.T) {
	initial := taskPrompt("market", "AAPL", "US", "2026-08-01", false)
	assert.Contains(t, initial, "must first call your data tool")
	assert.Contains(t, initial, "AAPL")
	assert.Contains(t, initial, "2026-08-01")

	followup := taskPrompt("market", "AAPL", "US", "", true)
	assert.Contains(t, followup, "Do not call any more tools")
}

func TestDegradedReportNamesRoleAndSymbol(t *testing.T) {
	report := degradedReport("news", "TSLA", "provider offline")
	assert.Contains(t, report, "News")
	assert.Contains(t, report, "TSLA")
	assert.Contains(t, report, "provider offline")
	assert.Contains(t, report, "unavailable")
}

func TestSystemPromptFallsBackForUnknownRole(t *testing.T) {
	known := systemPromptFor("market")
	assert.Contains(t, known, "market analyst")

	unknown := systemPromptFor("astrology")
	assert.Contains(t, unknown, "financial analyst")
}
