package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return New(name, "echoes its symbol",
		ObjectSchema(map[string]interface{}{
			"symbol": StringProperty("symbol to echo"),
		}, []string{"symbol"}),
		func(_ context.Context, args map[string]interface{}) (string, error) {
			symbol, _ := args["symbol"].(string)
			return symbol, nil
		})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoTool("get_market_data"))

	tool, ok := registry.Get("get_market_data")
	require.True(t, ok)
	assert.Equal(t, "get_market_data", tool.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistryForNamesSkipsUnknown(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoTool("get_market_data"))
	registry.Register(echoTool("get_fundamentals"))

	resolved := registry.ForNames([]string{"get_market_data", "get_astrology", "get_fundamentals"})
	require.Len(t, resolved, 2)
	assert.Equal(t, "get_market_data", resolved[0].Name())
	assert.Equal(t, "get_fundamentals", resolved[1].Name())
}

func TestFunctionToolExecute(t *testing.T) {
	tool := echoTool("echo")

	out, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out)
}

func TestObjectSchemaShape(t *testing.T) {
	schema := ObjectSchema(map[string]interface{}{
		"symbol": StringProperty("the symbol"),
		"count":  IntProperty("a count"),
	}, []string{"symbol"})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"symbol"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	assert.Equal(t, "string", props["symbol"].(map[string]interface{})["type"])
	assert.Equal(t, "integer", props["count"].(map[string]interface{})["type"])
}

func TestAssignments(t *testing.T) {
	assert.Equal(t, []string{"get_market_data"}, AssignmentsFor("market"))
	assert.Equal(t, []string{"get_social_sentiment"}, AssignmentsFor("social"))
	assert.Nil(t, AssignmentsFor("astrology"))

	assert.ElementsMatch(t, []string{"market", "fundamentals", "news", "social"}, Roles())
}
