package mcp

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringArg(t *testing.T) {
	t.Parallel()

	t.Run("required string present", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"name": "test-value",
		}
		result, err := parseStringArg(argsMap, "name", true)
		require.NoError(t, err)
		assert.Equal(t, "test-value", result)
	})

	t.Run("required string missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result, err := parseStringArg(argsMap, "name", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name parameter is required")
		assert.Empty(t, result)
	})

	t.Run("required string empty", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"name": "",
		}
		result, err := parseStringArg(argsMap, "name", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
		assert.Empty(t, result)
	})

	t.Run("optional string missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result, err := parseStringArg(argsMap, "name", false)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("optional string empty", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"name": "",
		}
		result, err := parseStringArg(argsMap, "name", false)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("wrong type", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"name": 42,
		}
		result, err := parseStringArg(argsMap, "name", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name must be a string")
		assert.Empty(t, result)
	})
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()

	t.Run("int present", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"limit": float64(42), // MCP sends numbers as float64
		}
		result := parseIntArg(argsMap, "limit", 10)
		assert.Equal(t, 42, result)
	})

	t.Run("int missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result := parseIntArg(argsMap, "limit", 10)
		assert.Equal(t, 10, result)
	})

	t.Run("wrong type", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"limit": "not-a-number",
		}
		result := parseIntArg(argsMap, "limit", 10)
		assert.Equal(t, 10, result) // Returns default on invalid type
	})

	t.Run("zero value", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"limit": float64(0),
		}
		result := parseIntArg(argsMap, "limit", 10)
		assert.Equal(t, 0, result) // 0 is valid
	})
}

func TestParseBoolArg(t *testing.T) {
	t.Parallel()

	t.Run("bool true", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"flag": true,
		}
		result := parseBoolArg(argsMap, "flag", false)
		assert.True(t, result)
	})

	t.Run("bool false", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"flag": false,
		}
		result := parseBoolArg(argsMap, "flag", true)
		assert.False(t, result)
	})

	t.Run("bool missing", func(t *testing.T) {
		argsMap := map[string]interface{}{}
		result := parseBoolArg(argsMap, "flag", true)
		assert.True(t, result) // Returns default
	})

	t.Run("wrong type", func(t *testing.T) {
		argsMap := map[string]interface{}{
			"flag": "not-a-bool",
		}
		result := parseBoolArg(argsMap, "flag", true)
		assert.True(t, result) // Returns default on invalid type
	})
}

func TestRequireBoolArg(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		b, err := requireBoolArg(map[string]interface{}{"enabled": false}, "enabled")
		require.NoError(t, err)
		assert.False(t, b)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := requireBoolArg(map[string]interface{}{}, "enabled")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enabled parameter is required")
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := requireBoolArg(map[string]interface{}{"enabled": "yes"}, "enabled")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enabled must be a boolean")
	})
}

func TestArgsMap(t *testing.T) {
	t.Parallel()

	t.Run("nil arguments", func(t *testing.T) {
		m, err := argsMap(mcp.CallToolRequest{})
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("map arguments", func(t *testing.T) {
		m, err := argsMap(mcp.CallToolRequest{
			Params: mcp.CallToolParams{Arguments: map[string]interface{}{"a": "b"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "b", m["a"])
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := argsMap(mcp.CallToolRequest{
			Params: mcp.CallToolParams{Arguments: "not a map"},
		})
		assert.Error(t, err)
	})
}
