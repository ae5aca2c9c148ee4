package processor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage(t *testing.T) {
	raw := json.RawMessage(`{
		"jobId": {"S": "abc123"},
		"count": {"N": "42"},
		"ratio": {"N": "0.5"},
		"enabled": {"BOOL": true},
		"missing": {"NULL": true},
		"tags": {"SS": ["a", "b"]},
		"nested": {"M": {"inner": {"S": "x"}, "list": {"L": [{"N": "1"}, {"S": "two"}]}}}
	}`)

	got, err := DecodeImage(raw)
	require.NoError(t, err)

	assert.Equal(t, "abc123", got["jobId"])
	assert.Equal(t, int64(42), got["count"])
	assert.Equal(t, 0.5, got["ratio"])
	assert.Equal(t, true, got["enabled"])
	assert.Nil(t, got["missing"])
	assert.Contains(t, got, "missing")
	assert.Equal(t, []interface{}{"a", "b"}, got["tags"])

	nested := got["nested"].(map[string]interface{})
	assert.Equal(t, "x", nested["inner"])
	assert.Equal(t, []interface{}{int64(1), "two"}, nested["list"])
}

func TestDecodeImage_Empty(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null")} {
		got, err := DecodeImage(raw)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := DecodeImage(json.RawMessage(`{"jobId": "not-an-attribute"}`))
	assert.Error(t, err)
}

func TestBoolField(t *testing.T) {
	m := map[string]interface{}{"a": true, "b": "true", "c": "nope", "d": int64(1)}
	assert.True(t, boolField(m, "a"))
	assert.True(t, boolField(m, "b"))
	assert.False(t, boolField(m, "c"))
	assert.False(t, boolField(m, "d"))
	assert.False(t, boolField(m, "e"))
}
