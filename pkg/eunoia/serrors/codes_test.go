package serrors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CoversEveryCode(t *testing.T) {
	require.Len(t, Codes(), 27)

	seen := make(map[string]bool)

	for i, c := range Codes() {
		entry := registry[c]

		assert.Equalf(t, c, entry.code, "TEST[%d], Failed.\nregistry entry out of order", i)
		assert.NotEmptyf(t, c.String(), "TEST[%d], Failed.\nempty name", i)
		assert.NotEmptyf(t, c.UserMessage(), "TEST[%d], Failed.\nempty user message for %s", i, c)
		assert.Falsef(t, seen[c.String()], "TEST[%d], Failed.\nduplicate name %s", i, c)

		seen[c.String()] = true
	}
}

func TestCode_Retryable(t *testing.T) {
	retryable := map[Code]bool{
		Network:            true,
		Timeout:            true,
		ServerError:        true,
		RateLimited:        true,
		ServiceUnavailable: true,
		MLUnavailable:      true,
		DataLoad:           true,
	}

	for i, c := range Codes() {
		assert.Equalf(t, retryable[c], c.Retryable(), "TEST[%d], Failed.\n%s", i, c)
	}

	assert.False(t, Code(-1).Retryable())
	assert.False(t, codeCount.Retryable())
}

func TestCode_OutOfRange(t *testing.T) {
	c := Code(99)

	assert.False(t, c.Valid())
	assert.Equal(t, "code(99)", c.String())
	assert.Equal(t, Unknown.UserMessage(), c.UserMessage())
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		code Code
		ok   bool
	}{
		{"exact name", "auth-token-expired", AuthTokenExpired, true},
		{"mixed case and spaces", "  Not-Found ", NotFound, true},
		{"ml code", "ml-model-load", MLModelLoad, true},
		{"unknown name", "teapot", Unknown, false},
		{"empty", "", Unknown, false},
	}

	for i, tc := range tests {
		code, ok := ParseCode(tc.in)

		assert.Equalf(t, tc.code, code, "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.ok, ok, "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

func TestCode_TextEncoding(t *testing.T) {
	b, err := json.Marshal(map[string]Code{"code": DataNotFound})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"data-not-found"}`, string(b))

	var decoded struct {
		Code Code `json:"code"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"code":"rate-limited"}`), &decoded))
	assert.Equal(t, RateLimited, decoded.Code)

	err = json.Unmarshal([]byte(`{"code":"nope"}`), &decoded)
	require.ErrorIs(t, err, errUnknownCode)
}
