package logging

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"eunoia.dev/pkg/eunoia/testutil"
)

func TestLogger_Log(t *testing.T) {
	testLogStatement := "hello info log!"

	f := func() {
		logger := NewLogger(DEBUG)
		logger.Log(testLogStatement)
	}

	output := testutil.StdoutOutputForFunc(f)
	assertMessageInJSONLog(t, output, testLogStatement)
}

func TestLogger_Warnf(t *testing.T) {
	testLogStatement := "token expires soon"

	f := func() {
		logger := NewLogger(DEBUG)
		logger.Warnf("%s", testLogStatement)
	}

	output := testutil.StdoutOutputForFunc(f)

	assertMessageInJSONLog(t, output, testLogStatement)
}

func TestLogger_Error(t *testing.T) {
	testLogStatement := "hello error log!"

	f := func() {
		logger := NewLogger(DEBUG)
		logger.Error(testLogStatement)
	}

	output := testutil.StderrOutputForFunc(f)

	assertMessageInJSONLog(t, output, testLogStatement)
}

func TestLogger_LevelFiltering(t *testing.T) {
	f := func() {
		logger := NewLogger(WARN)
		logger.Info("dropped")
		logger.Debugf("dropped %d", 2)
	}

	output := testutil.StdoutOutputForFunc(f)

	assert.Empty(t, output)
}

func TestLogger_TraceIDExtraction(t *testing.T) {
	f := func() {
		logger := NewLogger(INFO)
		logger.Info(map[string]any{"__trace_id__": "abc123"}, "refreshed")
	}

	output := testutil.StdoutOutputForFunc(f)

	var l entry

	_ = json.Unmarshal([]byte(output), &l)

	assert.Equal(t, "abc123", l.TraceID)
	assert.Equal(t, "refreshed", l.Message)
}

type failedCall struct{ id, code string }

func (f failedCall) RequestID() string { return f.id }
func (f failedCall) ErrorCode() string { return f.code }
func (f failedCall) String() string    { return "call failed" }

func TestLogger_CorrelatesFailures(t *testing.T) {
	tests := []struct {
		desc   string
		log    func(Logger)
		id     string
		code   string
		output func(func()) string
	}{
		{"record as the message", func(l Logger) { l.Error(failedCall{"err_1_a", "timeout"}) },
			"err_1_a", "timeout", testutil.StderrOutputForFunc},
		{"record as a format argument", func(l Logger) { l.Warnf("retry gave up: %v", failedCall{"err_2_b", "network"}) },
			"err_2_b", "network", testutil.StdoutOutputForFunc},
		{"first record wins", func(l Logger) { l.Info(failedCall{"err_3_c", "unauthorized"}, failedCall{"err_4_d", "unknown"}) },
			"err_3_c", "unauthorized", testutil.StdoutOutputForFunc},
		{"plain message", func(l Logger) { l.Info("refreshed") }, "", "", testutil.StdoutOutputForFunc},
	}

	for i, tc := range tests {
		output := tc.output(func() { tc.log(NewLogger(DEBUG)) })

		var l map[string]any

		assert.NoErrorf(t, json.Unmarshal([]byte(output), &l), "TEST[%d], Failed.\n%s", i, tc.desc)

		if tc.id == "" {
			assert.NotContainsf(t, l, "request_id", "TEST[%d], Failed.\n%s", i, tc.desc)
			assert.NotContainsf(t, l, "error_code", "TEST[%d], Failed.\n%s", i, tc.desc)

			continue
		}

		assert.Equalf(t, tc.id, l["request_id"], "TEST[%d], Failed.\n%s", i, tc.desc)
		assert.Equalf(t, tc.code, l["error_code"], "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}

type leveledErr struct{}

func (leveledErr) Error() string   { return "leveled" }
func (leveledErr) LogLevel() Level { return WARN }

func TestGetLogLevelForError(t *testing.T) {
	assert.Equal(t, WARN, GetLogLevelForError(leveledErr{}))
	assert.Equal(t, ERROR, GetLogLevelForError(errors.New("plain")))
}

func TestMockLogger_Entries(t *testing.T) {
	m := NewMockLogger(INFO)

	testutil.StderrOutputForFunc(func() {
		testutil.StdoutOutputForFunc(func() {
			m.Debug("hidden")
			m.Infof("count %d", 3)
			m.Warn("careful")
			m.Error("broken")
		})
	})

	entries := m.Entries()

	assert.Len(t, entries, 3)
	assert.Equal(t, "count 3", entries[0].Message)
	assert.Len(t, m.EntriesAt(WARN), 1)
	assert.Len(t, m.EntriesAt(ERROR), 1)
}

func assertMessageInJSONLog(t *testing.T, logLine, expectation string) {
	t.Helper()

	var l entry
	_ = json.Unmarshal([]byte(logLine), &l)

	if l.Message != expectation {
		t.Errorf("Log mismatch. Expected: %s Got: %s", expectation, l.Message)
	}
}
