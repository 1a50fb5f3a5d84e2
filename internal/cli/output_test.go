package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"plain", ""},
		{"tagged with run", "run-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			out := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, out.SuccessRun(tt.token, []int{1, 2}))

			resp := decodeResponse(t, buf)
			assert.Equal(t, "ok", resp.Status)
			assert.Equal(t, []any{1.0, 2.0}, resp.Data)
			assert.Equal(t, tt.token, resp.RunToken)
			assert.Nil(t, resp.Error)
		})
	}
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &OutputFormatter{Format: "json", Writer: buf}
	details := map[string]string{"source": "spotify", "item_id": "s1"}
	require.NoError(t, out.Error("INVALID_RECORD", "song has no artist id", details))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_RECORD", resp.Error.Code)
	assert.Equal(t, "song has no artist id", resp.Error.Message)
	assert.Equal(t, map[string]any{"source": "spotify", "item_id": "s1"}, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		out := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, out.Success("library up to date"))
		assert.Equal(t, "library up to date\n", buf.String())
	})

	t.Run("error hides details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		out := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, out.Error("NOT_FOUND", "song 9 not found", map[string]int{"id": 9}))
		assert.Equal(t, "Error [NOT_FOUND]: song 9 not found\n", buf.String())
	})

	t.Run("verbose error shows details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		out := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
		require.NoError(t, out.Error("SOURCE_FAILED", "pull songs failed", "spotify"))
		assert.Contains(t, buf.String(), "Error [SOURCE_FAILED]")
		assert.Contains(t, buf.String(), "Details: spotify")
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("pulling %s", "spotify")
	assert.Empty(t, out.String())

	loud := &OutputFormatter{Format: "text", Writer: out, Verbose: true}
	loud.VerboseLog("pulling %s", "spotify")
	assert.Equal(t, "pulling spotify\n", out.String())

	out.Reset()
	split := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}
	split.VerboseLog("opened %s", "library.db")
	assert.Empty(t, out.String(), "diagnostics must not corrupt JSON output")
	assert.Equal(t, "opened library.db\n", diag.String())
}

func TestOutputFormatter_TablePlainWhenNotTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &OutputFormatter{Format: "text", Writer: buf}

	out.Table([]string{"ID", "Title"}, [][]string{{"1", "Dive"}, {"2", "Sliver"}}, 0)

	assert.Equal(t, "1\tDive\n2\tSliver\n", buf.String())
}

func TestRenderTable(t *testing.T) {
	rendered := renderTable([]string{"ID", "Title"}, [][]string{{"12", "Dive"}, {"3"}}, []int{0})

	assert.Contains(t, rendered, "ID")
	assert.Contains(t, rendered, "Dive")
	assert.Equal(t, 6, strings.Count(rendered, "\n")+1, "header, rows and three rules")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "locked", errors.New("busy"))), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("database is locked")
	err := WrapExitError(ExitCommandError, "library is busy", cause)

	assert.Equal(t, "library is busy: database is locked", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad flag", NewExitError(ExitCommandError, "bad flag").Error())
}
