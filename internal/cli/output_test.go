package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/site"
)

func decodeResponse(t *testing.T, b []byte) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(b, &resp))
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(CompileSummary{RunID: "r1", Outdated: []string{"rep:/a.md#default"}}))
	resp := decodeResponse(t, buf.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", data["run_id"])
	assert.Contains(t, buf.String(), "\n  \"status\"", "responses are indented")

	buf.Reset()
	require.NoError(t, f.Error(ErrCodeRules, "rules.cue:3: expected string", map[string]any{"file": "rules.cue", "line": 3}))
	resp = decodeResponse(t, buf.Bytes())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRules, resp.Error.Code)
	assert.Equal(t, "rules.cue:3: expected string", resp.Error.Message)
	assert.Equal(t, map[string]any{"file": "rules.cue", "line": float64(3)}, resp.Error.Details)
	assert.Nil(t, resp.Data)
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"quiet", false, "Error [E004]: load items: permission denied\n"},
		{"verbose", true, "Error [E004]: load items: permission denied\nDetails: content/\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := &OutputFormatter{Format: "text", Writer: &buf, Verbose: tt.verbose}
			require.NoError(t, f.Error(ErrCodeSource, "load items: permission denied", "content/"))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success("✓ Site valid"))
	assert.Equal(t, "✓ Site valid\n", buf.String())
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}
	f.VerboseLog("loaded %d items", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 items\n", errOut.String())

	errOut.Reset()
	f.Verbose = false
	f.VerboseLog("loaded %d items", 3)
	assert.Empty(t, errOut.String())

	// Without an ErrWriter the main writer is used.
	f = &OutputFormatter{Format: "text", Writer: &out, Verbose: true}
	f.VerboseLog("hello")
	assert.Equal(t, "hello\n", out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))

	err := WrapExitError(ExitFailure, ErrCodeCompilation, errors.New("template: no such key"))
	assert.Equal(t, "E006: template: no such key", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "template: no such key")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"command", &CommandError{Code: ErrCodeRules, Message: "invalid rules"}, ErrCodeRules, ExitCommandError},
		{"wrapped command", fmt.Errorf("compile: %w", &CommandError{Code: ErrCodeStore, Message: "locked"}), ErrCodeStore, ExitCommandError},
		{"compilation", &engine.CompilationError{Rep: site.RepRef("/a.md", "default"), Err: errors.New("boom")}, ErrCodeCompilation, ExitFailure},
		{"runtime", engine.NewCycleError([]site.Ref{site.RepRef("/a.md", "default")}), ErrCodeRuntime, ExitFailure},
		{"other", errors.New("boom"), ErrCodeGeneric, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	partial := &CompileSummary{RunID: "r2", Pending: []string{"rep:/b.md#default"}}
	err := f.Fail(engine.NewCycleError([]site.Ref{site.RepRef("/a.md", "default")}), partial)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsCycleError(err))

	resp := decodeResponse(t, buf.Bytes())
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRuntime, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "DEPENDENCY_CYCLE")
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r2", details["run_id"])
}
