package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSite(t *testing.T) {
	root := homeSite(t)

	out, _, err := execute(t, "validate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Site valid")

	_, err = os.Stat(filepath.Join(root, "tmp", "nanoc", "store.db"))
	assert.True(t, os.IsNotExist(err), "validate does not create a store")
}

func TestValidateValidSiteJSON(t *testing.T) {
	root := homeSite(t)

	out, _, err := execute(t, "validate", "--root", root, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateAfterCompileHasNoWarnings(t *testing.T) {
	root := homeSite(t)
	_, _, err := execute(t, "compile", "--root", root)
	require.NoError(t, err)

	out, _, err := execute(t, "validate", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, "✓ Site valid\n", out)
}

func TestValidateRulesSyntaxError(t *testing.T) {
	root := homeSite(t)
	writeFile(t, root, "rules.cue", "compile: [\n")

	out, _, err := execute(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, ErrCodeRules)
}

func TestValidateUnmatchedItem(t *testing.T) {
	root := homeSite(t)
	writeFile(t, root, "content/logo.png", "png")

	out, _, err := execute(t, "validate", "--root", root, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Errors, 1)
	assert.Contains(t, resp.Data.Errors[0].Message, "/logo.png")
}
