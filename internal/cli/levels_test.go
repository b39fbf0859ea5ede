package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels_Text(t *testing.T) {
	out, err := execute(t, "levels")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "1_1")
	assert.Contains(t, out, "Square")
}

func TestLevels_JSON(t *testing.T) {
	out, err := execute(t, "levels", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []LevelInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "1_1", resp.Data[0].ID)
	assert.Equal(t, 3, resp.Data[0].Ideal)
}

func TestLevels_FromDirectory(t *testing.T) {
	dir := writeLevels(t, `package levels

level: "a": {
	title: "Line"
	ideal: 1
	answer: "Turtle.moveForward(50);"
}
`)
	out, err := execute(t, "levels", "--levels", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Line")
	assert.NotContains(t, out, "Square")
}

func TestLevels_MissingDirectory(t *testing.T) {
	out, err := execute(t, "levels", "--levels", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

// writeLevels writes a CUE level package to a temp directory.
func writeLevels(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "levels.cue"), []byte(src), 0o644))
	return dir
}
