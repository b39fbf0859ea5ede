package cli

import (
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRender_Answer tests drawing a level's answer at a custom size.
func TestRender_Answer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.png")
	out, err := execute(t, "render", "1_1", "-o", path, "--width", "200", "--height", "150", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1_1", resp.Data.Level)
	assert.Equal(t, path, resp.Data.Output)
	assert.Positive(t, resp.Data.Actions)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

// TestRender_NotRecorded tests that renders are never graded or stored.
func TestRender_NotRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.png")
	_, err := execute(t, "render", "1_1", lineProgram, "-o", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

// TestRender_RequiresOutput tests the required flag.
func TestRender_RequiresOutput(t *testing.T) {
	_, err := execute(t, "render", "1_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}
