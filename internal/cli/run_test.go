package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_Paced tests a paced replay at full speed.
func TestRun_Paced(t *testing.T) {
	out, err := execute(t, "run", "1_1", squareProgram, "--speed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Level 1_1, attempt 1: AllPass")
}

// TestRun_NotCompleted tests the exit code of a failed paced run.
func TestRun_NotCompleted(t *testing.T) {
	_, err := execute(t, "run", "1_1", lineProgram, "--speed", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

// TestRun_RecordsAttempt tests that paced runs are recorded like
// instant ones.
func TestRun_RecordsAttempt(t *testing.T) {
	db := filepath.Join(t.TempDir(), "turtle.db")
	_, err := execute(t, "run", "1_1", squareProgram, "--speed", "1", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "attempts", "--db", db, "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "AllPass")
	assert.Contains(t, out, "total")
}
