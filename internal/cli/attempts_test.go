package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/store"
)

// seedAttempts writes a small attempt database.
func seedAttempts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turtle.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	for _, r := range []ir.Report{
		{SessionID: "alice", LevelID: "1_1", Attempt: 1, Tier: ir.TierMissingRequiredConstructFail, Source: "a"},
		{SessionID: "alice", LevelID: "1_1", Attempt: 2, Tier: ir.TierAllPass, Succeeded: true, Source: "b", ElapsedMs: 1500},
		{SessionID: "bob", LevelID: "1_1", Attempt: 1, Tier: ir.TierAllPass, Succeeded: true, Source: "c"},
		{SessionID: "bob", LevelID: "1_2", Attempt: 1, Tier: ir.TierLevelIncompleteFail, Source: "d"},
	} {
		require.NoError(t, st.Report(ctx, r))
	}
	return path
}

func TestAttempts_List(t *testing.T) {
	out, err := execute(t, "attempts", "--db", seedAttempts(t))
	require.NoError(t, err)
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "LevelIncompleteFail")
}

func TestAttempts_FilterJSON(t *testing.T) {
	out, err := execute(t, "attempts", "--db", seedAttempts(t), "--session", "alice", "--tier", "AllPass", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []store.Attempt `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alice", resp.Data[0].SessionID)
	assert.Equal(t, int64(2), resp.Data[0].Attempt)
}

func TestAttempts_Summary(t *testing.T) {
	out, err := execute(t, "attempts", "--db", seedAttempts(t), "--level", "1_1", "--summary")
	require.NoError(t, err)
	assert.Regexp(t, `AllPass\s+2`, out)
	assert.Regexp(t, `MissingRequiredConstructFail\s+1`, out)
	assert.Regexp(t, `total\s+3`, out)
}

func TestAttempts_BadTier(t *testing.T) {
	_, err := execute(t, "attempts", "--db", seedAttempts(t), "--tier", "Gold")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAttempts_MissingDatabase(t *testing.T) {
	out, err := execute(t, "attempts", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}
