package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/square_passes.yaml")
	require.NoError(t, err)

	assert.Equal(t, "square_passes", scenario.Name)
	assert.Equal(t, "1_1", scenario.Level)
	require.Len(t, scenario.Runs, 1)
	require.Len(t, scenario.Runs[0].Nodes, 3)
	assert.Equal(t, "controls_repeat", scenario.Runs[0].Nodes[0].Type)
	assert.True(t, scenario.Runs[0].Nodes[0].Deletable)
	require.NotNil(t, scenario.Runs[0].Expect)
	assert.Equal(t, "AllPass", scenario.Runs[0].Expect.Tier)
	require.NotNil(t, scenario.Runs[0].Expect.Stars)
	assert.Equal(t, 3, *scenario.Runs[0].Expect.Stars)
	assert.Len(t, scenario.Assertions, 5)
}

// TestLoadScenario_UnknownField tests that typos are rejected rather than
// silently ignored.
func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario("testdata/broken/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field run not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_LevelsDirResolved(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "levels"), 0o755))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: s
description: d
level: "x"
levels_dir: levels
runs:
  - source: ""
`), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "levels"), scenario.LevelsDir)

	require.NoError(t, os.WriteFile(path, []byte(`name: s
description: d
level: "x"
levels_dir: missing
runs:
  - source: ""
`), 0o644))
	_, err = LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "levels_dir")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nlevel: \"1_1\"\nruns: [{source: \"\"}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing level",
			yaml:    "name: n\ndescription: d\nruns: [{source: \"\"}]\n",
			wantErr: "level is required",
		},
		{
			name:    "no runs",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\n",
			wantErr: "runs list is required",
		},
		{
			name:    "bad mode",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\", mode: slow}]\n",
			wantErr: "unknown run mode",
		},
		{
			name:    "bad tier",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\", expect: {tier: Great}}]\n",
			wantErr: "runs[0].expect",
		},
		{
			name:    "negative max ticks",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nmax_ticks: -1\nruns: [{source: \"\"}]\n",
			wantErr: "max_ticks",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: trace_contains}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "log_count without action",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: log_count, count: 1}]\n",
			wantErr: "action is required for log_count",
		},
		{
			name:    "run out of range",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: log_count, action: FD, run: 2}]\n",
			wantErr: "out of range",
		},
		{
			name:    "final_pose without coordinates",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: final_pose}]\n",
			wantErr: "one of x, y, heading",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: final_state, table: attempts}]\n",
			wantErr: "expect is required",
		},
		{
			name:    "carried without key",
			yaml:    "name: n\ndescription: d\nlevel: \"1_1\"\nruns: [{source: \"\"}]\nassertions: [{type: carried}]\n",
			wantErr: "key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
