package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier_Stars(t *testing.T) {
	tests := []struct {
		tier  Tier
		stars int
	}{
		{TierAllPass, 3},
		{TierTooManyNodesFail, 2},
		{TierOtherTwoStarFail, 2},
		{TierMissingRequiredConstructFail, 1},
		{TierOtherOneStarFail, 1},
		{TierLevelIncompleteFail, 0},
		{TierTooFewNodesFail, 0},
		{TierEmptyConstructFail, 0},
		{TierFreePlay, 0},
		{TierNoTestsRun, 0},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.stars, tt.tier.Stars())
		})
	}
}

func TestTier_Passed(t *testing.T) {
	assert.True(t, TierAllPass.Passed())
	assert.True(t, TierTooManyNodesFail.Passed())
	assert.True(t, TierFreePlay.Passed())
	assert.False(t, TierMissingRequiredConstructFail.Passed())
	assert.False(t, TierLevelIncompleteFail.Passed())
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("allpass")
	require.NoError(t, err)
	assert.Equal(t, TierAllPass, tier)

	_, err = ParseTier("Nope")
	assert.Error(t, err)

	assert.Equal(t, "Tier(42)", Tier(42).String())
}

func TestTier_JSONByName(t *testing.T) {
	b, err := json.Marshal(struct {
		T Tier `json:"t"`
	}{TierTooFewNodesFail})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"TooFewNodesFail"}`, string(b))

	var out struct {
		T Tier `json:"t"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"t":"FreePlay"}`), &out))
	assert.Equal(t, TierFreePlay, out.T)
}
