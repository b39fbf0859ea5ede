package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SimpleSelect(t *testing.T) {
	sql, params, err := Compile(Select{
		From:    "attempts",
		Columns: []string{"id", "tier"},
		Filter:  Equals{Field: "level_id", Value: "1_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, tier FROM attempts WHERE level_id = ? ORDER BY rowid ASC", sql)
	assert.Equal(t, []any{"1_1"}, params)
}

func TestCompile_AllColumns(t *testing.T) {
	sql, params, err := Compile(Select{From: "attempts"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM attempts ORDER BY rowid ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	testCases := []struct {
		name  string
		query Query
	}{
		{"with filter", Select{From: "attempts", Filter: Equals{Field: "level_id", Value: "1_1"}}},
		{"without filter", Select{From: "attempts"}},
		{"with And", Select{From: "attempts", Filter: Where("level_id", "1_1", "succeeded", true)}},
		{"pointer", &Select{From: "attempts"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, _, err := Compile(tc.query)
			require.NoError(t, err)
			assert.Contains(t, sql, "ORDER BY", "every query is ordered: %s", sql)
			assert.Contains(t, sql, "rowid ASC")
		})
	}
}

func TestCompile_OrderByColumns(t *testing.T) {
	sql, _, err := Compile(Select{
		From:    "attempts",
		OrderBy: []string{"level_id", "attempt", "rowid"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM attempts ORDER BY level_id COLLATE BINARY ASC, attempt COLLATE BINARY ASC, rowid ASC",
		sql)
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	dangerous := "'; DROP TABLE attempts; --"

	sql, params, err := Compile(Select{
		From:   "attempts",
		Filter: Equals{Field: "session_id", Value: dangerous},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, dangerous)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{dangerous}, params)
}

func TestCompile_ValueConversion(t *testing.T) {
	sql, params, err := Compile(Select{
		From:   "attempts",
		Filter: Where("succeeded", true, "attempt", 2, "tier", int64(7), "source", nil),
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE succeeded = ? AND attempt = ? AND tier = ? AND source IS NULL")
	assert.Equal(t, []any{int64(1), int64(2), int64(7)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := Compile(Select{From: "attempts", Filter: And{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	sql, params, err := Compile(Select{
		From: "attempts",
		Filter: And{Predicates: []Predicate{
			Equals{Field: "level_id", Value: "3_7"},
			And{Predicates: []Predicate{&Equals{Field: "session_id", Value: "s"}}},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE level_id = ? AND session_id = ?")
	assert.Equal(t, []any{"3_7", "s"}, params)
}

func TestCompile_RejectsInvalid(t *testing.T) {
	_, _, err := Compile(Select{From: "attempts; DROP TABLE attempts"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	_, _, err = Compile(nil)
	assert.Error(t, err)
}
