package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Valid(t *testing.T) {
	result := Validate(Select{
		From:    "attempts",
		Columns: []string{"id"},
		Filter:  Where("level_id", "1_1", "attempt", int64(1)),
		OrderBy: []string{"attempt"},
	})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.NoError(t, result.Err())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	result := Validate(Select{
		From:    "1attempts",
		Columns: []string{"id, tier"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "elapsed", Value: 1.5},
			nil,
		}},
		OrderBy: []string{"attempt DESC"},
	})
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 5)
	assert.ErrorContains(t, result.Err(), "invalid table name")
}

func TestValidate_UnsupportedValue(t *testing.T) {
	result := Validate(Select{
		From:   "attempts",
		Filter: Equals{Field: "source", Value: []string{"a"}},
	})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "unsupported value type []string")
}

func TestValidate_NilQuery(t *testing.T) {
	assert.False(t, Validate(nil).Valid)
	var sel *Select
	assert.False(t, Validate(sel).Valid)
}

func TestWhere(t *testing.T) {
	and := Where("level_id", "1_1", "succeeded", true)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "level_id", Value: "1_1"},
		Equals{Field: "succeeded", Value: true},
	}}, and)
	assert.Empty(t, Where().Predicates)
}
