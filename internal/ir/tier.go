package ir

import (
	"fmt"
	"strings"
)

// Tier is the graded classification of one attempt.
//
// The numeric values are historical and appear in attempt reports; they also
// encode ordering: higher is better, and value/10 approximates the stars.
type Tier int

const (
	TierNoTestsRun                   Tier = -1
	TierFreePlay                     Tier = 0
	TierEmptyConstructFail           Tier = 1
	TierTooFewNodesFail              Tier = 2
	TierLevelIncompleteFail          Tier = 3
	TierMissingRequiredConstructFail Tier = 10
	TierOtherOneStarFail             Tier = 11
	TierTooManyNodesFail             Tier = 20
	TierOtherTwoStarFail             Tier = 21
	TierAllPass                      Tier = 100
)

var tierNames = map[Tier]string{
	TierNoTestsRun:                   "NoTestsRun",
	TierFreePlay:                     "FreePlay",
	TierEmptyConstructFail:           "EmptyConstructFail",
	TierTooFewNodesFail:              "TooFewNodesFail",
	TierLevelIncompleteFail:          "LevelIncompleteFail",
	TierMissingRequiredConstructFail: "MissingRequiredConstructFail",
	TierOtherOneStarFail:             "OtherOneStarFail",
	TierTooManyNodesFail:             "TooManyNodesFail",
	TierOtherTwoStarFail:             "OtherTwoStarFail",
	TierAllPass:                      "AllPass",
}

// String returns the tier name.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Stars returns the star rating: 3 for a pass, 2 for node-count or
// app-specific two-star failures, 1 for missing constructs or one-star
// failures, 0 otherwise.
func (t Tier) Stars() int {
	switch {
	case t >= TierAllPass:
		return 3
	case t >= TierTooManyNodesFail:
		return 2
	case t >= TierMissingRequiredConstructFail:
		return 1
	default:
		return 0
	}
}

// Passed reports whether the tier lets the learner continue to the next level.
func (t Tier) Passed() bool {
	switch t {
	case TierAllPass, TierTooManyNodesFail, TierOtherTwoStarFail, TierFreePlay:
		return true
	}
	return false
}

// ParseTier parses a tier name (case-insensitive).
func ParseTier(s string) (Tier, error) {
	for t, name := range tierNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return TierNoTestsRun, fmt.Errorf("unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler so tiers serialize by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
