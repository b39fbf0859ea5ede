package evaluate

import (
	"fmt"
	"slices"
	"strings"
)

// Palette maps the editor's named colours to their hex values.
var Palette = map[string]string{
	"black":      "#000000",
	"grey":       "#808080",
	"khaki":      "#c3b091",
	"white":      "#ffffff",
	"red":        "#ff0000",
	"pink":       "#ff77ff",
	"orange":     "#ffa000",
	"yellow":     "#ffff00",
	"green":      "#228b22",
	"blue":       "#0000cd",
	"aquamarine": "#7fffd4",
	"plum":       "#843179",
}

// ColourName returns the palette name for a hex colour, or "unknown".
func ColourName(hex string) string {
	hex = strings.ToLower(hex)
	for name, v := range Palette {
		if v == hex {
			return name
		}
	}
	return "unknown"
}

// ColourRule is a level's colour requirement. At most one of Count and
// Exact is set; the zero rule accepts anything.
//
//   - Count 1: at least one colour other than black.
//   - Count n>1: exactly n distinct colours, black allowed.
//   - Exact: the whole picture uses that colour.
type ColourRule struct {
	Count int    `json:"count,omitempty"`
	Exact string `json:"exact,omitempty"`
}

// IsZero reports whether the rule imposes nothing.
func (r ColourRule) IsZero() bool {
	return r.Count == 0 && r.Exact == ""
}

// ColourResult classifies the colours used against a rule.
type ColourResult int

const (
	ColourOK ColourResult = iota
	ColourNone
	ColourForbiddenDefault
	ColourTooFew
	ColourWrong
	ColourExtra
)

var colourResultNames = [...]string{"OK", "None", "ForbiddenDefault", "TooFew", "Wrong", "Extra"}

// String returns the result name.
func (c ColourResult) String() string {
	if int(c) < len(colourResultNames) && c >= 0 {
		return colourResultNames[c]
	}
	return fmt.Sprintf("ColourResult(%d)", int(c))
}

// ColourOutcome is the colour check detail feedback needs for its message.
type ColourOutcome struct {
	Result   ColourResult `json:"result"`
	Missing  string       `json:"missing,omitempty"` // colour name for ColourWrong
	Required int          `json:"required,omitempty"`
	Used     int          `json:"used"`
}

// Failed reports whether the outcome demotes a passing tier.
// Extra colours are not a failure.
func (o ColourOutcome) Failed() bool {
	return o.Result != ColourOK && o.Result != ColourExtra
}

// CheckColours applies rule to the distinct colours used, lower-case hex.
func CheckColours(rule ColourRule, used []string) ColourOutcome {
	out := ColourOutcome{Result: ColourOK, Required: rule.Count, Used: len(used)}
	if rule.IsZero() {
		return out
	}
	if len(used) == 0 {
		out.Result = ColourNone
		return out
	}

	switch {
	case rule.Exact != "":
		want := strings.ToLower(rule.Exact)
		switch {
		case !slices.Contains(used, want):
			out.Result = ColourWrong
			out.Missing = ColourName(want)
		case len(used) > 1:
			out.Result = ColourExtra
		}
	case rule.Count == 1:
		if len(used) == 1 && used[0] == Palette["black"] {
			out.Result = ColourForbiddenDefault
		}
	default:
		switch surplus := len(used) - rule.Count; {
		case surplus > 0:
			out.Result = ColourExtra
		case surplus < 0:
			out.Result = ColourTooFew
		}
	}
	return out
}
