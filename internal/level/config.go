package level

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/roach88/turtle/internal/compiler"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/evaluate"
	"github.com/roach88/turtle/internal/feedback"
	"github.com/roach88/turtle/internal/ir"
)

// NodeMatch selects authored nodes by type and field values.
type NodeMatch struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Alternative is one way to satisfy a required group: a source substring
// (Test) or a node predicate (Node), plus the exemplar node shown when the
// group is missing (Type, Titles, Values).
type Alternative struct {
	Test   string            `json:"test,omitempty"`
	Node   *NodeMatch        `json:"node,omitempty"`
	Type   string            `json:"type,omitempty"`
	Titles map[string]string `json:"titles,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// Config is one level's static configuration.
type Config struct {
	ID              string              `json:"id"`
	Title           string              `json:"title,omitempty"`
	Ideal           int                 `json:"ideal,omitempty"`
	Required        [][]Alternative     `json:"required,omitempty"`
	FreeNodes       string              `json:"free_nodes,omitempty"`
	Colours         evaluate.ColourRule `json:"colours,omitempty"`
	Tolerance       int                 `json:"tolerance"`
	FreePlay        bool                `json:"free_play"`
	CheckEmpty      bool                `json:"check_empty"`
	MaxMissing      int                 `json:"max_missing"`
	StrictIdeal     bool                `json:"strict_ideal"`
	RequiredSnippet string              `json:"required_snippet,omitempty"`
	Start           ir.Pose             `json:"start"`
	Answer          string              `json:"answer"`
	StartProgram    string              `json:"start_program,omitempty"`
	CarryFrom       string              `json:"carry_from,omitempty"`
	CarryRequires   string              `json:"carry_requires,omitempty"`
	CarryTo         string              `json:"carry_to,omitempty"`
	FinalLevel      bool                `json:"final_level"`
	Hints           map[string]string   `json:"hints,omitempty"`
	Speed           float64             `json:"speed"`
	MaxTicks        int                 `json:"max_ticks,omitempty"`
}

// Validate checks the configuration for malformed or contradictory entries.
// Every failure is a CONFIGURATION RuntimeError naming the level.
func (c *Config) Validate() error {
	if c.ID == "" {
		return engine.NewConfigurationError("", "level has no id")
	}
	fail := func(format string, args ...any) error {
		return engine.NewConfigurationError(c.ID, "level %s: "+format, append([]any{c.ID}, args...)...)
	}

	if c.Ideal < 0 {
		return fail("ideal must not be negative, got %d", c.Ideal)
	}
	if c.Tolerance < 0 {
		return fail("tolerance must not be negative, got %d", c.Tolerance)
	}
	if c.MaxMissing < 0 {
		return fail("max_missing must not be negative, got %d", c.MaxMissing)
	}
	if c.Speed < 0 || c.Speed > 1 {
		return fail("speed must be within [0,1], got %v", c.Speed)
	}
	if c.Colours.Count < 0 {
		return fail("colours.count must not be negative, got %d", c.Colours.Count)
	}
	if c.Colours.Count > 0 && c.Colours.Exact != "" {
		return fail("colours sets both count and exact")
	}
	if c.FreeNodes != "" {
		if _, err := regexp.Compile(c.FreeNodes); err != nil {
			return fail("free_nodes: %v", err)
		}
	}
	for i, group := range c.Required {
		if len(group) == 0 {
			return fail("required[%d] has no alternatives", i)
		}
		for j, alt := range group {
			if err := alt.validate(); err != nil {
				return fail("required[%d][%d]: %v", i, j, err)
			}
		}
	}
	if c.Answer == "" && !c.FreePlay {
		return fail("answer is required unless the level is free play")
	}
	if c.Answer != "" {
		if _, err := compiler.Parse(c.Answer); err != nil {
			return fail("answer: %v", err)
		}
	}
	if c.StrictIdeal && c.Ideal == 0 {
		return fail("strict_ideal needs an ideal node count")
	}
	keys := make([]string, 0, len(c.Hints))
	for k := range c.Hints {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := feedback.CheckOverride(feedback.Key(k), c.Hints[k]); err != nil {
			return fail("%v", err)
		}
	}
	return nil
}

func (a Alternative) validate() error {
	switch {
	case a.Test != "" && a.Node != nil:
		return fmt.Errorf("test and node are mutually exclusive")
	case a.Test == "" && a.Node == nil:
		return fmt.Errorf("neither a substring test nor a node predicate")
	case a.Node != nil && a.Node.Type == "":
		return fmt.Errorf("node predicate has no type")
	case a.exemplar().Type == "":
		return fmt.Errorf("substring test %q needs an exemplar type", a.Test)
	}
	return nil
}

// exemplar is the node drawn in the missing-construct panel. It defaults to
// the predicate's node.
func (a Alternative) exemplar() evaluate.Exemplar {
	ex := evaluate.Exemplar{Type: a.Type, Fields: maps.Clone(a.Titles), Values: maps.Clone(a.Values)}
	if ex.Type == "" && a.Node != nil {
		ex.Type = a.Node.Type
		if ex.Fields == nil {
			ex.Fields = maps.Clone(a.Node.Fields)
		}
	}
	return ex
}

func (a Alternative) test() evaluate.Test {
	if a.Node != nil {
		return evaluate.NodeMatch(a.Node.Type, a.Node.Fields)
	}
	return evaluate.Substring(a.Test)
}

// Groups converts the required alternatives into evaluator groups.
func (c *Config) Groups() []evaluate.Group {
	groups := make([]evaluate.Group, 0, len(c.Required))
	for _, alts := range c.Required {
		g := make(evaluate.Group, len(alts))
		for i, alt := range alts {
			g[i] = evaluate.Requirement{Test: alt.test(), Exemplar: alt.exemplar()}
		}
		groups = append(groups, g)
	}
	return groups
}

// Criteria returns the grading criteria. Call Validate first; an invalid
// free-node pattern is reported again here.
func (c *Config) Criteria() (evaluate.Criteria, error) {
	var free *regexp.Regexp
	if c.FreeNodes != "" {
		re, err := regexp.Compile(c.FreeNodes)
		if err != nil {
			return evaluate.Criteria{}, engine.NewConfigurationError(c.ID, "level %s: free_nodes: %v", c.ID, err)
		}
		free = re
	}
	return evaluate.Criteria{
		IdealNodes:      c.Ideal,
		Groups:          c.Groups(),
		FreeNodes:       free,
		Colours:         c.Colours,
		Tolerance:       c.Tolerance,
		FreePlay:        c.FreePlay,
		CheckEmpty:      c.CheckEmpty,
		MaxMissing:      c.MaxMissing,
		StrictIdeal:     c.StrictIdeal,
		RequiredSnippet: c.RequiredSnippet,
	}, nil
}

// FeedbackContext returns the level facts the feedback controller needs.
func (c *Config) FeedbackContext() feedback.Context {
	var hints map[feedback.Key]string
	if len(c.Hints) > 0 {
		hints = make(map[feedback.Key]string, len(c.Hints))
		for k, v := range c.Hints {
			hints[feedback.Key(k)] = v
		}
	}
	return feedback.Context{
		FinalLevel: c.FinalLevel,
		IdealNodes: c.Ideal,
		Hints:      hints,
	}
}

