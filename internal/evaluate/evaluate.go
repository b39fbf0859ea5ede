package evaluate

import (
	"image"
	"regexp"
	"strings"

	"github.com/roach88/turtle/internal/ir"
)

// Facts are the inputs of the primary tier chain.
type Facts struct {
	CheckEmpty     bool
	EmptyConstruct bool
	MissingGroups  int
	GoalReached    bool
	IdealNodes     int // 0 when not configured
	NodesUsed      int
}

// Classify selects the primary tier. The first matching rule wins:
//
//  1. EmptyConstructFail when checking and an empty construct exists
//  2. MissingRequiredConstructFail when any group is unsatisfied
//  3. TooFewNodesFail when the goal is missed with fewer nodes than ideal
//  4. LevelIncompleteFail when the goal is missed
//  5. TooManyNodesFail when the goal is reached with more nodes than ideal
//  6. AllPass
func Classify(f Facts) ir.Tier {
	switch {
	case f.CheckEmpty && f.EmptyConstruct:
		return ir.TierEmptyConstructFail
	case f.MissingGroups > 0:
		return ir.TierMissingRequiredConstructFail
	case !f.GoalReached && f.IdealNodes > 0 && f.NodesUsed < f.IdealNodes:
		return ir.TierTooFewNodesFail
	case !f.GoalReached:
		return ir.TierLevelIncompleteFail
	case f.IdealNodes > 0 && f.NodesUsed > f.IdealNodes:
		return ir.TierTooManyNodesFail
	default:
		return ir.TierAllPass
	}
}

// Criteria is everything a level contributes to grading.
type Criteria struct {
	IdealNodes      int
	Groups          []Group
	FreeNodes       *regexp.Regexp
	Colours         ColourRule
	Tolerance       int
	FreePlay        bool
	CheckEmpty      bool
	MaxMissing      int  // cap on reported missing groups, 0 = no cap
	StrictIdeal     bool // too many nodes misses the point of the level
	RequiredSnippet string
}

// Input is the evidence from one attempt.
type Input struct {
	Source      string
	Nodes       []ir.Node
	User        *image.Alpha
	Answer      *image.Alpha
	ColoursUsed []string
	// Incomplete marks a run stopped by the budget or a fault. Its partial
	// drawing never reaches the goal.
	Incomplete bool
}

// Outcome is the graded attempt with the detail feedback needs.
type Outcome struct {
	Tier           ir.Tier       `json:"tier"`
	Primary        ir.Tier       `json:"primary"`
	GoalReached    bool          `json:"goal_reached"`
	Delta          int           `json:"delta"`
	NodesUsed      int           `json:"nodes_used"`
	EmptyConstruct bool          `json:"empty_construct"`
	Missing        []Group       `json:"-"`
	Colour         ColourOutcome `json:"colour"`
	SnippetMissing bool          `json:"snippet_missing,omitempty"`
}

// Succeeded reports whether the attempt completed the level, which is what
// the attempt report records.
func (o Outcome) Succeeded() bool {
	return o.GoalReached
}

// MissingExemplars returns the panel exemplars for the missing groups.
func (o Outcome) MissingExemplars() []Exemplar {
	return Exemplars(o.Missing)
}

// Evaluate grades an attempt. An empty program counts as an empty
// construct. It fails only on invalid criteria.
func Evaluate(in Input, c Criteria) (Outcome, error) {
	missing, err := MissingGroups(StaticSource(in.Source), in.Nodes, c.Groups, c.MaxMissing)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Delta:          AlphaDelta(in.User, in.Answer),
		NodesUsed:      CountNodes(in.Nodes, c.FreeNodes),
		EmptyConstruct: HasEmptyConstruct(in.Source) || strings.TrimSpace(in.Source) == "",
		Missing:        missing,
		Colour:         ColourOutcome{Result: ColourOK, Used: len(in.ColoursUsed)},
	}
	out.GoalReached = c.FreePlay || (!in.Incomplete && GoalReached(out.Delta, c.Tolerance))

	out.Primary = Classify(Facts{
		CheckEmpty:     c.CheckEmpty,
		EmptyConstruct: out.EmptyConstruct,
		MissingGroups:  len(missing),
		GoalReached:    out.GoalReached,
		IdealNodes:     c.IdealNodes,
		NodesUsed:      out.NodesUsed,
	})
	out.Tier = out.Primary

	switch {
	case c.StrictIdeal && out.Tier == ir.TierTooManyNodesFail:
		out.Tier = ir.TierOtherOneStarFail
	case out.Tier == ir.TierAllPass || out.Tier == ir.TierTooManyNodesFail:
		if c.RequiredSnippet != "" {
			// snippet levels do not use colour
			if !strings.Contains(in.Source, c.RequiredSnippet) {
				out.SnippetMissing = true
				out.Tier = ir.TierOtherTwoStarFail
			}
			break
		}
		out.Colour = CheckColours(c.Colours, in.ColoursUsed)
		if out.Colour.Failed() {
			out.Tier = ir.TierOtherOneStarFail
		}
	}

	if c.FreePlay {
		out.Tier = ir.TierFreePlay
	}
	return out, nil
}
