package feedback

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/roach88/turtle/internal/evaluate"
	"github.com/roach88/turtle/internal/ir"
)

// Affordances are the dialog buttons offered after a run.
type Affordances struct {
	Continue      bool `json:"continue"`
	TryAgain      bool `json:"try_again"`
	ReturnToLevel bool `json:"return_to_level"`
}

// AffordancesFor returns the buttons a tier enables.
func AffordancesFor(t ir.Tier) Affordances {
	switch t {
	case ir.TierAllPass:
		return Affordances{Continue: true}
	case ir.TierTooManyNodesFail, ir.TierOtherTwoStarFail, ir.TierFreePlay:
		return Affordances{Continue: true, TryAgain: true}
	case ir.TierMissingRequiredConstructFail, ir.TierOtherOneStarFail:
		return Affordances{TryAgain: true}
	default:
		return Affordances{ReturnToLevel: true}
	}
}

// Context is the level information a decision needs beyond the outcome.
type Context struct {
	FinalLevel  bool
	IdealNodes  int
	PanelHeight int            // base panel height before rows are added
	Hints       map[Key]string // per-level message overrides
}

// Feedback is what the learner is shown after one run.
type Feedback struct {
	Tier        ir.Tier     `json:"tier"`
	Stars       int         `json:"stars"`
	Passed      bool        `json:"passed"`
	Headline    string      `json:"headline"`
	Hints       []string    `json:"hints,omitempty"`
	Affordances Affordances `json:"affordances"`
	Panel       *Panel      `json:"panel,omitempty"`
}

// Controller maps outcomes to feedback. It holds no per-run state, so one
// Controller can serve every session.
type Controller struct {
	printer *message.Printer
}

// Option configures a Controller.
type Option func(*controllerConfig)

type controllerConfig struct {
	tag     language.Tag
	catalog catalog.Catalog
}

// WithCatalog replaces the message catalog and the language to print in.
func WithCatalog(tag language.Tag, cat catalog.Catalog) Option {
	return func(c *controllerConfig) {
		c.tag = tag
		c.catalog = cat
	}
}

// NewController creates a controller using the English catalog by default.
func NewController(opts ...Option) *Controller {
	cfg := controllerConfig{tag: language.English}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.catalog == nil {
		cfg.catalog = DefaultCatalog()
	}
	return &Controller{printer: newPrinter(cfg.tag, cfg.catalog)}
}

// Decide selects hints, affordances and the missing-construct panel for an
// outcome. It is a pure function of its inputs.
func (c *Controller) Decide(out evaluate.Outcome, ctx Context) Feedback {
	t := out.Tier
	fb := Feedback{
		Tier:        t,
		Stars:       t.Stars(),
		Passed:      t.Passed(),
		Affordances: AffordancesFor(t),
	}

	if t == ir.TierAllPass {
		if ctx.FinalLevel {
			fb.Headline = c.text(ctx, KeyFinalLevel)
		} else {
			fb.Headline = c.text(ctx, KeyNextLevel)
		}
		return fb
	}
	if t != ir.TierNoTestsRun {
		fb.Headline = c.text(ctx, KeyHintTitle)
	}

	switch t {
	case ir.TierEmptyConstructFail:
		fb.Hints = []string{c.text(ctx, KeyEmptyConstruct)}
	case ir.TierTooFewNodesFail:
		fb.Hints = []string{c.text(ctx, KeyTooFewNodes)}
	case ir.TierLevelIncompleteFail:
		fb.Hints = []string{c.text(ctx, KeyLevelIncomplete)}
	case ir.TierMissingRequiredConstructFail:
		if exemplars := out.MissingExemplars(); len(exemplars) > 0 {
			fb.Hints = []string{c.text(ctx, KeyMissingConstruct)}
			fb.Panel = Layout(exemplars, ctx.PanelHeight)
		}
	case ir.TierOtherOneStarFail:
		fb.Hints = []string{c.oneStar(out, ctx)}
	case ir.TierTooManyNodesFail:
		fb.Hints = []string{c.text(ctx, KeyTooManyNodes, ctx.IdealNodes, out.NodesUsed)}
	case ir.TierOtherTwoStarFail:
		fb.Hints = []string{c.text(ctx, KeyTwoStar)}
	case ir.TierFreePlay:
		fb.Hints = []string{c.text(ctx, KeyFreePlay)}
	}
	return fb
}

// RunError returns the blocking notice for a run that stopped early.
// budget selects the overrun message; otherwise detail is shown.
func (c *Controller) RunError(ctx Context, budget bool, detail string) string {
	if budget {
		return c.text(ctx, KeyBudgetExceeded)
	}
	return c.text(ctx, KeyUserProgramError, detail)
}

// CarryMissing returns the notice shown when a level's carried program is
// absent or lacks the definition the level builds on.
func (c *Controller) CarryMissing(ctx Context) string {
	return c.text(ctx, KeyCarryMissing)
}

// oneStar explains an app-specific one-star failure: a colour problem when
// the colour check failed, otherwise the strict ideal count.
func (c *Controller) oneStar(out evaluate.Outcome, ctx Context) string {
	col := out.Colour
	if !col.Failed() {
		return c.text(ctx, KeyOneStar)
	}
	switch col.Result {
	case evaluate.ColourForbiddenDefault:
		return c.text(ctx, KeyNotBlackColour)
	case evaluate.ColourTooFew:
		return c.text(ctx, KeyTooFewColours, col.Required, col.Used)
	case evaluate.ColourWrong:
		return c.text(ctx, KeyWrongColour, col.Missing)
	default:
		return c.text(ctx, KeyNoColour)
	}
}

// text prints a message, preferring the level's override. An override of
// a formatted message gets the same arguments; one without verbs is used
// verbatim.
func (c *Controller) text(ctx Context, k Key, args ...any) string {
	if s, ok := ctx.Hints[k]; ok {
		if len(args) == 0 || !strings.Contains(s, "%") {
			return s
		}
		return c.printer.Sprintf(s, args...)
	}
	return c.printer.Sprintf(string(k), args...)
}
