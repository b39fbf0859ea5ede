package harness

import (
	"github.com/roach88/turtle/internal/ir"
)

// TraceEvent is one action of one run's command log.
type TraceEvent struct {
	Run    int      `json:"run"` // 1-based
	Seq    int      `json:"seq"` // position in the run's log
	Kind   ir.Kind  `json:"kind"`
	Args   []string `json:"args,omitempty"`
	NodeID string   `json:"node_id,omitempty"`
	Text   string   `json:"text"` // transcript form, see ir.Action.String
}

// RunRecord summarises one graded run.
type RunRecord struct {
	Attempt   int64    `json:"attempt"`
	Tier      ir.Tier  `json:"tier"`
	Succeeded bool     `json:"succeeded"`
	Notice    string   `json:"notice,omitempty"`
	Missing   []string `json:"missing,omitempty"` // exemplar type per missing group
	Pose      ir.Pose  `json:"pose"`
	Log       []string `json:"log"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Runs  []RunRecord  `json:"runs"`
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunRecord{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRun appends a run and its log to the trace.
func (r *Result) AddRun(rec RunRecord, actions []ir.Action) {
	r.Runs = append(r.Runs, rec)
	run := len(r.Runs)
	for i, a := range actions {
		args := make([]string, 0, a.NumArgs())
		for _, v := range a.Args() {
			args = append(args, v.String())
		}
		r.Trace = append(r.Trace, TraceEvent{
			Run:    run,
			Seq:    i + 1,
			Kind:   a.Kind,
			Args:   args,
			NodeID: a.NodeID,
			Text:   a.String(),
		})
	}
}
