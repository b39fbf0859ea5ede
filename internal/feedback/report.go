package feedback

import (
	"time"

	"github.com/roach88/turtle/internal/compiler"
	"github.com/roach88/turtle/internal/evaluate"
	"github.com/roach88/turtle/internal/ir"
)

// ReportInput is what a session knows about one attempt when reporting it.
type ReportInput struct {
	SessionID string
	LevelID   string
	Source    string // compiled source, node ids included
	Attempt   int64
	Elapsed   time.Duration
}

// NewReport builds the attempt report. The tier recorded is the primary
// tier, before secondary checks and the free-play override, and the source
// is stripped of node ids and checkpoints.
func NewReport(in ReportInput, out evaluate.Outcome) ir.Report {
	return ir.Report{
		SessionID: in.SessionID,
		LevelID:   in.LevelID,
		Succeeded: out.Succeeded(),
		Tier:      out.Primary,
		Source:    compiler.Strip(in.Source),
		Attempt:   in.Attempt,
		ElapsedMs: in.Elapsed.Milliseconds(),
	}
}
