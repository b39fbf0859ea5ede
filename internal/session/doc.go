// Package session runs a learner's attempts at one level.
//
// A Session replaces the process-wide state a browser page would hold: the
// attempt counter, the session start time, the cached reference rendering,
// the replay state and any carried program. RunProgram and ResetProgram
// are its two entry points.
//
// Attempt flow:
//
//	RunProgram
//	  interpret source within the tick budget  -> Command Log
//	  replay the log (instant or paced)        -> user rendering
//	  evaluate against the reference           -> Outcome
//	  decide feedback, emit the attempt report, carry on success
//
// A paced run completes on the scheduler; Run.Wait blocks until then.
// ResetProgram cancels a pending paced run, which then never reports.
package session
