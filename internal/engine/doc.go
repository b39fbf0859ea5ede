// Package engine implements budgeted interpretation of learner programs.
//
// A run turns program source into a CommandLog of primitive actions. The
// program never draws directly: every verb on the API appends an Action,
// and a replayer applies the log later, either instantly or paced.
//
// ARCHITECTURE:
//
// Deferred effects:
// The API is a capability whose methods are pure appenders. The same log
// feeds the synchronous reference rendering and the learner's paced
// animation, so both share one mechanism.
//
// Tick budget:
// Every loop iteration, explicit checkpoint, user function call and
// appended action consumes one tick from a TickBudget. Exhaustion raises
// *BudgetExceededError, which unwinds the run immediately while keeping the
// partial log. Reference programs run with an unlimited budget.
//
// Determinism:
// No randomness and no wall-clock reads during interpretation. The same
// source always yields the same log.
//
// Errors:
// Everything other than budget exhaustion or cancellation is a
// USER_PROGRAM_ERROR RuntimeError, including syntax errors and recovered
// panics.
package engine
