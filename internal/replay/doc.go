// Package replay applies a command log to an execution state and a drawing
// surface.
//
// The same log can be consumed two ways:
//   - RunToCompletion applies every action back-to-back. It builds the
//     reference rendering and redraws instantly.
//   - Pace applies one action per scheduled step so the learner can watch.
//
// Only a Replayer mutates State. A Reset bumps the replayer's generation and
// stops the pending step, so a step scheduled for a superseded run can never
// touch the new state.
package replay
