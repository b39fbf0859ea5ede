// Package harness runs YAML scenarios against real sessions.
//
// A scenario names a level, the programs a learner submits, and what each
// run must produce. Every scenario runs in a fresh session with a fixed
// session id, a stepping wall clock, a manual scheduler for paced runs and
// an in-memory attempt store.
//
// # Scenario Format
//
//	name: square_passes
//	description: "A square with a loop earns all stars"
//	level: "1_1"
//	carry:
//	  turtle3Blocks: "function draw_a_house(height) {}"
//	start:
//	  carried: true
//	runs:
//	  - source: |
//	      Turtle.moveForward(100, 'block_id_1');
//	    nodes:
//	      - { id: block_id_1, type: draw_move_by_constant, deletable: true }
//	    mode: paced
//	    expect:
//	      tier: AllPass
//	      succeeded: true
//	assertions:
//	  - type: log_count
//	    action: FD
//	    count: 4
//	  - type: final_state
//	    table: attempts
//	    where: { attempt: 1 }
//	    expect: { tier: AllPass }
//
// # Assertion Types
//
//   - log_contains: an action with the given kind and args was emitted
//   - log_order: kinds appear in the given order
//   - log_count: a kind appears exactly N times
//   - final_pose: the turtle ended at x, y, heading
//   - final_state: a row of the attempt store matches
//   - carried: a program was saved for a later level
//
// Assertions inspect every run unless run: N selects one (1-based).
//
// # Golden Transcripts
//
// RunWithGolden compares each run's command log with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
