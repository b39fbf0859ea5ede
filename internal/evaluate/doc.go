// Package evaluate grades one attempt into an ir.Tier.
//
// Grading combines two kinds of evidence:
//   - the outcome: the learner's final rendering compared with the reference
//     rendering on the alpha channel only, plus the colours the replay
//     recorded;
//   - the program shape: empty construct bodies, required-construct groups
//     and the number of authored nodes.
//
// Classify applies the primary tier chain in strict priority order. Evaluate
// runs Classify and then the secondary checks (strict ideal count, required
// source snippet, colour rule), which only ever refine AllPass or
// TooManyNodesFail. Free play overrides everything last.
//
// Everything here is pure: no logging, no clocks, no I/O.
package evaluate
