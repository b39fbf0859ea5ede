// Package compiler parses the program source produced by the block editor.
//
// The editor compiles a learner's visual program into a small,
// JavaScript-flavoured statement language:
//
//	Turtle.penColour('#ff0000', 'block_id_2');
//	for (var count = 0; count < 4; count++) {
//	  checkTimeout('block_id_3');
//	  Turtle.moveForward(100, 'block_id_4');
//	  Turtle.turnRight(90, 'block_id_5');
//	}
//
// Only the constructs the editor can emit are accepted: variable
// declarations and assignments, if/else, while, for, function declarations,
// return/break/continue, calls, and arithmetic/comparison/logical
// expressions. This is not a general-purpose JavaScript parser.
//
// Parse errors are reported as *SyntaxError with 1-based line/column.
package compiler
