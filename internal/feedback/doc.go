// Package feedback turns a graded outcome into what the learner sees: hint
// lines, dialog affordances and the missing-construct panel. It also builds
// the attempt report a session emits once per run.
//
// Messages come from an x/text message catalog so a deployment can replace
// the English strings; a level may override single messages by Key.
package feedback
