package evaluate

import (
	"regexp"

	"github.com/roach88/turtle/internal/ir"
)

var emptyConstruct = regexp.MustCompile(`\{\s*\}`)

// HasEmptyConstruct reports whether the source contains a control construct
// with an empty body.
func HasEmptyConstruct(source string) bool {
	return emptyConstruct.MatchString(source)
}

// UserNodes returns the nodes the learner intends as part of the program:
// enabled and deletable.
func UserNodes(nodes []ir.Node) []ir.Node {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.Disabled && n.IsDeletable() {
			out = append(out, n)
		}
	}
	return out
}

// CountNodes counts user nodes, skipping those whose type matches free.
// A nil free pattern counts every user node.
func CountNodes(nodes []ir.Node, free *regexp.Regexp) int {
	count := 0
	for _, n := range UserNodes(nodes) {
		if free != nil && free.MatchString(n.Type) {
			continue
		}
		count++
	}
	return count
}
