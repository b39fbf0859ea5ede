package compiler

import (
	"regexp"
	"strings"
)

var (
	checkpointLine = regexp.MustCompile(`(?m)^[ \t]*checkTimeout\([^)]*\);?[ \t]*\r?\n?`)
	trailingNodeID = regexp.MustCompile(`,\s*['"]block_id_\d+['"]\s*\)`)
	soleNodeID     = regexp.MustCompile(`\(\s*['"]block_id_\d+['"]\s*\)`)
)

// Strip removes editor bookkeeping from program source: timeout checkpoint
// lines and the trailing node-id argument the editor appends to every verb.
// The result is the human-readable program recorded in attempt reports.
func Strip(source string) string {
	out := checkpointLine.ReplaceAllString(source, "")
	out = trailingNodeID.ReplaceAllString(out, ")")
	out = soleNodeID.ReplaceAllString(out, "()")
	out = strings.TrimRight(out, " \t\r\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}
