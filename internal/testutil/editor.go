package testutil

import (
	"slices"
	"sync"

	"github.com/roach88/turtle/internal/ir"
)

// Editor is an in-memory program editor.
//
// It records every highlight so tests can check the replay walked the
// expected nodes.
type Editor struct {
	mu         sync.Mutex
	source     string
	nodes      []ir.Node
	highlights []string
}

// NewEditor creates an editor holding source and nodes.
func NewEditor(source string, nodes ...ir.Node) *Editor {
	return &Editor{source: source, nodes: nodes}
}

// SetProgram replaces the program.
func (e *Editor) SetProgram(source string, nodes ...ir.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = source
	e.nodes = nodes
}

// Source returns the compiled program.
func (e *Editor) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Nodes returns a copy of the authored nodes.
func (e *Editor) Nodes() []ir.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.nodes)
}

// Highlight records a highlight.
func (e *Editor) Highlight(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.highlights = append(e.highlights, nodeID)
}

// Highlights returns every highlight recorded so far, "" for clears.
func (e *Editor) Highlights() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.highlights)
}

// Node returns a deletable, enabled node.
func Node(id, nodeType string) ir.Node {
	return ir.Node{ID: id, Type: nodeType, Deletable: true}
}
