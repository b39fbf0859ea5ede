package evaluate

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
)

// TestKind tags a Test variant.
type TestKind int

const (
	testInvalid TestKind = iota
	// TestSubstring matches when the compiled source contains a string.
	TestSubstring
	// TestPredicate matches when any user node satisfies a function.
	TestPredicate
)

// String returns the kind name.
func (k TestKind) String() string {
	switch k {
	case TestSubstring:
		return "substring"
	case TestPredicate:
		return "predicate"
	default:
		return fmt.Sprintf("TestKind(%d)", int(k))
	}
}

// NodeFunc reports whether a node satisfies a predicate test.
type NodeFunc func(ir.Node) bool

// Test is one construct-presence test: either a source substring or a node
// predicate. The zero Test is invalid.
type Test struct {
	kind      TestKind
	substring string
	name      string
	fn        NodeFunc
}

// Substring returns a test matching source text containing s.
func Substring(s string) Test {
	return Test{kind: TestSubstring, substring: s}
}

// Predicate returns a test matching any user node for which fn is true.
// The name is used in diagnostics only.
func Predicate(name string, fn NodeFunc) Test {
	return Test{kind: TestPredicate, name: name, fn: fn}
}

// NodeMatch returns a predicate matching nodes of the given type whose
// fields include every entry of fields.
func NodeMatch(nodeType string, fields map[string]string) Test {
	want := maps.Clone(fields)
	name := nodeType
	if len(want) > 0 {
		keys := make([]string, 0, len(want))
		for k := range want {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + want[k]
		}
		name += "[" + strings.Join(parts, ",") + "]"
	}
	return Predicate(name, func(n ir.Node) bool {
		if n.Type != nodeType {
			return false
		}
		for k, v := range want {
			if n.Field(k) != v {
				return false
			}
		}
		return true
	})
}

// Kind returns the variant tag.
func (t Test) Kind() TestKind { return t.kind }

// String describes the test.
func (t Test) String() string {
	switch t.kind {
	case TestSubstring:
		return fmt.Sprintf("substring(%q)", t.substring)
	case TestPredicate:
		return fmt.Sprintf("predicate(%s)", t.name)
	default:
		return "invalid test"
	}
}

// Validate rejects tests that are neither a non-empty substring nor a
// predicate with a function.
func (t Test) Validate() error {
	switch t.kind {
	case TestSubstring:
		if t.substring == "" {
			return engine.NewConfigurationError("", "substring test is empty")
		}
		return nil
	case TestPredicate:
		if t.fn == nil {
			return engine.NewConfigurationError("", "predicate test %q has no function", t.name)
		}
		return nil
	default:
		return engine.NewConfigurationError("", "test is neither a substring nor a predicate (kind %d)", int(t.kind))
	}
}

// Exemplar is the node shown in the missing-construct panel for a test.
type Exemplar struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// Requirement is one alternative of a group: the test plus what to show
// when the group is missing.
type Requirement struct {
	Test     Test
	Exemplar Exemplar
}

// Group is a set of alternative requirements. It is satisfied when at least
// one alternative matches.
type Group []Requirement

// Validate checks every alternative.
func (g Group) Validate() error {
	if len(g) == 0 {
		return engine.NewConfigurationError("", "required group has no alternatives")
	}
	for i, r := range g {
		if err := r.Test.Validate(); err != nil {
			return fmt.Errorf("alternative %d: %w", i, err)
		}
	}
	return nil
}

// SourceFunc yields the compiled source. It is called at most once per
// MissingGroups pass and only if a substring test needs it.
type SourceFunc func() string

// StaticSource adapts a string to a SourceFunc.
func StaticSource(s string) SourceFunc {
	return func() string { return s }
}

// matcher evaluates tests for one pass, caching the source.
type matcher struct {
	source  SourceFunc
	code    string
	fetched bool
	nodes   []ir.Node
}

func (m *matcher) match(t Test) (bool, error) {
	switch t.kind {
	case TestSubstring:
		if !m.fetched {
			m.code = m.source()
			m.fetched = true
		}
		return strings.Contains(m.code, t.substring), nil
	case TestPredicate:
		if t.fn == nil {
			return false, t.Validate()
		}
		return slices.ContainsFunc(m.nodes, t.fn), nil
	default:
		return false, t.Validate()
	}
}

// MissingGroups returns the groups none of whose alternatives match, in
// configuration order. Predicates see only UserNodes(nodes). At most limit
// groups are returned; limit 0 means no cap.
func MissingGroups(source SourceFunc, nodes []ir.Node, groups []Group, limit int) ([]Group, error) {
	m := &matcher{source: source, nodes: UserNodes(nodes)}
	var missing []Group
	for _, g := range groups {
		if limit > 0 && len(missing) >= limit {
			break
		}
		satisfied := false
		for _, r := range g {
			ok, err := m.match(r.Test)
			if err != nil {
				return nil, err
			}
			if ok {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, g)
		}
	}
	return missing, nil
}

// Exemplars flattens the exemplars of groups in order, which is how the
// missing-construct panel lists them.
func Exemplars(groups []Group) []Exemplar {
	var out []Exemplar
	for _, g := range groups {
		for _, r := range g {
			out = append(out, r.Exemplar)
		}
	}
	return out
}
