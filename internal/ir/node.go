package ir

// Node is one program node authored in the editor.
//
// The editor owns nodes; the core only reads them to derive program shape
// facts (node counts, construct presence).
type Node struct {
	ID        string            `json:"id" yaml:"id"`
	Type      string            `json:"type" yaml:"type"`
	Disabled  bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Deletable bool              `json:"deletable" yaml:"deletable"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IsDeletable mirrors the editor capability of the same name.
func (n Node) IsDeletable() bool { return n.Deletable }

// Field returns a named field value, or "" when absent.
func (n Node) Field(name string) string {
	if n.Fields == nil {
		return ""
	}
	return n.Fields[name]
}
