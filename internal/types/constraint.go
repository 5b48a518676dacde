package types

import "strings"

// DependencySpec is a name with an optional version constraint, as found
// in depends, provides, conflicts and replaces entries.
type DependencySpec struct {
	Name    string
	Op      ConstraintOp
	Version string
}

func (d DependencySpec) IsVersioned() bool {
	return d.Op != ConstraintOpNone && d.Version != ""
}

func (d DependencySpec) String() string {
	if !d.IsVersioned() {
		return d.Name
	}
	var builder strings.Builder
	builder.WriteString(d.Name)
	builder.WriteString(string(d.Op))
	builder.WriteString(d.Version)
	return builder.String()
}
