package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"myrepo/internal/types"
)

// opTokens is tried in order; two-character operators come first so ">="
// is not read as ">".
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// ParseDependencySpec splits "name[op version]" into a DependencySpec.
// Optional dependency descriptions ("name: reason") are dropped.
func ParseDependencySpec(raw string) (types.DependencySpec, error) {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ": "); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	if raw == "" {
		return types.DependencySpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty dependency")
	}
	idx, op := findOperator(raw)
	if idx < 0 {
		return types.DependencySpec{Name: raw}, nil
	}
	name := strings.TrimSpace(raw[:idx])
	version := strings.TrimSpace(raw[idx+len(op):])
	if name == "" || version == "" {
		return types.DependencySpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid dependency: %s", raw))
	}
	return types.DependencySpec{Name: name, Op: op, Version: version}, nil
}

// findOperator returns the earliest operator position in raw.
func findOperator(raw string) (int, types.ConstraintOp) {
	best := -1
	var bestOp types.ConstraintOp
	for _, op := range opTokens {
		idx := strings.Index(raw, string(op))
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best || (idx == best && len(op) > len(bestOp)) {
			best = idx
			bestOp = op
		}
	}
	return best, bestOp
}

// ParseDependencySpecs parses every entry, skipping blanks.
func ParseDependencySpecs(raw []string) ([]types.DependencySpec, error) {
	out := make([]types.DependencySpec, 0, len(raw))
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		spec, err := ParseDependencySpec(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}
