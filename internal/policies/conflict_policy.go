package policies

import (
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// SatisfiesFunc reports whether pkg meets spec by name or provides.
type SatisfiesFunc func(pkg types.Package, spec types.DependencySpec) bool

// ConflictPolicy decides whether a candidate may join a resolved set that
// already holds member. Conflicts are checked in both directions and a
// package never conflicts with another of the same name.
type ConflictPolicy struct {
	satisfies SatisfiesFunc
}

func NewConflictPolicy(satisfies SatisfiesFunc) ConflictPolicy {
	return ConflictPolicy{satisfies: satisfies}
}

func (p ConflictPolicy) Check(candidate types.Package, member types.Package) ports.ConflictVerdict {
	if candidate.Name == member.Name {
		return ports.ConflictNone
	}
	if _, ok := p.declares(candidate.Conflicts, member); !ok {
		if _, ok := p.declares(member.Conflicts, candidate); !ok {
			return ports.ConflictNone
		}
	}
	if _, ok := p.declares(candidate.Replaces, member); ok {
		return ports.ConflictCandidateReplaces
	}
	if _, ok := p.declares(member.Replaces, candidate); ok {
		return ports.ConflictMemberReplaces
	}
	return ports.ConflictHard
}

// Declared returns the conflict entry linking the two packages, if any.
func (p ConflictPolicy) Declared(candidate types.Package, member types.Package) (types.DependencySpec, bool) {
	if spec, ok := p.declares(candidate.Conflicts, member); ok {
		return spec, true
	}
	return p.declares(member.Conflicts, candidate)
}

func (p ConflictPolicy) declares(specs []types.DependencySpec, target types.Package) (types.DependencySpec, bool) {
	for _, spec := range specs {
		if p.satisfies(target, spec) {
			return spec, true
		}
	}
	return types.DependencySpec{}, false
}

var _ ports.ConflictPolicyPort = ConflictPolicy{}
