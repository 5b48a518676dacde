package ports

import "myrepo/internal/types"

// RepositoryPolicyPort decides which repositories participate in a run and
// in which priority order.
type RepositoryPolicyPort interface {
	Enabled() []string
	Priority(repository string) int
}

// ConflictPolicyPort reports whether a candidate may join a resolved set.
type ConflictPolicyPort interface {
	Check(candidate types.Package, member types.Package) ConflictVerdict
	Declared(candidate types.Package, member types.Package) (types.DependencySpec, bool)
}

type ConflictVerdict int

const (
	ConflictNone ConflictVerdict = iota
	// ConflictCandidateReplaces means the candidate declares it replaces
	// the member.
	ConflictCandidateReplaces
	// ConflictMemberReplaces means the member declares it replaces the
	// candidate.
	ConflictMemberReplaces
	ConflictHard
)
