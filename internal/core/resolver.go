package core

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"myrepo/internal/policies"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// ClosureResolver computes the transitive dependency closure of a seed
// list with a breadth-first worklist. A choice is never revisited: a later
// spec the chosen package fails is reported, not re-solved.
type ClosureResolver struct {
	Catalog   ports.CatalogPort
	Conflicts ports.ConflictPolicyPort
}

func NewClosureResolver(catalog ports.CatalogPort) ClosureResolver {
	return ClosureResolver{
		Catalog:   catalog,
		Conflicts: policies.NewConflictPolicy(PackageSatisfies),
	}
}

type workItem struct {
	spec       types.DependencySpec
	requiredBy string
	seed       bool
}

type closureState struct {
	set         types.ResolvedSet
	provided    map[string][]string
	satisfiedBy map[string][]workItem
	enqueued    map[string]struct{}
	queue       []workItem
}

func newClosureState(arch string) *closureState {
	return &closureState{
		set:         types.NewResolvedSet(arch),
		provided:    map[string][]string{},
		satisfiedBy: map[string][]workItem{},
		enqueued:    map[string]struct{}{},
	}
}

func (s *closureState) push(item workItem) {
	key := item.spec.String()
	if _, ok := s.enqueued[key]; ok {
		return
	}
	s.enqueued[key] = struct{}{}
	s.queue = append(s.queue, item)
}

func (s *closureState) pop() workItem {
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item
}

// findMember returns a resolved package satisfying spec, checking the
// package named spec.Name before providers.
func (s *closureState) findMember(spec types.DependencySpec) (types.Package, bool) {
	if member, ok := s.set.Packages[spec.Name]; ok && PackageSatisfies(member, spec) {
		return member, true
	}
	for _, name := range s.provided[spec.Name] {
		member := s.set.Packages[name]
		if PackageSatisfies(member, spec) {
			return member, true
		}
	}
	return types.Package{}, false
}

func (s *closureState) add(pkg types.Package, item workItem) {
	s.set.Packages[pkg.Name] = pkg
	s.set.Order = append(s.set.Order, pkg.Name)
	s.set.RequiredBy[pkg.Name] = item.requiredBy
	s.satisfiedBy[pkg.Name] = append(s.satisfiedBy[pkg.Name], item)
	for _, provide := range pkg.Provides {
		s.provided[provide.Name] = append(s.provided[provide.Name], pkg.Name)
	}
}

// evict drops a member and returns the specs it had been chosen for.
func (s *closureState) evict(name string) []workItem {
	pkg := s.set.Packages[name]
	delete(s.set.Packages, name)
	delete(s.set.RequiredBy, name)
	for i, entry := range s.set.Order {
		if entry == name {
			s.set.Order = append(s.set.Order[:i], s.set.Order[i+1:]...)
			break
		}
	}
	for _, provide := range pkg.Provides {
		names := s.provided[provide.Name]
		for i, entry := range names {
			if entry == name {
				s.provided[provide.Name] = append(names[:i], names[i+1:]...)
				break
			}
		}
	}
	items := s.satisfiedBy[name]
	delete(s.satisfiedBy, name)
	return items
}

func (s *closureState) requesters(name string) []string {
	var out []string
	for _, item := range s.satisfiedBy[name] {
		out = append(out, requiredByLabel(item))
	}
	return out
}

func requiredByLabel(item workItem) string {
	if item.requiredBy == "" {
		return "seed " + item.spec.String()
	}
	return item.requiredBy
}

// Resolve expands seeds into a closed, conflict-free set for arch.
func (r ClosureResolver) Resolve(ctx context.Context, seeds []string, arch string) (types.ResolvedSet, error) {
	if r.Catalog == nil || r.Conflicts == nil {
		return types.ResolvedSet{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires a catalog and a conflict policy")
	}
	state := newClosureState(arch)
	for _, seed := range seeds {
		spec, err := ParseDependencySpec(seed)
		if err != nil {
			return types.ResolvedSet{}, err
		}
		state.push(workItem{spec: spec, seed: true})
	}

	logger := log.Ctx(ctx)
	for len(state.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return types.ResolvedSet{}, err
		}
		item := state.pop()

		if member, ok := state.findMember(item.spec); ok {
			state.satisfiedBy[member.Name] = append(state.satisfiedBy[member.Name], item)
			continue
		}
		if member, ok := state.set.Packages[item.spec.Name]; ok {
			return types.ResolvedSet{}, types.NewVersionConflictError(
				member.Name, member.Version, item.spec, item.requiredBy, state.requesters(member.Name))
		}

		candidates := r.Catalog.ResolveProvider(item.spec)
		if len(candidates) == 0 {
			if item.seed && !item.spec.IsVersioned() {
				members := r.Catalog.GroupMembers(item.spec.Name)
				if len(members) > 0 {
					logger.Info().
						Str("group", item.spec.Name).
						Int("members", len(members)).
						Msg("expanding package group")
					for _, member := range members {
						state.push(workItem{
							spec:       types.DependencySpec{Name: member.Name},
							requiredBy: item.spec.Name,
							seed:       true,
						})
					}
					continue
				}
			}
			return types.ResolvedSet{}, types.NewUnresolvedDependencyError(item.spec, item.requiredBy)
		}

		candidate := candidates[0]
		reused, evicted, err := r.admit(state, candidate, item)
		if err != nil {
			return types.ResolvedSet{}, err
		}
		if reused != "" {
			state.satisfiedBy[reused] = append(state.satisfiedBy[reused], item)
			continue
		}
		for _, name := range evicted {
			logger.Info().
				Str("package", name).
				Str("replaced_by", candidate.Name).
				Msg("replacing resolved package")
			state.queue = append(state.queue, state.evict(name)...)
		}
		state.add(candidate, item)
		logger.Debug().
			Str("package", candidate.Name).
			Str("version", candidate.Version).
			Str("repository", candidate.Repository).
			Str("for", item.spec.String()).
			Msg("resolved")
		for _, dep := range candidate.Dependencies {
			state.push(workItem{spec: dep, requiredBy: candidate.Name})
		}
	}
	return state.set, nil
}

// admit checks candidate against every member. It returns the member to
// reuse instead of the candidate, or the members the candidate replaces.
func (r ClosureResolver) admit(state *closureState, candidate types.Package, item workItem) (string, []string, error) {
	var evicted []string
	for _, name := range state.set.Order {
		member := state.set.Packages[name]
		switch r.Conflicts.Check(candidate, member) {
		case ports.ConflictNone:
		case ports.ConflictCandidateReplaces:
			evicted = append(evicted, member.Name)
		case ports.ConflictMemberReplaces:
			if PackageSatisfies(member, item.spec) {
				return member.Name, nil, nil
			}
			return "", nil, r.conflictError(candidate, member)
		default:
			return "", nil, r.conflictError(candidate, member)
		}
	}
	return "", evicted, nil
}

func (r ClosureResolver) conflictError(candidate types.Package, member types.Package) error {
	declared, _ := r.Conflicts.Declared(candidate, member)
	return types.NewConflictError(candidate.Name, member.Name, declared)
}
