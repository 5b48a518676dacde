package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

const defaultMetadataWorkers = 4

// MetadataStore holds every package record of the loaded repositories for
// one run. It is read-only once built.
type MetadataStore struct {
	repositories []string
	priority     map[string]int
	byName       map[string][]types.Package
	byProvide    map[string][]types.Package
	byGroup      map[string][]types.Package
	total        int
}

// NewMetadataStore indexes packages in memory. repositories gives the
// priority order used to break version ties.
func NewMetadataStore(repositories []string, packages ...types.Package) *MetadataStore {
	store := &MetadataStore{
		repositories: append([]string(nil), repositories...),
		priority:     map[string]int{},
		byName:       map[string][]types.Package{},
		byProvide:    map[string][]types.Package{},
		byGroup:      map[string][]types.Package{},
	}
	for i, repo := range repositories {
		if _, ok := store.priority[repo]; !ok {
			store.priority[repo] = i
		}
	}
	for _, pkg := range packages {
		store.add(pkg)
	}
	for name := range store.byName {
		store.sortCandidates(store.byName[name])
	}
	for name := range store.byProvide {
		store.sortCandidates(store.byProvide[name])
	}
	for group := range store.byGroup {
		sort.Slice(store.byGroup[group], func(i, j int) bool {
			return store.less(store.byGroup[group][i], store.byGroup[group][j])
		})
	}
	return store
}

func (s *MetadataStore) add(pkg types.Package) {
	if _, ok := s.priority[pkg.Repository]; !ok {
		s.priority[pkg.Repository] = len(s.priority)
		s.repositories = append(s.repositories, pkg.Repository)
	}
	s.byName[pkg.Name] = append(s.byName[pkg.Name], pkg)
	seen := map[string]struct{}{}
	for _, provide := range pkg.Provides {
		if provide.Name == pkg.Name {
			continue
		}
		if _, ok := seen[provide.Name]; ok {
			continue
		}
		seen[provide.Name] = struct{}{}
		s.byProvide[provide.Name] = append(s.byProvide[provide.Name], pkg)
	}
	for _, group := range pkg.Groups {
		s.byGroup[group] = append(s.byGroup[group], pkg)
	}
	s.total++
}

// less orders candidates by descending version, then repository priority,
// then name.
func (s *MetadataStore) less(a types.Package, b types.Package) bool {
	if cmp := CompareVersions(a.Version, b.Version); cmp != 0 {
		return cmp > 0
	}
	if pa, pb := s.priority[a.Repository], s.priority[b.Repository]; pa != pb {
		return pa < pb
	}
	return a.Name < b.Name
}

func (s *MetadataStore) sortCandidates(candidates []types.Package) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return s.less(candidates[i], candidates[j])
	})
}

// Lookup returns the preferred package named exactly name.
func (s *MetadataStore) Lookup(name string) (types.Package, bool) {
	candidates := s.byName[name]
	if len(candidates) == 0 {
		return types.Package{}, false
	}
	return candidates[0], true
}

// ResolveProvider lists every package satisfying spec: exact-name matches
// first, then provider-only matches, each group in candidate order.
func (s *MetadataStore) ResolveProvider(spec types.DependencySpec) []types.Package {
	var out []types.Package
	for _, pkg := range s.byName[spec.Name] {
		ok, err := Satisfies(pkg.Version, spec.Op, spec.Version)
		if err == nil && ok {
			out = append(out, pkg)
		}
	}
	for _, pkg := range s.byProvide[spec.Name] {
		if pkg.Name == spec.Name {
			continue
		}
		for _, provide := range pkg.Provides {
			if providesSatisfies(provide, spec) {
				out = append(out, pkg)
				break
			}
		}
	}
	return out
}

// GroupMembers returns the preferred package of each distinct name in the
// group, sorted by name.
func (s *MetadataStore) GroupMembers(group string) []types.Package {
	seen := map[string]struct{}{}
	var out []types.Package
	for _, pkg := range s.byGroup[group] {
		if _, ok := seen[pkg.Name]; ok {
			continue
		}
		seen[pkg.Name] = struct{}{}
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *MetadataStore) Len() int {
	return s.total
}

func (s *MetadataStore) Repositories() []string {
	return append([]string(nil), s.repositories...)
}

var _ ports.CatalogPort = (*MetadataStore)(nil)

// LoadMetadataStore fetches and decodes the index of every repository
// concurrently. Any fetch or parse failure aborts the load.
func LoadMetadataStore(ctx context.Context, source ports.MirrorSource, codec ports.IndexCodec, repositories []string, arch string, workers int) (*MetadataStore, error) {
	if workers <= 0 {
		workers = defaultMetadataWorkers
	}
	loaded := make([][]types.Package, len(repositories))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, repo := range repositories {
		group.Go(func() error {
			packages, err := loadRepository(groupCtx, source, codec, repo, arch)
			if err != nil {
				return err
			}
			loaded[i] = packages
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	var all []types.Package
	for _, packages := range loaded {
		all = append(all, packages...)
	}
	store := NewMetadataStore(repositories, all...)
	log.Ctx(ctx).Debug().
		Int("packages", store.Len()).
		Strs("repositories", repositories).
		Msg("metadata loaded")
	return store, nil
}

func loadRepository(ctx context.Context, source ports.MirrorSource, codec ports.IndexCodec, repo string, arch string) ([]types.Package, error) {
	data, err := source.FetchIndex(ctx, repo, arch)
	if err != nil {
		return nil, types.NewMetadataFetchError(repo, arch, err)
	}
	records, err := codec.Decode(data)
	if err != nil {
		return nil, types.NewMetadataParseError(repo, arch, err)
	}
	packages := make([]types.Package, 0, len(records))
	for _, record := range records {
		pkg, err := PackageFromRecord(record, repo)
		if err != nil {
			return nil, types.NewMetadataParseError(repo, arch, err)
		}
		if pkg.Name == "" {
			return nil, types.NewMalformedRecordError(repo, arch, record.Filename, "NAME")
		}
		if pkg.Version == "" {
			return nil, types.NewMalformedRecordError(repo, arch, pkg.Name, "VERSION")
		}
		packages = append(packages, pkg)
	}
	log.Ctx(ctx).Debug().
		Str("repository", repo).
		Str("arch", arch).
		Int("packages", len(packages)).
		Msg("repository index decoded")
	return packages, nil
}

// PackageFromRecord converts an index record into a package tagged with
// its repository.
func PackageFromRecord(record types.IndexRecord, repository string) (types.Package, error) {
	depends, err := ParseDependencySpecs(record.Depends)
	if err != nil {
		return types.Package{}, err
	}
	provides, err := ParseDependencySpecs(record.Provides)
	if err != nil {
		return types.Package{}, err
	}
	conflicts, err := ParseDependencySpecs(record.Conflicts)
	if err != nil {
		return types.Package{}, err
	}
	replaces, err := ParseDependencySpecs(record.Replaces)
	if err != nil {
		return types.Package{}, err
	}
	return types.Package{
		Name:           record.Name,
		Base:           record.Base,
		Version:        record.Version,
		Architecture:   record.Arch,
		Repository:     repository,
		Filename:       record.Filename,
		Description:    record.Description,
		Dependencies:   depends,
		Provides:       provides,
		Conflicts:      conflicts,
		Replaces:       replaces,
		Groups:         append([]string(nil), record.Groups...),
		CompressedSize: record.CSize,
		InstalledSize:  record.ISize,
		SHA256Sum:      record.SHA256Sum,
		PGPSignature:   record.PGPSig,
	}, nil
}
