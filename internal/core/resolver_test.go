package core

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrepo/internal/policies"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

func resolvedNames(set types.ResolvedSet) []string {
	out := make([]string, 0, len(set.Packages))
	for name := range set.Packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func requireClosed(t *testing.T, set types.ResolvedSet) {
	t.Helper()
	members := set.Members()
	for _, pkg := range members {
		for _, dep := range pkg.Dependencies {
			found := false
			for _, member := range members {
				if PackageSatisfies(member, dep) {
					found = true
					break
				}
			}
			require.True(t, found, "%s depends on %s which is not in the set", pkg.Name, dep.String())
		}
	}
}

func requireConflictFree(t *testing.T, set types.ResolvedSet) {
	t.Helper()
	policy := policies.NewConflictPolicy(PackageSatisfies)
	members := set.Members()
	for i, a := range members {
		for _, b := range members[i+1:] {
			require.Equal(t, ports.ConflictNone, policy.Check(a, b), "%s conflicts with %s", a.Name, b.Name)
		}
	}
}

func TestResolveBaseSystemClosure(t *testing.T) {
	resolver := NewClosureResolver(archStore())

	set, err := resolver.Resolve(t.Context(), []string{"base", "base-devel", "linux", "linux-firmware"}, "x86_64")
	require.NoError(t, err)

	want := []string{
		"acl", "base", "base-devel", "bash", "bash-completion", "binutils", "coreutils",
		"filesystem", "gcc", "glibc", "icu", "kmod", "libxml2", "linux", "linux-firmware",
		"make", "mkinitcpio", "readline", "zlib",
	}
	if diff := cmp.Diff(want, resolvedNames(set)); diff != "" {
		t.Fatalf("unexpected closure (-want +got):\n%s", diff)
	}
	assert.NotContains(t, set.Packages, "gnome-code-assistance")
	assert.NotContains(t, set.Packages, "python")
	assert.Equal(t, "extra", set.Packages["bash-completion"].Repository)
	assert.Equal(t, "extra", set.Packages["libxml2"].Repository)
	assert.Equal(t, "core", set.Packages["acl"].Repository)
	assert.Equal(t, "base", set.RequiredBy["acl"])
	assert.Equal(t, "", set.RequiredBy["linux"])
	assert.Equal(t, []string{"base", "base-devel", "linux", "linux-firmware"}, set.Order[:4])

	requireClosed(t, set)
	requireConflictFree(t, set)
}

func TestResolveIsDeterministic(t *testing.T) {
	store := archStore()
	seeds := []string{"linux", "base", "base-devel"}

	first, err := NewClosureResolver(store).Resolve(t.Context(), seeds, "x86_64")
	require.NoError(t, err)
	second, err := NewClosureResolver(store).Resolve(t.Context(), seeds, "x86_64")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolution differs between runs (-first +second):\n%s", diff)
	}
}

func TestResolveUnsatisfiedVersion(t *testing.T) {
	store := NewMetadataStore([]string{"core"},
		testPackage("core", "app", "1.0-1", "libfoo>=2.0"),
		testPackage("core", "libfoo", "1.0-1"),
	)

	_, err := NewClosureResolver(store).Resolve(t.Context(), []string{"app"}, "x86_64")
	var unresolved *types.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "libfoo", unresolved.Spec.Name)
	assert.Equal(t, "app", unresolved.RequiredBy)
}

func TestResolveUnknownSeed(t *testing.T) {
	_, err := NewClosureResolver(archStore()).Resolve(t.Context(), []string{"does-not-exist"}, "x86_64")
	var unresolved *types.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "does-not-exist", unresolved.Spec.Name)
	assert.Empty(t, unresolved.RequiredBy)
}

func TestResolveVersionConflictWithoutBacktracking(t *testing.T) {
	store := NewMetadataStore([]string{"core"},
		testPackage("core", "a", "1-1", "libfoo<2.0"),
		testPackage("core", "b", "1-1", "libfoo>=2.0"),
		testPackage("core", "libfoo", "1.5-1"),
		testPackage("core", "libfoo", "2.1-1"),
	)

	_, err := NewClosureResolver(store).Resolve(t.Context(), []string{"a", "b"}, "x86_64")
	var conflict *types.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "libfoo", conflict.Name)
	assert.Equal(t, "1.5-1", conflict.Chosen)
	assert.Equal(t, "b", conflict.RequiredBy)
	assert.Equal(t, []string{"a"}, conflict.SatisfiedBy)
}

func TestResolveProviderIsSharedAcrossSpecs(t *testing.T) {
	store := NewMetadataStore([]string{"core", "extra"},
		testPackage("core", "app", "1-1", "sh", "tool"),
		testPackage("core", "tool", "1-1", "sh"),
		provides(testPackage("core", "bash", "5.2.026-2"), "sh"),
		provides(testPackage("extra", "dash", "0.5.12-1"), "sh"),
	)

	set, err := NewClosureResolver(store).Resolve(t.Context(), []string{"app"}, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "bash", "tool"}, resolvedNames(set))
}

func TestResolveVersionedSpecIgnoresUnversionedProvide(t *testing.T) {
	store := NewMetadataStore([]string{"core"},
		testPackage("core", "app", "1-1", "sh>=1"),
		provides(testPackage("core", "bash", "5.2.026-2"), "sh"),
	)

	_, err := NewClosureResolver(store).Resolve(t.Context(), []string{"app"}, "x86_64")
	var unresolved *types.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "sh", unresolved.Spec.Name)
}

func TestResolveCyclicDependencies(t *testing.T) {
	store := NewMetadataStore([]string{"core"},
		testPackage("core", "a", "1-1", "b"),
		provides(testPackage("core", "b", "1-1", "virtual-a"), "b-impl"),
		provides(testPackage("core", "c", "1-1", "a"), "virtual-a"),
	)

	set, err := NewClosureResolver(store).Resolve(t.Context(), []string{"a"}, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, resolvedNames(set))
	requireClosed(t, set)
}

func TestResolveConflict(t *testing.T) {
	store := NewMetadataStore([]string{"core", "extra"},
		testPackage("core", "iptables", "1:1.8.10-1"),
		conflicts(testPackage("extra", "iptables-nft", "1:1.8.10-1"), "iptables"),
	)

	_, err := NewClosureResolver(store).Resolve(t.Context(), []string{"iptables", "iptables-nft"}, "x86_64")
	var conflict *types.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "iptables-nft", conflict.A)
	assert.Equal(t, "iptables", conflict.B)
	assert.Equal(t, "iptables", conflict.Declared.Name)
}

func TestResolveReplacementEvictsMember(t *testing.T) {
	nft := provides(conflicts(replaces(testPackage("extra", "iptables-nft", "1:1.8.10-1"), "iptables"), "iptables"), "iptables=1:1.8.10")
	store := NewMetadataStore([]string{"core", "extra"},
		testPackage("core", "iptables", "1:1.8.10-1"),
		testPackage("core", "firewall", "1-1", "iptables"),
		nft,
	)

	set, err := NewClosureResolver(store).Resolve(t.Context(), []string{"iptables", "iptables-nft", "firewall"}, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"firewall", "iptables-nft"}, resolvedNames(set))
	assert.NotContains(t, set.Order, "iptables")
	requireClosed(t, set)
	requireConflictFree(t, set)
}

func TestResolveMemberReplacesCandidate(t *testing.T) {
	nft := provides(conflicts(replaces(testPackage("extra", "iptables-nft", "1:1.8.10-1"), "iptables"), "iptables"), "iptables=1:1.8.10")
	store := NewMetadataStore([]string{"core", "extra"},
		testPackage("core", "iptables", "1:1.8.10-1"),
		nft,
	)

	set, err := NewClosureResolver(store).Resolve(t.Context(), []string{"iptables-nft", "iptables"}, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"iptables-nft"}, resolvedNames(set))
}

func TestResolveExpandsGroupSeeds(t *testing.T) {
	store := NewMetadataStore([]string{"core"},
		inGroups(testPackage("core", "gcc", "13.2.1-5", "glibc"), "devel"),
		inGroups(testPackage("core", "make", "4.4.1-2", "glibc"), "devel"),
		testPackage("core", "glibc", "2.39-1"),
	)

	set, err := NewClosureResolver(store).Resolve(t.Context(), []string{"devel"}, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "glibc", "make"}, resolvedNames(set))
	assert.Equal(t, "devel", set.RequiredBy["gcc"])
}

func TestResolveEmptySeeds(t *testing.T) {
	set, err := NewClosureResolver(archStore()).Resolve(t.Context(), nil, "x86_64")
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestResolveRequiresCatalog(t *testing.T) {
	_, err := ClosureResolver{}.Resolve(t.Context(), []string{"base"}, "x86_64")
	require.Error(t, err)
}
