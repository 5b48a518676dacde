package core

import (
	"myrepo/internal/types"
)

func specs(raw ...string) []types.DependencySpec {
	out, err := ParseDependencySpecs(raw)
	if err != nil {
		panic(err)
	}
	return out
}

func testPackage(repo, name, version string, depends ...string) types.Package {
	return types.Package{
		Name:         name,
		Version:      version,
		Architecture: "x86_64",
		Repository:   repo,
		Dependencies: specs(depends...),
	}
}

func provides(pkg types.Package, raw ...string) types.Package {
	pkg.Provides = append(pkg.Provides, specs(raw...)...)
	return pkg
}

func conflicts(pkg types.Package, raw ...string) types.Package {
	pkg.Conflicts = append(pkg.Conflicts, specs(raw...)...)
	return pkg
}

func replaces(pkg types.Package, raw ...string) types.Package {
	pkg.Replaces = append(pkg.Replaces, specs(raw...)...)
	return pkg
}

func inGroups(pkg types.Package, groups ...string) types.Package {
	pkg.Groups = append(pkg.Groups, groups...)
	return pkg
}

// archStore is a small slice of a distribution: a base system, a kernel,
// and a few unrelated desktop packages.
func archStore() *MetadataStore {
	return NewMetadataStore([]string{"core", "extra"},
		testPackage("core", "base", "3-2", "filesystem", "bash", "acl", "glibc"),
		testPackage("core", "filesystem", "2024.04.07-1"),
		provides(testPackage("core", "bash", "5.2.026-2", "glibc", "readline>=8.0"), "sh"),
		testPackage("core", "readline", "8.2.010-1", "glibc"),
		testPackage("core", "glibc", "2.39-1"),
		testPackage("core", "acl", "2.3.2-1", "glibc"),
		testPackage("core", "base-devel", "1-1", "gcc", "make", "bash-completion"),
		testPackage("core", "gcc", "13.2.1-5", "glibc", "binutils>=2.28"),
		testPackage("core", "binutils", "2.42-2", "glibc", "zlib"),
		testPackage("core", "make", "4.4.1-2", "glibc", "sh"),
		testPackage("core", "zlib", "1:1.3.1-1", "glibc"),
		testPackage("core", "linux", "6.8.7.arch1-1", "coreutils", "kmod", "mkinitcpio"),
		testPackage("core", "coreutils", "9.5-1", "glibc", "acl"),
		testPackage("core", "kmod", "32-1", "glibc", "zlib"),
		testPackage("core", "mkinitcpio", "38.1-1", "bash", "libxml2"),
		testPackage("core", "linux-firmware", "20240409.1addd7dc-1"),
		testPackage("extra", "bash-completion", "2.13.0-1", "bash"),
		testPackage("extra", "libxml2", "2.12.6-1", "zlib", "icu"),
		testPackage("core", "icu", "74.2-2", "glibc"),
		testPackage("extra", "gnome-code-assistance", "3:3.16.1+r14+gaad6437-1", "libxml2", "python"),
		testPackage("core", "python", "3.12.3-1", "glibc"),
	)
}
