package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"myrepo/internal/types"
)

// PackageExtensions lists the package archive suffixes recognised on disk,
// longest first.
var PackageExtensions = []string{
	".pkg.tar.zst",
	".pkg.tar.xz",
	".pkg.tar.gz",
	".pkg.tar",
}

const SignatureExtension = ".sig"

// IsPackageFilename reports whether name carries a package archive suffix.
func IsPackageFilename(name string) bool {
	return packageExtension(name) != ""
}

func packageExtension(name string) string {
	for _, ext := range PackageExtensions {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}

// ParsePackageFilename reads name, version and architecture from a file
// named name-[epoch:]version-release-arch.pkg.tar[.ext].
func ParsePackageFilename(filename string) (types.LocalPackageFile, error) {
	ext := packageExtension(filename)
	if ext == "" {
		return types.LocalPackageFile{}, invalidFilename(filename)
	}
	stem := strings.TrimSuffix(filename, ext)
	parts := strings.Split(stem, "-")
	if len(parts) < 4 {
		return types.LocalPackageFile{}, invalidFilename(filename)
	}
	n := len(parts)
	arch := parts[n-1]
	release := parts[n-2]
	version := parts[n-3]
	name := strings.Join(parts[:n-3], "-")
	if name == "" || version == "" || release == "" || arch == "" {
		return types.LocalPackageFile{}, invalidFilename(filename)
	}
	return types.LocalPackageFile{
		Name:         name,
		Version:      version + "-" + release,
		Architecture: arch,
		Filename:     filename,
	}, nil
}

// PackageFilename returns the upstream filename of pkg, falling back to the
// canonical zstd name when the index did not carry one.
func PackageFilename(pkg types.Package) string {
	if pkg.Filename != "" {
		return pkg.Filename
	}
	return fmt.Sprintf("%s-%s-%s.pkg.tar.zst", pkg.Name, pkg.Version, pkg.Architecture)
}

func invalidFilename(filename string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("not a package filename: %s", filename))
}
