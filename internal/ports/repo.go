package ports

import (
	"context"
	"io"

	"myrepo/internal/types"
)

// PackageRef addresses one package file on a mirror.
type PackageRef struct {
	Repository   string
	Architecture string
	Filename     string
}

// MirrorSource fetches repository indexes and package files from upstream
// mirrors.
type MirrorSource interface {
	FetchIndex(ctx context.Context, repository string, arch string) ([]byte, error)
	FetchPackage(ctx context.Context, ref PackageRef) (io.ReadCloser, error)
	// FetchSignature returns types.ErrSignatureNotFound when no mirror has
	// a detached signature for the file.
	FetchSignature(ctx context.Context, ref PackageRef) (io.ReadCloser, error)
}

// RepoTreePort inspects the local repository tree.
type RepoTreePort interface {
	Scan(ctx context.Context, root string) (types.RepoTree, error)
	ScanBucket(root string, bucket types.Bucket) (map[string]types.LocalPackageFile, error)
	BucketDir(root string, bucket types.Bucket) string
}

// CatalogPort answers package queries over loaded repository metadata.
type CatalogPort interface {
	Lookup(name string) (types.Package, bool)
	ResolveProvider(spec types.DependencySpec) []types.Package
	GroupMembers(group string) []types.Package
}
