package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"

	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// RepoTreeAdapter reads the <root>/<repo>/os/<arch>/ layout from a
// filesystem. Package files are recognised by name only; index archives,
// signatures and temporary files are skipped.
type RepoTreeAdapter struct {
	fs afero.Fs
}

func NewRepoTreeAdapter(fs afero.Fs) RepoTreeAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return RepoTreeAdapter{fs: fs}
}

func (a RepoTreeAdapter) BucketDir(root string, bucket types.Bucket) string {
	return BucketDir(root, bucket)
}

func BucketDir(root string, bucket types.Bucket) string {
	return filepath.Join(root, bucket.Repository, "os", bucket.Architecture)
}

// Scan lists every bucket under root. A missing root is an empty tree.
func (a RepoTreeAdapter) Scan(ctx context.Context, root string) (types.RepoTree, error) {
	tree := types.NewRepoTree()
	if strings.TrimSpace(root) == "" {
		return tree, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository root is empty")
	}
	repos, err := afero.ReadDir(a.fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return tree, nil
		}
		return tree, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan repository root").
			WithCause(err)
	}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return tree, err
		}
		if !repo.IsDir() || shouldSkipTreeDir(repo.Name()) {
			continue
		}
		archs, err := afero.ReadDir(a.fs, filepath.Join(root, repo.Name(), "os"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return tree, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to scan repository " + repo.Name()).
				WithCause(err)
		}
		for _, arch := range archs {
			if !arch.IsDir() {
				continue
			}
			bucket := types.Bucket{Repository: repo.Name(), Architecture: arch.Name()}
			files, unrecognized, err := a.scanBucket(BucketDir(root, bucket))
			if err != nil {
				return tree, err
			}
			tree.Buckets[bucket] = files
			tree.Unrecognized = append(tree.Unrecognized, unrecognized...)
		}
	}
	return tree, nil
}

// ScanBucket lists the package files of a single bucket directory.
func (a RepoTreeAdapter) ScanBucket(root string, bucket types.Bucket) (map[string]types.LocalPackageFile, error) {
	files, _, err := a.scanBucket(BucketDir(root, bucket))
	return files, err
}

func (a RepoTreeAdapter) scanBucket(dir string) (map[string]types.LocalPackageFile, []string, error) {
	files := map[string]types.LocalPackageFile{}
	var unrecognized []string
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil, nil
		}
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan repository directory").
			WithCause(err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || shouldSkipTreeFile(name) {
			continue
		}
		file, err := core.ParsePackageFilename(name)
		if err != nil {
			unrecognized = append(unrecognized, filepath.Join(dir, name))
			continue
		}
		files[name] = file
	}
	return files, unrecognized, nil
}

func shouldSkipTreeDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

func shouldSkipTreeFile(name string) bool {
	switch {
	case strings.HasPrefix(name, "."):
		return true
	case strings.HasSuffix(name, core.SignatureExtension):
		return true
	case strings.Contains(name, ".db") || strings.Contains(name, ".files"):
		return !core.IsPackageFilename(name)
	default:
		return false
	}
}

var _ ports.RepoTreePort = RepoTreeAdapter{}
