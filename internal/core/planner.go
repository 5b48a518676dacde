package core

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// Planner diffs a resolved set against the repository tree on disk.
type Planner struct {
	Tree ports.RepoTreePort
}

func NewPlanner(tree ports.RepoTreePort) Planner {
	return Planner{Tree: tree}
}

// Plan scans root and computes the add/remove/keep sets. Buckets of the
// enabled repositories are always planned so a repository that lost every
// member is emptied.
func (p Planner) Plan(ctx context.Context, resolved types.ResolvedSet, root string, repositories []string) (types.SyncPlan, error) {
	if p.Tree == nil {
		return types.SyncPlan{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("planner requires a repository tree port")
	}
	tree, err := p.Tree.Scan(ctx, root)
	if err != nil {
		return types.SyncPlan{}, err
	}
	for _, name := range tree.Unrecognized {
		log.Ctx(ctx).Debug().Str("file", name).Msg("ignoring unrecognised file in repository tree")
	}
	buckets := make([]types.Bucket, 0, len(repositories))
	for _, repo := range repositories {
		buckets = append(buckets, types.Bucket{Repository: repo, Architecture: resolved.Architecture})
	}
	return BuildSyncPlan(resolved, tree, buckets), nil
}

type fileKey struct {
	name    string
	version string
	arch    string
}

// BuildSyncPlan is the pure diff of resolved against tree. A local file is
// kept when name, version and architecture match the resolved package,
// whatever its compression suffix.
func BuildSyncPlan(resolved types.ResolvedSet, tree types.RepoTree, extra []types.Bucket) types.SyncPlan {
	wanted := resolved.ByBucket()
	seen := map[types.Bucket]struct{}{}
	var buckets []types.Bucket
	for bucket := range wanted {
		seen[bucket] = struct{}{}
		buckets = append(buckets, bucket)
	}
	for _, bucket := range extra {
		if _, ok := seen[bucket]; ok {
			continue
		}
		seen[bucket] = struct{}{}
		buckets = append(buckets, bucket)
	}
	types.SortBuckets(buckets)

	plan := types.SyncPlan{}
	for _, bucket := range buckets {
		plan.Buckets = append(plan.Buckets, planBucket(bucket, wanted[bucket], tree.Buckets[bucket]))
	}
	return plan
}

func planBucket(bucket types.Bucket, packages []types.Package, local map[string]types.LocalPackageFile) types.BucketPlan {
	entry := types.BucketPlan{Bucket: bucket}
	pending := map[fileKey]types.Package{}
	for _, pkg := range packages {
		pending[fileKey{name: pkg.Name, version: pkg.Version, arch: pkg.Architecture}] = pkg
	}

	filenames := make([]string, 0, len(local))
	for filename := range local {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)
	for _, filename := range filenames {
		file := local[filename]
		key := fileKey{name: file.Name, version: file.Version, arch: file.Architecture}
		if _, ok := pending[key]; ok {
			entry.Unchanged = append(entry.Unchanged, file)
			delete(pending, key)
			continue
		}
		entry.ToRemove = append(entry.ToRemove, file)
	}
	for _, pkg := range packages {
		if _, ok := pending[fileKey{name: pkg.Name, version: pkg.Version, arch: pkg.Architecture}]; ok {
			entry.ToAdd = append(entry.ToAdd, pkg)
		}
	}
	return entry
}
