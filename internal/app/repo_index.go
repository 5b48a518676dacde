package app

import (
	"context"

	"myrepo/internal/policies"
	"myrepo/internal/types"
)

// RebuildIndexes regenerates the archives of every enabled bucket present
// under the repository root, without contacting a mirror.
func (s Service) RebuildIndexes(ctx context.Context, req IndexRequest) (IndexResult, error) {
	req = normalizeIndexRequest(req)
	policy, err := policies.NewRepositoryPolicy(req.Repositories)
	if err != nil {
		return IndexResult{}, err
	}
	tree, err := s.Tree.Scan(ctx, req.Root)
	if err != nil {
		return IndexResult{}, err
	}
	var buckets []types.Bucket
	for _, repo := range policy.Enabled() {
		bucket := types.Bucket{Repository: repo, Architecture: req.Architecture}
		if _, ok := tree.Buckets[bucket]; ok {
			buckets = append(buckets, bucket)
		}
	}
	types.SortBuckets(buckets)
	builder := NewIndexBuilder(s.Fs, s.Tree, s.Inspector, s.Codec, req.Workers)
	archives, failed := builder.RebuildAll(ctx, req.Root, buckets)
	return IndexResult{Archives: archives, Failed: failed}, nil
}
