package types

import "sort"

// RepoTree is the on-disk state keyed by bucket, each holding the package
// files present, keyed by filename.
type RepoTree struct {
	Buckets      map[Bucket]map[string]LocalPackageFile
	Unrecognized []string
}

func NewRepoTree() RepoTree {
	return RepoTree{Buckets: map[Bucket]map[string]LocalPackageFile{}}
}

type BucketPlan struct {
	Bucket    Bucket
	ToAdd     []Package
	ToRemove  []LocalPackageFile
	Unchanged []LocalPackageFile
}

func (b BucketPlan) IsNoop() bool {
	return len(b.ToAdd) == 0 && len(b.ToRemove) == 0
}

type SyncPlan struct {
	Buckets []BucketPlan
}

func (p SyncPlan) Bucket(bucket Bucket) (BucketPlan, bool) {
	for _, entry := range p.Buckets {
		if entry.Bucket == bucket {
			return entry, true
		}
	}
	return BucketPlan{}, false
}

func (p SyncPlan) Counts() (add int, remove int, unchanged int) {
	for _, entry := range p.Buckets {
		add += len(entry.ToAdd)
		remove += len(entry.ToRemove)
		unchanged += len(entry.Unchanged)
	}
	return add, remove, unchanged
}

func SortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Repository != buckets[j].Repository {
			return buckets[i].Repository < buckets[j].Repository
		}
		return buckets[i].Architecture < buckets[j].Architecture
	})
}
