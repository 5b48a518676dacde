package types

import "sort"

// FetchFailure records one non-fatal sync task failure.
type FetchFailure struct {
	Bucket   Bucket
	Package  string
	Version  string
	Stage    FailureStage
	Attempts int
	Err      error
}

func (f FetchFailure) Error() string {
	msg := string(f.Stage) + " " + f.Package
	if f.Version != "" {
		msg += "-" + f.Version
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

type BucketReport struct {
	Bucket    Bucket
	Added     int
	Removed   int
	Unchanged int
	Failed    int
	Indexed   bool
	Failures  []FetchFailure
}

type SyncReport struct {
	Buckets map[Bucket]*BucketReport
}

func NewSyncReport() SyncReport {
	return SyncReport{Buckets: map[Bucket]*BucketReport{}}
}

func (r SyncReport) Bucket(bucket Bucket) *BucketReport {
	entry, ok := r.Buckets[bucket]
	if !ok {
		entry = &BucketReport{Bucket: bucket}
		r.Buckets[bucket] = entry
	}
	return entry
}

func (r SyncReport) Failures() []FetchFailure {
	var out []FetchFailure
	for _, entry := range r.Sorted() {
		out = append(out, entry.Failures...)
	}
	return out
}

// CleanBuckets lists the buckets that completed without failures.
func (r SyncReport) CleanBuckets() []Bucket {
	var out []Bucket
	for bucket, entry := range r.Buckets {
		if entry.Failed == 0 {
			out = append(out, bucket)
		}
	}
	SortBuckets(out)
	return out
}

func (r SyncReport) Sorted() []BucketReport {
	out := make([]BucketReport, 0, len(r.Buckets))
	for _, entry := range r.Buckets {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bucket.Repository != out[j].Bucket.Repository {
			return out[i].Bucket.Repository < out[j].Bucket.Repository
		}
		return out[i].Bucket.Architecture < out[j].Bucket.Architecture
	})
	return out
}
