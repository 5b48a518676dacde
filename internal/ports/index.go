package ports

import (
	"context"

	"myrepo/internal/types"
)

// IndexCodec converts between index records and the archive bytes of a
// repository database.
type IndexCodec interface {
	Encode(records []types.IndexRecord, kind types.IndexKind) ([]byte, error)
	Decode(data []byte) ([]types.IndexRecord, error)
}

// PackageInspector reads the metadata embedded in a package archive on disk.
type PackageInspector interface {
	Inspect(ctx context.Context, path string) (types.IndexRecord, error)
}

// IndexBuilderPort regenerates the index archives of a bucket.
type IndexBuilderPort interface {
	Rebuild(ctx context.Context, root string, bucket types.Bucket) (types.IndexArchive, error)
}
