package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"myrepo/internal/adapters"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

const defaultIndexWorkers = 4

const (
	dbArchiveSuffix    = ".db.tar.gz"
	filesArchiveSuffix = ".files.tar.gz"
	backupSuffix       = ".old"
)

// IndexBuilder regenerates the index archives of a bucket from the
// package files actually present on disk.
type IndexBuilder struct {
	Fs        afero.Fs
	Tree      ports.RepoTreePort
	Inspector ports.PackageInspector
	Codec     ports.IndexCodec
	Workers   int
}

func NewIndexBuilder(fs afero.Fs, tree ports.RepoTreePort, inspector ports.PackageInspector, codec ports.IndexCodec, workers int) IndexBuilder {
	return IndexBuilder{Fs: fs, Tree: tree, Inspector: inspector, Codec: codec, Workers: workers}
}

// Rebuild enumerates the bucket directory and rewrites its archives.
func (b IndexBuilder) Rebuild(ctx context.Context, root string, bucket types.Bucket) (types.IndexArchive, error) {
	files, err := b.Tree.ScanBucket(root, bucket)
	if err != nil {
		return types.IndexArchive{}, err
	}
	return b.RebuildFiles(ctx, root, bucket, files)
}

// RebuildFiles indexes the given files of a bucket. Each package is
// re-read from disk so the archive matches what is published.
func (b IndexBuilder) RebuildFiles(ctx context.Context, root string, bucket types.Bucket, files map[string]types.LocalPackageFile) (types.IndexArchive, error) {
	dir := adapters.BucketDir(root, bucket)
	if err := b.Fs.MkdirAll(dir, 0o755); err != nil {
		return types.IndexArchive{}, indexWriteError(bucket, err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	records := make([]types.IndexRecord, 0, len(names))
	for _, name := range names {
		record, err := b.Inspector.Inspect(ctx, filepath.Join(dir, files[name].Filename))
		if err != nil {
			return types.IndexArchive{}, err
		}
		records = append(records, record)
	}

	archive := types.IndexArchive{
		Bucket:    bucket,
		DBPath:    filepath.Join(dir, bucket.Repository+dbArchiveSuffix),
		FilesPath: filepath.Join(dir, bucket.Repository+filesArchiveSuffix),
		Records:   len(records),
	}
	for _, target := range []struct {
		kind types.IndexKind
		path string
		link string
	}{
		{kind: types.IndexKindDB, path: archive.DBPath, link: filepath.Join(dir, bucket.Repository+".db")},
		{kind: types.IndexKindFiles, path: archive.FilesPath, link: filepath.Join(dir, bucket.Repository+".files")},
	} {
		data, err := b.Codec.Encode(records, target.kind)
		if err != nil {
			return types.IndexArchive{}, err
		}
		backup, err := b.replace(dir, target.path, data)
		if err != nil {
			return types.IndexArchive{}, indexWriteError(bucket, err)
		}
		if backup != "" {
			archive.BackupPaths = append(archive.BackupPaths, backup)
		}
		if err := b.refreshLink(dir, target.link, target.path); err != nil {
			return types.IndexArchive{}, indexWriteError(bucket, err)
		}
	}

	log.Ctx(ctx).Info().
		Str("bucket", bucket.String()).
		Int("records", archive.Records).
		Msg("index rebuilt")
	return archive, nil
}

// replace writes data beside target, moves the current archive to its
// backup name and renames the new archive into place. It returns the
// backup path when a previous archive existed.
func (b IndexBuilder) replace(dir string, target string, data []byte) (string, error) {
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(b.Fs, tmp, data, 0o644); err != nil {
		_ = b.Fs.Remove(tmp)
		return "", err
	}
	backup := ""
	if _, err := b.Fs.Stat(target); err == nil {
		backup = target + backupSuffix
		if err := b.Fs.Remove(backup); err != nil && !os.IsNotExist(err) {
			_ = b.Fs.Remove(tmp)
			return "", err
		}
		if err := b.Fs.Rename(target, backup); err != nil {
			_ = b.Fs.Remove(tmp)
			return "", err
		}
	} else if !os.IsNotExist(err) {
		_ = b.Fs.Remove(tmp)
		return "", err
	}
	if err := b.Fs.Rename(tmp, target); err != nil {
		_ = b.Fs.Remove(tmp)
		return "", err
	}
	return backup, nil
}

// refreshLink points link at the base name of target. Filesystems without
// symlink support get a copy instead.
func (b IndexBuilder) refreshLink(dir string, link string, target string) error {
	tmp := filepath.Join(dir, "."+uuid.NewString()+".lnk")
	if linker, ok := b.Fs.(afero.Linker); ok {
		if err := linker.SymlinkIfPossible(filepath.Base(target), tmp); err == nil {
			if err := b.Fs.Rename(tmp, link); err != nil {
				_ = b.Fs.Remove(tmp)
				return err
			}
			return nil
		}
	}
	data, err := afero.ReadFile(b.Fs, target)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(b.Fs, tmp, data, 0o644); err != nil {
		_ = b.Fs.Remove(tmp)
		return err
	}
	if err := b.Fs.Rename(tmp, link); err != nil {
		_ = b.Fs.Remove(tmp)
		return err
	}
	return nil
}

// RebuildAll indexes buckets concurrently. Buckets are independent, so a
// failure in one is recorded and the others continue. No bucket starts
// after ctx is cancelled; started rebuilds always finish.
func (b IndexBuilder) RebuildAll(ctx context.Context, root string, buckets []types.Bucket) ([]types.IndexArchive, map[types.Bucket]error) {
	workers := b.Workers
	if workers <= 0 {
		workers = defaultIndexWorkers
	}
	inflight := context.WithoutCancel(ctx)
	group := new(errgroup.Group)
	group.SetLimit(workers)

	var mu sync.Mutex
	archives := make([]types.IndexArchive, 0, len(buckets))
	failed := map[types.Bucket]error{}
	for _, bucket := range buckets {
		if ctx.Err() != nil {
			mu.Lock()
			failed[bucket] = ctx.Err()
			mu.Unlock()
			continue
		}
		group.Go(func() error {
			archive, err := b.Rebuild(inflight, root, bucket)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Ctx(inflight).Error().Err(err).Str("bucket", bucket.String()).Msg("index rebuild failed")
				failed[bucket] = err
				return nil
			}
			archives = append(archives, archive)
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Bucket.String() < archives[j].Bucket.String()
	})
	return archives, failed
}

func indexWriteError(bucket types.Bucket, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to write index for " + bucket.String()).
		WithCause(err)
}

var _ ports.IndexBuilderPort = IndexBuilder{}
