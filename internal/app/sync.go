package app

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"myrepo/internal/core"
	"myrepo/internal/types"
)

// Sync resolves the closure, brings the repository tree in line with it
// and rebuilds the index of every bucket that synced cleanly. Once sync
// work has started, failures are reported and logged, not returned.
func (s Service) Sync(ctx context.Context, req SyncRequest) (SyncResult, error) {
	state, resolved, err := s.resolve(ctx, req)
	if err != nil {
		return SyncResult{}, err
	}
	cfg := state.cfg
	result := SyncResult{Config: cfg, Resolved: resolved}

	cleaned, err := s.PruneTempFiles(ctx, cfg.Root, state.req.TempMaxAge)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("temporary file cleanup failed")
	}
	result.Cleaned = cleaned

	plan, err := core.NewPlanner(s.Tree).Plan(ctx, resolved, cfg.Root, cfg.Repositories)
	if err != nil {
		return result, err
	}
	result.Plan = plan
	add, remove, unchanged := plan.Counts()
	log.Ctx(ctx).Info().
		Int("add", add).
		Int("remove", remove).
		Int("unchanged", unchanged).
		Msg("sync plan computed")

	signer, err := s.NewSigner(state.req)
	if err != nil {
		return result, err
	}
	executor := NewSyncExecutor(s.Fs, state.source, signer, cfg)
	report := executor.Apply(ctx, plan, cfg.Root)
	result.Report = report

	builder := NewIndexBuilder(s.Fs, s.Tree, s.Inspector, s.Codec, cfg.Workers)
	archives, failed := builder.RebuildAll(ctx, cfg.Root, report.CleanBuckets())
	for _, archive := range archives {
		report.Bucket(archive.Bucket).Indexed = true
	}
	for bucket, err := range failed {
		log.Ctx(ctx).Error().Err(err).Str("bucket", bucket.String()).Msg("bucket left un-indexed")
	}
	for _, entry := range report.Sorted() {
		if entry.Failed > 0 {
			log.Ctx(ctx).Warn().
				Str("bucket", entry.Bucket.String()).
				Int("failed", entry.Failed).
				Msg("bucket has failures, index not rebuilt")
		}
	}
	result.Archives = archives

	if cfg.LockFile != "" {
		if err := s.Lock.WriteLock(cfg.LockFile, BuildLockFile(cfg, resolved)); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("path", cfg.LockFile).Msg("failed to write lock file")
		}
	}
	if cfg.SBOMFile != "" {
		created := state.req.SBOMCreated
		if created == "" {
			created = timeNow(s.Clock).Format(time.RFC3339)
		}
		if err := s.SBOM.WriteSBOM(cfg.SBOMFile, created, resolved); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("path", cfg.SBOMFile).Msg("failed to write sbom")
		}
	}
	return result, nil
}

// BuildLockFile pins every member of resolved to its bucket and filename.
func BuildLockFile(cfg types.Config, resolved types.ResolvedSet) types.LockFile {
	lock := types.LockFile{
		Architecture: cfg.Architecture,
		Repositories: append([]string(nil), cfg.Repositories...),
	}
	for _, pkg := range resolved.Members() {
		bucket := resolved.BucketOf(pkg)
		lock.Packages = append(lock.Packages, types.LockEntry{
			Name:         pkg.Name,
			Version:      pkg.Version,
			Repository:   bucket.Repository,
			Architecture: pkg.Architecture,
			Filename:     core.PackageFilename(pkg),
			SHA256Sum:    pkg.SHA256Sum,
			RequiredBy:   resolved.RequiredBy[pkg.Name],
		})
	}
	sort.Slice(lock.Packages, func(i, j int) bool {
		if lock.Packages[i].Repository != lock.Packages[j].Repository {
			return lock.Packages[i].Repository < lock.Packages[j].Repository
		}
		return lock.Packages[i].Name < lock.Packages[j].Name
	})
	return lock
}
