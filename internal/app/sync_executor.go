package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"myrepo/internal/adapters"
	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

const defaultSyncWorkers = 8
const defaultFetchAttempts = 3
const defaultFetchRetryDelay = 500 * time.Millisecond
const maxFetchRetryDelay = 10 * time.Second

// SyncExecutor materialises a SyncPlan on disk. Tasks run on a fixed pool
// of workers and a single aggregator builds the report.
type SyncExecutor struct {
	Fs             afero.Fs
	Source         ports.MirrorSource
	Signer         ports.Signer
	Workers        int
	Attempts       int
	RetryDelay     time.Duration
	SkipSignatures bool
	SignMissing    bool
}

func NewSyncExecutor(fs afero.Fs, source ports.MirrorSource, signer ports.Signer, cfg types.Config) SyncExecutor {
	return SyncExecutor{
		Fs:             fs,
		Source:         source,
		Signer:         signer,
		Workers:        cfg.Workers,
		Attempts:       cfg.FetchAttempts,
		RetryDelay:     cfg.RetryDelay,
		SkipSignatures: cfg.SkipSignatures,
		SignMissing:    cfg.SignMissing,
	}
}

type syncTaskKind int

const (
	syncTaskAdd syncTaskKind = iota
	syncTaskRemove
)

type syncTask struct {
	kind   syncTaskKind
	bucket types.Bucket
	dir    string
	pkg    types.Package
	file   types.LocalPackageFile
}

type syncResult struct {
	task    syncTask
	failure *types.FetchFailure
}

// Apply runs every add and remove of plan under root. Failures are
// recorded per package and never abort the run. Once ctx is cancelled no
// new task starts; tasks already running finish.
func (e SyncExecutor) Apply(ctx context.Context, plan types.SyncPlan, root string) types.SyncReport {
	report := types.NewSyncReport()
	var tasks []syncTask
	for _, bucket := range plan.Buckets {
		entry := report.Bucket(bucket.Bucket)
		entry.Unchanged = len(bucket.Unchanged)
		dir := adapters.BucketDir(root, bucket.Bucket)
		for _, file := range bucket.ToRemove {
			tasks = append(tasks, syncTask{kind: syncTaskRemove, bucket: bucket.Bucket, dir: dir, file: file})
		}
		for _, pkg := range bucket.ToAdd {
			tasks = append(tasks, syncTask{kind: syncTaskAdd, bucket: bucket.Bucket, dir: dir, pkg: pkg})
		}
	}
	if len(tasks) == 0 {
		return report
	}

	workerCount := e.Workers
	if workerCount <= 0 {
		workerCount = defaultSyncWorkers
	}
	if len(tasks) < workerCount {
		workerCount = len(tasks)
	}
	inflight := context.WithoutCancel(ctx)
	queue := make(chan syncTask)
	results := make(chan syncResult, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- syncResult{task: task, failure: e.run(ctx, inflight, task)}
			}
		}()
	}
	go func() {
		dispatched := 0
	dispatch:
		for _, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			select {
			case queue <- task:
				dispatched++
			case <-ctx.Done():
				break dispatch
			}
		}
		close(queue)
		wg.Wait()
		for _, task := range tasks[dispatched:] {
			results <- syncResult{task: task, failure: skippedFailure(task, ctx.Err())}
		}
		close(results)
	}()

	for result := range results {
		entry := report.Bucket(result.task.bucket)
		if result.failure != nil {
			entry.Failed++
			entry.Failures = append(entry.Failures, *result.failure)
			continue
		}
		switch result.task.kind {
		case syncTaskAdd:
			entry.Added++
		case syncTaskRemove:
			entry.Removed++
		}
	}
	return report
}

func skippedFailure(task syncTask, cause error) *types.FetchFailure {
	if cause == nil {
		cause = context.Canceled
	}
	failure := &types.FetchFailure{Bucket: task.bucket, Stage: types.FailureStageFetch, Err: cause}
	if task.kind == syncTaskRemove {
		failure.Package = task.file.Name
		failure.Version = task.file.Version
		failure.Stage = types.FailureStageRemove
	} else {
		failure.Package = task.pkg.Name
		failure.Version = task.pkg.Version
	}
	return failure
}

func (e SyncExecutor) run(parent context.Context, ctx context.Context, task syncTask) *types.FetchFailure {
	if task.kind == syncTaskRemove {
		return e.remove(ctx, task)
	}
	return e.add(parent, ctx, task)
}

func (e SyncExecutor) remove(ctx context.Context, task syncTask) *types.FetchFailure {
	target := filepath.Join(task.dir, task.file.Filename)
	for _, path := range []string{target, target + core.SignatureExtension} {
		if err := e.Fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return &types.FetchFailure{
				Bucket:   task.bucket,
				Package:  task.file.Name,
				Version:  task.file.Version,
				Stage:    types.FailureStageRemove,
				Attempts: 1,
				Err:      err,
			}
		}
	}
	log.Ctx(ctx).Info().
		Str("bucket", task.bucket.String()).
		Str("file", task.file.Filename).
		Msg("removed stale package")
	return nil
}

// stageError tags an error with the step that produced it.
type stageError struct {
	stage types.FailureStage
	err   error
}

func (e stageError) Error() string { return e.err.Error() }
func (e stageError) Unwrap() error { return e.err }

func (e SyncExecutor) add(parent context.Context, ctx context.Context, task syncTask) *types.FetchFailure {
	attempts := e.Attempts
	if attempts <= 0 {
		attempts = defaultFetchAttempts
	}
	logger := log.Ctx(ctx)
	var lastErr stageError
	for attempt := 1; attempt <= attempts; attempt++ {
		err := e.addOnce(ctx, task)
		if err == nil {
			logger.Info().
				Str("bucket", task.bucket.String()).
				Str("package", task.pkg.Name).
				Str("version", task.pkg.Version).
				Msg("added package")
			return nil
		}
		if !errors.As(err, &lastErr) {
			lastErr = stageError{stage: types.FailureStageFetch, err: err}
		}
		logger.Warn().
			Err(err).
			Str("package", task.pkg.Name).
			Int("attempt", attempt).
			Msg("package sync attempt failed")
		if lastErr.stage == types.FailureStageSign || lastErr.stage == types.FailureStageWrite {
			return e.failure(task, lastErr, attempt)
		}
		if attempt < attempts {
			if parent.Err() != nil {
				return e.failure(task, lastErr, attempt)
			}
			sleepFor(ctx, fetchRetryDelay(attempt, e.RetryDelay))
		}
	}
	return e.failure(task, lastErr, attempts)
}

func (e SyncExecutor) failure(task syncTask, err stageError, attempts int) *types.FetchFailure {
	return &types.FetchFailure{
		Bucket:   task.bucket,
		Package:  task.pkg.Name,
		Version:  task.pkg.Version,
		Stage:    err.stage,
		Attempts: attempts,
		Err:      err.err,
	}
}

// addOnce downloads, verifies and signs one package, then renames the
// signature and the package into place in that order. A signature is never
// left behind without its package.
func (e SyncExecutor) addOnce(ctx context.Context, task syncTask) error {
	if err := e.Fs.MkdirAll(task.dir, 0o755); err != nil {
		return stageError{stage: types.FailureStageWrite, err: err}
	}
	filename := core.PackageFilename(task.pkg)
	ref := ports.PackageRef{
		Repository:   task.pkg.Repository,
		Architecture: task.bucket.Architecture,
		Filename:     filename,
	}
	tmpPackage, err := e.download(ctx, ref, task.dir, task.pkg.SHA256Sum)
	if err != nil {
		return err
	}
	keep := false
	defer func() {
		if !keep {
			_ = e.Fs.Remove(tmpPackage)
		}
	}()

	var signature []byte
	if !e.SkipSignatures {
		signature, err = e.signature(ctx, ref, task.pkg, tmpPackage)
		if err != nil {
			return err
		}
	}
	target := filepath.Join(task.dir, filename)
	if len(signature) > 0 {
		if err := e.writeAtomic(task.dir, target+core.SignatureExtension, signature); err != nil {
			return stageError{stage: types.FailureStageWrite, err: err}
		}
	}
	if err := e.Fs.Rename(tmpPackage, target); err != nil {
		if len(signature) > 0 {
			_ = e.Fs.Remove(target + core.SignatureExtension)
		}
		return stageError{stage: types.FailureStageWrite, err: err}
	}
	keep = true
	return nil
}

// download streams the package into a hidden temporary file and checks
// its SHA-256 when the index carried one.
func (e SyncExecutor) download(ctx context.Context, ref ports.PackageRef, dir string, wantSum string) (string, error) {
	body, err := e.Source.FetchPackage(ctx, ref)
	if err != nil {
		return "", stageError{stage: types.FailureStageFetch, err: err}
	}
	defer body.Close()

	tmp := filepath.Join(dir, "."+uuid.NewString()+".part")
	file, err := e.Fs.Create(tmp)
	if err != nil {
		return "", stageError{stage: types.FailureStageWrite, err: err}
	}
	hash := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(file, hash), body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = e.Fs.Remove(tmp)
		return "", stageError{stage: types.FailureStageFetch, err: copyErr}
	}
	if closeErr != nil {
		_ = e.Fs.Remove(tmp)
		return "", stageError{stage: types.FailureStageWrite, err: closeErr}
	}
	if wantSum != "" {
		got := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(got, wantSum) {
			_ = e.Fs.Remove(tmp)
			return "", stageError{
				stage: types.FailureStageVerify,
				err:   fmt.Errorf("sha256 mismatch for %s: want %s got %s", ref.Filename, wantSum, got),
			}
		}
	}
	return tmp, nil
}

// signature returns the detached signature for a package: the upstream
// .sig file, else the signature embedded in the index, else a local one
// when signing missing signatures is enabled. A nil result means the
// package is published unsigned.
func (e SyncExecutor) signature(ctx context.Context, ref ports.PackageRef, pkg types.Package, payloadPath string) ([]byte, error) {
	body, err := e.Source.FetchSignature(ctx, ref)
	if err == nil {
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, stageError{stage: types.FailureStageFetch, err: err}
		}
		return data, nil
	}
	if !errors.Is(err, types.ErrSignatureNotFound) {
		return nil, stageError{stage: types.FailureStageFetch, err: err}
	}
	if pkg.PGPSignature != "" {
		data, err := base64.StdEncoding.DecodeString(pkg.PGPSignature)
		if err == nil {
			return data, nil
		}
		log.Ctx(ctx).Warn().Err(err).Str("package", pkg.Name).Msg("ignoring undecodable index signature")
	}
	if !e.SignMissing {
		log.Ctx(ctx).Warn().Str("package", pkg.Name).Msg("no upstream signature, publishing unsigned")
		return nil, nil
	}
	if e.Signer == nil {
		return nil, stageError{
			stage: types.FailureStageSign,
			err: errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("signature missing upstream and no signer configured"),
		}
	}
	payload, err := afero.ReadFile(e.Fs, payloadPath)
	if err != nil {
		return nil, stageError{stage: types.FailureStageSign, err: err}
	}
	signature, err := e.Signer.Sign(ctx, bytes.NewReader(payload))
	if err != nil {
		return nil, stageError{stage: types.FailureStageSign, err: err}
	}
	log.Ctx(ctx).Info().Str("package", pkg.Name).Msg("signed package locally")
	return signature, nil
}

func (e SyncExecutor) writeAtomic(dir string, target string, data []byte) error {
	tmp := filepath.Join(dir, "."+uuid.NewString()+".part")
	if err := afero.WriteFile(e.Fs, tmp, data, 0o644); err != nil {
		_ = e.Fs.Remove(tmp)
		return err
	}
	if err := e.Fs.Rename(tmp, target); err != nil {
		_ = e.Fs.Remove(tmp)
		return err
	}
	return nil
}

func fetchRetryDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = defaultFetchRetryDelay
	}
	delay := base * time.Duration(1<<(attempt-1))
	if delay > maxFetchRetryDelay {
		delay = maxFetchRetryDelay
	}
	return delay
}

func sleepFor(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
