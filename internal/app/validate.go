package app

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"myrepo/internal/adapters"
	"myrepo/internal/shared"
	"myrepo/internal/types"
)

const (
	DefaultRepoRoot     = "/srv/repo"
	defaultTempMaxAge   = time.Hour
	defaultHTTPTimeout  = 60
	defaultHTTPRetries  = 3
	defaultHTTPDelayMs  = 200
	defaultRetryDelayMs = 500
)

// normalizeSyncRequest trims inputs, fills defaults and rejects requests
// that cannot start a run.
func normalizeSyncRequest(req SyncRequest) (SyncRequest, error) {
	req.PackagesPath = strings.TrimSpace(req.PackagesPath)
	req.MirrorListPath = strings.TrimSpace(req.MirrorListPath)
	req.Root = strings.TrimSpace(req.Root)
	req.Architecture = strings.TrimSpace(req.Architecture)
	req.LockFile = strings.TrimSpace(req.LockFile)
	req.SBOMFile = strings.TrimSpace(req.SBOMFile)
	req.SBOMCreated = strings.TrimSpace(req.SBOMCreated)
	req.SigningKeyFile = strings.TrimSpace(req.SigningKeyFile)
	req.GPGKey = strings.TrimSpace(req.GPGKey)
	req.Seeds = shared.UniqueStrings(req.Seeds)
	req.Mirrors = shared.UniqueStrings(req.Mirrors)

	if req.PackagesPath == "" && len(req.Seeds) == 0 {
		return req, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package list path is required")
	}
	if req.Root == "" {
		req.Root = DefaultRepoRoot
	}
	if req.Architecture == "" {
		req.Architecture = types.DefaultArchitecture
	}
	if req.MirrorListPath == "" && len(req.Mirrors) == 0 {
		req.MirrorListPath = adapters.DefaultMirrorListPath
	}
	if req.Workers <= 0 {
		req.Workers = defaultSyncWorkers
	}
	if req.FetchAttempts <= 0 {
		req.FetchAttempts = defaultFetchAttempts
	}
	if req.RetryDelayMs <= 0 {
		req.RetryDelayMs = defaultRetryDelayMs
	}
	if req.HTTPTimeoutSec <= 0 {
		req.HTTPTimeoutSec = defaultHTTPTimeout
	}
	if req.HTTPRetries < 0 {
		req.HTTPRetries = 0
	} else if req.HTTPRetries == 0 {
		req.HTTPRetries = defaultHTTPRetries
	}
	if req.HTTPRetryDelayMs <= 0 {
		req.HTTPRetryDelayMs = defaultHTTPDelayMs
	}
	if req.TempMaxAge <= 0 {
		req.TempMaxAge = defaultTempMaxAge
	}
	if req.SkipSignatures && req.SignMissing {
		return req, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("--skip-sig and --sign-missing are mutually exclusive")
	}
	if req.SigningKeyFile != "" && !req.SignMissing {
		return req, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("a signing key file requires --sign-missing")
	}
	return req, nil
}

func normalizeIndexRequest(req IndexRequest) IndexRequest {
	req.Root = strings.TrimSpace(req.Root)
	req.Architecture = strings.TrimSpace(req.Architecture)
	if req.Root == "" {
		req.Root = DefaultRepoRoot
	}
	if req.Architecture == "" {
		req.Architecture = types.DefaultArchitecture
	}
	if req.Workers <= 0 {
		req.Workers = defaultIndexWorkers
	}
	return req
}
