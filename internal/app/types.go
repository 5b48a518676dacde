package app

import (
	"time"

	"myrepo/internal/policies"
	"myrepo/internal/types"
)

// SyncRequest carries everything a resolve, plan or sync run needs. The
// resolve and plan operations ignore the signing, lock and SBOM fields.
// SBOMCreated is an RFC 3339 time or epoch seconds; empty means now.
type SyncRequest struct {
	PackagesPath      string
	Seeds             []string
	MirrorListPath    string
	Mirrors           []string
	Root              string
	Architecture      string
	Repositories      policies.RepositorySelection
	Workers           int
	FetchAttempts     int
	RetryDelayMs      int
	HTTPTimeoutSec    int
	HTTPRetries       int
	HTTPRetryDelayMs  int
	SkipSignatures    bool
	SignMissing       bool
	GPGKey            string
	SigningKeyFile    string
	SigningPassphrase string
	LockFile          string
	SBOMFile          string
	SBOMCreated       string
	TempMaxAge        time.Duration
}

type ResolveResult struct {
	Config   types.Config
	Resolved types.ResolvedSet
}

type PlanResult struct {
	Config   types.Config
	Resolved types.ResolvedSet
	Plan     types.SyncPlan
}

type SyncResult struct {
	Config   types.Config
	Resolved types.ResolvedSet
	Plan     types.SyncPlan
	Report   types.SyncReport
	Archives []types.IndexArchive
	Cleaned  []string
}

type IndexRequest struct {
	Root         string
	Architecture string
	Repositories policies.RepositorySelection
	Workers      int
}

type IndexResult struct {
	Archives []types.IndexArchive
	Failed   map[types.Bucket]error
}

type InspectRequest struct {
	Path string
}

type InspectResult struct {
	Record types.IndexRecord
}
