package app

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"myrepo/internal/adapters"
	"myrepo/internal/core"
	"myrepo/internal/policies"
	"myrepo/internal/ports"
	"myrepo/internal/shared"
	"myrepo/internal/types"
)

// runState is what every resolve, plan or sync run shares once its
// configuration and upstream metadata are loaded.
type runState struct {
	req    SyncRequest
	cfg    types.Config
	source ports.MirrorSource
	store  *core.MetadataStore
}

func (s Service) prepare(ctx context.Context, req SyncRequest) (runState, error) {
	req, err := normalizeSyncRequest(req)
	if err != nil {
		return runState{}, err
	}
	policy, err := policies.NewRepositoryPolicy(req.Repositories)
	if err != nil {
		return runState{}, err
	}

	seeds := append([]string(nil), req.Seeds...)
	if req.PackagesPath != "" {
		loaded, err := s.Seeds.LoadSeeds(req.PackagesPath)
		if err != nil {
			return runState{}, err
		}
		seeds = append(seeds, loaded...)
	}
	seeds = shared.UniqueStrings(seeds)

	mirrors := req.Mirrors
	if len(mirrors) == 0 {
		mirrors, err = s.MirrorList.LoadMirrors(req.MirrorListPath)
		if err != nil {
			return runState{}, err
		}
	}
	if len(mirrors) == 0 {
		return runState{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no mirrors configured")
	}

	cfg := types.Config{
		Root:           req.Root,
		Architecture:   req.Architecture,
		Repositories:   policy.Enabled(),
		Seeds:          seeds,
		Mirrors:        mirrors,
		Workers:        req.Workers,
		FetchAttempts:  req.FetchAttempts,
		RetryDelay:     time.Duration(req.RetryDelayMs) * time.Millisecond,
		SkipSignatures: req.SkipSignatures,
		SignMissing:    req.SignMissing,
		LockFile:       req.LockFile,
		SBOMFile:       req.SBOMFile,
	}
	source, err := s.NewMirror(adapters.MirrorSourceOptions{
		Mirrors:          mirrors,
		HTTPTimeoutSec:   req.HTTPTimeoutSec,
		HTTPRetries:      req.HTTPRetries,
		HTTPRetryDelayMs: req.HTTPRetryDelayMs,
	})
	if err != nil {
		return runState{}, err
	}

	log.Ctx(ctx).Info().
		Str("arch", cfg.Architecture).
		Strs("repositories", cfg.Repositories).
		Int("seeds", len(cfg.Seeds)).
		Int("mirrors", len(cfg.Mirrors)).
		Msg("loading repository metadata")
	store, err := core.LoadMetadataStore(ctx, source, s.Codec, cfg.Repositories, cfg.Architecture, cfg.Workers)
	if err != nil {
		return runState{}, err
	}
	return runState{req: req, cfg: cfg, source: source, store: store}, nil
}

func (s Service) resolve(ctx context.Context, req SyncRequest) (runState, types.ResolvedSet, error) {
	state, err := s.prepare(ctx, req)
	if err != nil {
		return runState{}, types.ResolvedSet{}, err
	}
	resolver := core.NewClosureResolver(state.store)
	resolved, err := resolver.Resolve(ctx, state.cfg.Seeds, state.cfg.Architecture)
	if err != nil {
		return state, types.ResolvedSet{}, err
	}
	if resolved.Len() == 0 {
		return state, resolved, types.ErrNoPackagesResolved
	}
	log.Ctx(ctx).Info().
		Int("packages", resolved.Len()).
		Msg("dependency closure resolved")
	return state, resolved, nil
}

// Resolve computes the dependency closure of the seed list without
// touching the repository tree.
func (s Service) Resolve(ctx context.Context, req SyncRequest) (ResolveResult, error) {
	state, resolved, err := s.resolve(ctx, req)
	if err != nil {
		return ResolveResult{}, err
	}
	return ResolveResult{Config: state.cfg, Resolved: resolved}, nil
}

// Plan resolves the closure and diffs it against the repository tree.
func (s Service) Plan(ctx context.Context, req SyncRequest) (PlanResult, error) {
	state, resolved, err := s.resolve(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}
	plan, err := core.NewPlanner(s.Tree).Plan(ctx, resolved, state.cfg.Root, state.cfg.Repositories)
	if err != nil {
		return PlanResult{}, err
	}
	return PlanResult{Config: state.cfg, Resolved: resolved, Plan: plan}, nil
}
