package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrepo/internal/adapters"
	"myrepo/internal/policies"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

const seedsPath = "/etc/myrepo/packages.txt"

func newTestService(t *testing.T, fs afero.Fs, seeds string) Service {
	t.Helper()
	writeFile(t, fs, seedsPath, seeds)
	return NewServiceWithFs(fs)
}

func testSyncRequest() SyncRequest {
	return SyncRequest{
		PackagesPath:  seedsPath,
		Mirrors:       []string{mirrorTemplate},
		Root:          repoRoot,
		Repositories:  policies.RepositorySelection{Core: true, Extra: true},
		Workers:       2,
		FetchAttempts: 2,
		RetryDelayMs:  1,
		LockFile:      "/var/lib/myrepo/lock.yaml",
	}
}

func TestServiceSyncBuildsRepository(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "bash\n# editors\nvim\n")
	writeFile(t, fs, filepath.Join(coreDir(), "nano-8.0-1-x86_64.pkg.tar.zst"), "stale")

	result, err := service.Sync(t.Context(), testSyncRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"bash", "vim"}, result.Config.Seeds)
	assert.Equal(t, 4, result.Resolved.Len())

	core := result.Report.Bucket(coreBucket)
	assert.Equal(t, 3, core.Added)
	assert.Equal(t, 1, core.Removed)
	assert.True(t, core.Indexed)
	extra := result.Report.Bucket(extraBucket)
	assert.Equal(t, 1, extra.Added)
	assert.True(t, extra.Indexed)
	require.Len(t, result.Archives, 2)

	coreRecords := decodeArchive(t, fs, filepath.Join(coreDir(), "core.db.tar.gz"))
	assert.Equal(t, []string{"bash-5.2.026-2", "glibc-2.39-1", "readline-8.2.010-1"}, recordNames(coreRecords))
	extraRecords := decodeArchive(t, fs, filepath.Join(adapters.BucketDir(repoRoot, extraBucket), "extra.db.tar.gz"))
	assert.Equal(t, []string{"vim-9.1.0-1"}, recordNames(extraRecords))

	lock, err := adapters.NewLockFileAdapter(fs).ReadLock("/var/lib/myrepo/lock.yaml")
	require.NoError(t, err)
	assert.Equal(t, "x86_64", lock.Architecture)
	assert.Equal(t, []string{"core", "extra"}, lock.Repositories)
	got := map[string]string{}
	for _, entry := range lock.Packages {
		got[entry.Name] = entry.Repository + ":" + entry.RequiredBy
	}
	if diff := cmp.Diff(map[string]string{
		"bash":     "core:",
		"glibc":    "core:bash",
		"readline": "core:bash",
		"vim":      "extra:",
	}, got); diff != "" {
		t.Fatalf("lock file mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceSyncWritesSBOM(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "bash\n")
	service.Clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	req := testSyncRequest()
	req.SBOMFile = "/srv/repo/sbom.spdx.json"

	_, err := service.Sync(t.Context(), req)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/srv/repo/sbom.spdx.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created": "2026-03-01T12:00:00Z"`)
	assert.Contains(t, string(data), "pkg:alpm/arch/readline@8.2.010-1?arch=x86_64")

	req.SBOMCreated = "0"
	_, err = service.Sync(t.Context(), req)
	require.NoError(t, err)
	data, err = afero.ReadFile(fs, "/srv/repo/sbom.spdx.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created": "1970-01-01T00:00:00Z"`)
}

func TestServicePlanIsIdempotentAfterSync(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "bash\nvim\n")
	req := testSyncRequest()

	_, err := service.Sync(t.Context(), req)
	require.NoError(t, err)

	planned, err := service.Plan(t.Context(), req)
	require.NoError(t, err)
	add, remove, unchanged := planned.Plan.Counts()
	assert.Zero(t, add)
	assert.Zero(t, remove)
	assert.Equal(t, 4, unchanged)

	again, err := service.Sync(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Report.Bucket(coreBucket).Unchanged)
	assert.Zero(t, again.Report.Bucket(coreBucket).Added)
	assert.True(t, again.Report.Bucket(coreBucket).Indexed)
}

func TestServiceSyncLeavesFailedBucketUnindexed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "bash\ncoreutils\n")
	base := service.NewMirror
	service.NewMirror = func(opts adapters.MirrorSourceOptions) (ports.MirrorSource, error) {
		source, err := base(opts)
		if err != nil {
			return nil, err
		}
		return newFlakyMirror(source, "readline"), nil
	}
	req := testSyncRequest()
	req.Repositories = policies.RepositorySelection{Core: true}

	result, err := service.Sync(t.Context(), req)
	require.NoError(t, err)
	core := result.Report.Bucket(coreBucket)
	assert.Equal(t, 3, core.Added)
	assert.Equal(t, 1, core.Failed)
	assert.False(t, core.Indexed)
	assert.Empty(t, result.Archives)
	require.Len(t, result.Report.Failures(), 1)
	assert.Equal(t, "readline", result.Report.Failures()[0].Package)

	exists, err := afero.Exists(fs, filepath.Join(coreDir(), "core.db.tar.gz"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServiceResolveErrors(t *testing.T) {
	cases := []struct {
		name  string
		seeds string
		edit  func(*SyncRequest)
		check func(*testing.T, error)
	}{
		{
			name:  "no seeds",
			seeds: "# nothing yet\n",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, types.ErrNoPackagesResolved)
			},
		},
		{
			name:  "unresolvable dependency",
			seeds: "vim\nmissing-tool\n",
			check: func(t *testing.T, err error) {
				var unresolved *types.UnresolvedDependencyError
				require.ErrorAs(t, err, &unresolved)
				assert.Equal(t, "missing-tool", unresolved.Spec.Name)
			},
		},
		{
			name:  "missing repository index",
			seeds: "vim\n",
			edit: func(req *SyncRequest) {
				req.Repositories.Testing = true
			},
			check: func(t *testing.T, err error) {
				var fetch *types.MetadataFetchError
				require.ErrorAs(t, err, &fetch)
				assert.Equal(t, "testing", fetch.Repository)
			},
		},
		{
			name:  "no repositories",
			seeds: "vim\n",
			edit: func(req *SyncRequest) {
				req.Repositories = policies.RepositorySelection{}
			},
			check: func(t *testing.T, err error) {
				assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeMirror(t, fs, baseMirror())
			service := newTestService(t, fs, tc.seeds)
			req := testSyncRequest()
			if tc.edit != nil {
				tc.edit(&req)
			}
			_, err := service.Resolve(t.Context(), req)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestServiceResolveUsesMirrorList(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	writeFile(t, fs, "/etc/pacman.d/mirrorlist", "## local\n[options]\nServer = "+mirrorTemplate+"\n")
	service := newTestService(t, fs, "bash\n")
	req := testSyncRequest()
	req.Mirrors = nil

	result, err := service.Resolve(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{mirrorTemplate}, result.Config.Mirrors)
	assert.Equal(t, []string{"bash", "glibc", "readline"}, result.Resolved.Order)
}

func TestServiceRebuildIndexes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "bash\nvim\n")
	_, err := service.Sync(t.Context(), testSyncRequest())
	require.NoError(t, err)
	require.NoError(t, fs.Remove(filepath.Join(coreDir(), "core.db.tar.gz")))

	result, err := service.RebuildIndexes(t.Context(), IndexRequest{
		Root:         repoRoot,
		Repositories: policies.RepositorySelection{Core: true, Extra: true, Testing: true},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	require.Len(t, result.Archives, 2)
	assert.Equal(t, coreBucket, result.Archives[0].Bucket)
	assert.Equal(t, 3, result.Archives[0].Records)
	assert.Len(t, decodeArchive(t, fs, filepath.Join(coreDir(), "core.db.tar.gz")), 3)
}

func TestServiceInspectPackage(t *testing.T) {
	fs := afero.NewMemMapFs()
	mirror := writeMirror(t, fs, baseMirror())
	service := NewServiceWithFs(fs)
	path := filepath.Join(mirrorRoot, "core", "os", "x86_64", "bash-5.2.026-2-x86_64.pkg.tar.zst")

	result, err := service.InspectPackage(t.Context(), InspectRequest{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "bash", result.Record.Name)
	assert.Equal(t, "5.2.026-2", result.Record.Version)
	assert.Equal(t, []string{"glibc", "readline>=8.0"}, result.Record.Depends)
	assert.Equal(t, int64(len(mirror.Archives["bash-5.2.026-2-x86_64.pkg.tar.zst"])), result.Record.CSize)

	_, err = service.InspectPackage(t.Context(), InspectRequest{Path: " "})
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestServiceSyncRemovesStaleTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "glibc\n")
	old := filepath.Join(coreDir(), ".0b6e.part")
	fresh := filepath.Join(coreDir(), ".9c1d.part")
	writeFile(t, fs, old, "partial")
	writeFile(t, fs, fresh, "partial")
	require.NoError(t, fs.Chtimes(old, time.Now().Add(-3*time.Hour), time.Now().Add(-3*time.Hour)))

	req := testSyncRequest()
	req.Repositories = policies.RepositorySelection{Core: true}
	result, err := service.Sync(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, result.Cleaned)
	exists, err := afero.Exists(fs, fresh)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestServiceSyncSignsMissingSignatures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror(), "glibc")
	service := newTestService(t, fs, "glibc\n")
	var requested SyncRequest
	service.NewSigner = func(req SyncRequest) (ports.Signer, error) {
		requested = req
		return stubSigner{}, nil
	}
	req := testSyncRequest()
	req.SignMissing = true

	_, err := service.Sync(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, requested.SignMissing)
	sig, err := afero.ReadFile(fs, filepath.Join(coreDir(), "glibc-2.39-1-x86_64.pkg.tar.zst.sig"))
	require.NoError(t, err)
	assert.Equal(t, "local signature", string(sig))
}

func TestServiceSyncSignerSetupError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMirror(t, fs, baseMirror())
	service := newTestService(t, fs, "glibc\n")
	service.NewSigner = func(SyncRequest) (ports.Signer, error) {
		return nil, errors.New("keyring unreadable")
	}
	_, err := service.Sync(context.Background(), testSyncRequest())
	require.EqualError(t, err, "keyring unreadable")
}
