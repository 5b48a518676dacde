package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"myrepo/internal/adapters"
	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
	"myrepo/tests/testutil"
)

const (
	mirrorRoot     = "/mirror"
	mirrorTemplate = "file:///mirror/$repo/os/$arch"
	repoRoot       = "/srv/repo"
)

func baseMirror() map[string][]testutil.PackageFixture {
	return map[string][]testutil.PackageFixture{
		"core": {
			testutil.Pkg("glibc", "2.39-1"),
			testutil.Pkg("bash", "5.2.026-2", "glibc", "readline>=8.0"),
			testutil.Pkg("readline", "8.2.010-1", "glibc"),
			testutil.Pkg("coreutils", "9.5-1", "glibc"),
		},
		"extra": {
			testutil.Pkg("vim", "9.1.0-1", "glibc"),
		},
	}
}

func writeMirror(t *testing.T, fs afero.Fs, repos map[string][]testutil.PackageFixture, unsigned ...string) testutil.Mirror {
	t.Helper()
	return testutil.WriteMirror(t, fs, mirrorRoot, adapters.NewPacmanIndexCodec(), repos, testutil.MirrorOptions{Unsigned: unsigned})
}

func fileMirror(t *testing.T, fs afero.Fs) adapters.MirrorSourceAdapter {
	t.Helper()
	source, err := adapters.NewMirrorSourceAdapter(adapters.MirrorSourceOptions{
		Mirrors: []string{mirrorTemplate},
		Fs:      fs,
	})
	require.NoError(t, err)
	return source
}

// planFromMirror loads the mirror and resolves seeds, returning the
// plan against the current tree under repoRoot.
func planFromMirror(t *testing.T, fs afero.Fs, source ports.MirrorSource, repos []string, seeds ...string) (types.ResolvedSet, types.SyncPlan) {
	t.Helper()
	ctx := t.Context()
	store, err := core.LoadMetadataStore(ctx, source, adapters.NewPacmanIndexCodec(), repos, types.DefaultArchitecture, 2)
	require.NoError(t, err)
	resolved, err := core.NewClosureResolver(store).Resolve(ctx, seeds, types.DefaultArchitecture)
	require.NoError(t, err)
	plan, err := core.NewPlanner(adapters.NewRepoTreeAdapter(fs)).Plan(ctx, resolved, repoRoot, repos)
	require.NoError(t, err)
	return resolved, plan
}

// flakyMirror fails every package fetch whose filename starts with one of
// the failing names.
type flakyMirror struct {
	ports.MirrorSource
	failing []string

	mu    sync.Mutex
	calls map[string]int
}

func newFlakyMirror(inner ports.MirrorSource, failing ...string) *flakyMirror {
	return &flakyMirror{MirrorSource: inner, failing: failing, calls: map[string]int{}}
}

func (m *flakyMirror) FetchPackage(ctx context.Context, ref ports.PackageRef) (io.ReadCloser, error) {
	m.mu.Lock()
	m.calls[ref.Filename]++
	m.mu.Unlock()
	for _, name := range m.failing {
		if strings.HasPrefix(ref.Filename, name+"-") {
			return nil, errors.New("connection reset by peer")
		}
	}
	return m.MirrorSource.FetchPackage(ctx, ref)
}

func (m *flakyMirror) Calls(filename string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[filename]
}

// renameFailingFs refuses renames onto targets ending in suffix.
type renameFailingFs struct {
	afero.Fs
	suffix string
}

func (f renameFailingFs) Rename(oldname string, newname string) error {
	if strings.HasSuffix(newname, f.suffix) {
		return errors.New("rename " + newname + ": permission denied")
	}
	return f.Fs.Rename(oldname, newname)
}

type stubSigner struct {
	err error
}

func (s stubSigner) Sign(ctx context.Context, payload io.Reader) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := io.Copy(io.Discard, payload); err != nil {
		return nil, err
	}
	return []byte("local signature"), nil
}

func writeFile(t *testing.T, fs afero.Fs, path string, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}
