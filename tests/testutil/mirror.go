package testutil

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// Mirror is an upstream mirror laid out as <root>/<repo>/os/<arch>/ with
// package files, detached signatures and a <repo>.db sync database.
type Mirror struct {
	Root         string
	Architecture string
	// Archives holds the built bytes of every package by filename.
	Archives map[string][]byte
}

// MirrorOptions controls how WriteMirror lays out the mirror.
type MirrorOptions struct {
	Architecture string
	// Unsigned lists package names published without a .sig file.
	Unsigned []string
}

// WriteMirror builds every fixture and writes the mirror tree onto fs.
// The codec encodes the sync databases.
func WriteMirror(t *testing.T, fs afero.Fs, root string, codec ports.IndexCodec, repos map[string][]PackageFixture, opts MirrorOptions) Mirror {
	t.Helper()
	arch := opts.Architecture
	if arch == "" {
		arch = types.DefaultArchitecture
	}
	unsigned := map[string]struct{}{}
	for _, name := range opts.Unsigned {
		unsigned[name] = struct{}{}
	}
	mirror := Mirror{Root: root, Architecture: arch, Archives: map[string][]byte{}}

	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, repo := range names {
		dir := filepath.Join(root, repo, "os", arch)
		require.NoError(t, fs.MkdirAll(dir, 0o755))
		var records []types.IndexRecord
		for _, fixture := range repos[repo] {
			data := fixture.Build(t)
			mirror.Archives[fixture.Filename()] = data
			require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, fixture.Filename()), data, 0o644))
			if _, skip := unsigned[fixture.Name]; !skip {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, fixture.Filename()+".sig"), Signature(fixture.Filename()), 0o644))
			}
			records = append(records, fixture.Record(data))
		}
		db, err := codec.Encode(records, types.IndexKindDB)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, repo+".db"), db, 0o644))
	}
	return mirror
}

// Signature is the placeholder detached signature a fixture mirror
// publishes for filename.
func Signature(filename string) []byte {
	return []byte("signature of " + filename + "\n")
}
