package testutil

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"myrepo/internal/types"
)

// PackageFixture describes a package archive to build in a test.
type PackageFixture struct {
	Name        string
	Version     string
	Arch        string
	Description string
	Depends     []string
	Provides    []string
	Conflicts   []string
	Replaces    []string
	Groups      []string
	// Files maps archive paths to their contents.
	Files map[string]string
}

func (p PackageFixture) arch() string {
	if p.Arch == "" {
		return types.DefaultArchitecture
	}
	return p.Arch
}

// Filename is the canonical zstd package filename of the fixture.
func (p PackageFixture) Filename() string {
	return fmt.Sprintf("%s-%s-%s.pkg.tar.zst", p.Name, p.Version, p.arch())
}

// PkgInfo renders the .PKGINFO of the fixture.
func (p PackageFixture) PkgInfo() string {
	var b strings.Builder
	line := func(key string, value string) {
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}
	b.WriteString("# Generated by makepkg\n")
	line("pkgname", p.Name)
	line("pkgbase", p.Name)
	line("pkgver", p.Version)
	if p.Description != "" {
		line("pkgdesc", p.Description)
	}
	line("builddate", "1700000000")
	line("packager", "Test Packager <test@example.com>")
	line("size", fmt.Sprint(p.installedSize()))
	line("arch", p.arch())
	for _, group := range p.Groups {
		line("group", group)
	}
	for _, value := range p.Replaces {
		line("replaces", value)
	}
	for _, value := range p.Conflicts {
		line("conflict", value)
	}
	for _, value := range p.Provides {
		line("provides", value)
	}
	for _, value := range p.Depends {
		line("depend", value)
	}
	return b.String()
}

func (p PackageFixture) installedSize() int {
	size := 0
	for _, content := range p.Files {
		size += len(content)
	}
	return size
}

// Build returns the zstd-compressed package archive.
func (p PackageFixture) Build(t *testing.T) []byte {
	t.Helper()
	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	modTime := time.Unix(1700000000, 0)
	write := func(name string, content string) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	write(".PKGINFO", p.PkgInfo())
	names := make([]string, 0, len(p.Files))
	for name := range p.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, p.Files[name])
	}
	require.NoError(t, tw.Close())

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out)
	require.NoError(t, err)
	_, err = enc.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return out.Bytes()
}

// Record returns the sync database entry an upstream mirror publishes for
// the fixture whose archive bytes are data.
func (p PackageFixture) Record(data []byte) types.IndexRecord {
	sum := sha256.Sum256(data)
	return types.IndexRecord{
		Filename:    p.Filename(),
		Name:        p.Name,
		Base:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		Groups:      p.Groups,
		CSize:       int64(len(data)),
		ISize:       int64(p.installedSize()),
		SHA256Sum:   hex.EncodeToString(sum[:]),
		Arch:        p.arch(),
		BuildDate:   1700000000,
		Packager:    "Test Packager <test@example.com>",
		Replaces:    p.Replaces,
		Conflicts:   p.Conflicts,
		Provides:    p.Provides,
		Depends:     p.Depends,
	}
}

// Pkg is shorthand for a fixture with dependencies and one file.
func Pkg(name string, version string, depends ...string) PackageFixture {
	return PackageFixture{
		Name:    name,
		Version: version,
		Depends: depends,
		Files:   map[string]string{"usr/share/doc/" + name + "/README": name + " " + version + "\n"},
	}
}
