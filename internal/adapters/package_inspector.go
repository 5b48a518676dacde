package adapters

import (
	"archive/tar"
	"bufio"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// PackageInspectorAdapter reads .PKGINFO and the file list out of a
// package archive and computes the checksums the index carries.
type PackageInspectorAdapter struct {
	fs afero.Fs
}

func NewPackageInspectorAdapter(fs afero.Fs) PackageInspectorAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return PackageInspectorAdapter{fs: fs}
}

func (a PackageInspectorAdapter) Inspect(ctx context.Context, path string) (types.IndexRecord, error) {
	file, err := a.fs.Open(path)
	if err != nil {
		return types.IndexRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package file not found: %s", path)).
			WithCause(err)
	}
	defer file.Close()

	sha := sha256.New()
	md := md5.New()
	counter := &countingWriter{}
	tee := io.TeeReader(file, io.MultiWriter(sha, md, counter))

	reader, closeFn, err := decompress(tee)
	if err != nil {
		return types.IndexRecord{}, err
	}
	defer closeFn()

	record := types.IndexRecord{Filename: filepath.Base(path)}
	foundInfo := false
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.IndexRecord{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("failed to read package archive %s", path)).
				WithCause(err)
		}
		name := strings.TrimPrefix(header.Name, "./")
		if name == ".PKGINFO" {
			if err := parsePkgInfo(bufio.NewReader(tr), &record); err != nil {
				return types.IndexRecord{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("failed to parse .PKGINFO of %s", path)).
					WithCause(err)
			}
			foundInfo = true
			continue
		}
		if strings.HasPrefix(name, ".") || name == "" {
			continue
		}
		if header.Typeflag == tar.TypeDir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		record.Files = append(record.Files, name)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return types.IndexRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to checksum %s", path)).
			WithCause(err)
	}
	if !foundInfo {
		return types.IndexRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package %s has no .PKGINFO", path))
	}
	sort.Strings(record.Files)
	record.CSize = counter.n
	record.SHA256Sum = hex.EncodeToString(sha.Sum(nil))
	record.MD5Sum = hex.EncodeToString(md.Sum(nil))

	sig, err := afero.ReadFile(a.fs, path+core.SignatureExtension)
	if err == nil && len(sig) > 0 {
		record.PGPSig = base64.StdEncoding.EncodeToString(sig)
	}
	log.Ctx(ctx).Debug().
		Str("package", record.Name).
		Str("version", record.Version).
		Int("files", len(record.Files)).
		Msg("package inspected")
	return record, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// parsePkgInfo reads the "key = value" lines of .PKGINFO.
func parsePkgInfo(r io.Reader, record *types.IndexRecord) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "pkgname":
			record.Name = value
		case "pkgbase":
			record.Base = value
		case "pkgver":
			record.Version = value
		case "pkgdesc":
			record.Description = value
		case "url":
			record.URL = value
		case "builddate":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid builddate %q: %w", value, err)
			}
			record.BuildDate = parsed
		case "packager":
			record.Packager = value
		case "size":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid size %q: %w", value, err)
			}
			record.ISize = parsed
		case "arch":
			record.Arch = value
		case "license":
			record.License = append(record.License, value)
		case "replaces":
			record.Replaces = append(record.Replaces, value)
		case "group":
			record.Groups = append(record.Groups, value)
		case "conflict":
			record.Conflicts = append(record.Conflicts, value)
		case "provides":
			record.Provides = append(record.Provides, value)
		case "depend":
			record.Depends = append(record.Depends, value)
		case "optdepend":
			record.OptDepends = append(record.OptDepends, value)
		case "makedepend":
			record.MakeDepends = append(record.MakeDepends, value)
		case "checkdepend":
			record.CheckDepends = append(record.CheckDepends, value)
		}
	}
	return scanner.Err()
}

var _ ports.PackageInspector = PackageInspectorAdapter{}
