package adapters

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// PacmanIndexCodec reads and writes pacman sync databases: a tar of
// <name>-<version>/desc entries, plus <name>-<version>/files for the files
// database. Archives are written gzip-compressed; any of gzip, zstd, xz or
// plain tar is accepted on read.
type PacmanIndexCodec struct {
	// ModTime stamps every tar header. Zero means the Unix epoch.
	ModTime time.Time
}

func NewPacmanIndexCodec() PacmanIndexCodec {
	return PacmanIndexCodec{}
}

func (c PacmanIndexCodec) Encode(records []types.IndexRecord, kind types.IndexKind) ([]byte, error) {
	if kind != types.IndexKindDB && kind != types.IndexKindFiles {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown index kind %q", kind))
	}
	sorted := append([]types.IndexRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	modTime := c.ModTime
	if modTime.IsZero() {
		modTime = time.Unix(0, 0)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, record := range sorted {
		if record.Name == "" || record.Version == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("index record %q is missing name or version", record.Filename))
		}
		dir := record.Name + "-" + record.Version
		if err := tw.WriteHeader(&tar.Header{
			Name:     dir + "/",
			Typeflag: tar.TypeDir,
			Mode:     0o755,
			ModTime:  modTime,
		}); err != nil {
			return nil, encodeError(err)
		}
		if err := writeTarFile(tw, dir+"/desc", renderDesc(record), modTime); err != nil {
			return nil, encodeError(err)
		}
		if kind == types.IndexKindFiles {
			if err := writeTarFile(tw, dir+"/files", renderFiles(record), modTime); err != nil {
				return nil, encodeError(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, encodeError(err)
	}
	if err := gz.Close(); err != nil {
		return nil, encodeError(err)
	}
	return buf.Bytes(), nil
}

func (c PacmanIndexCodec) Decode(data []byte) ([]types.IndexRecord, error) {
	reader, closeFn, err := decompress(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	byDir := map[string]*types.IndexRecord{}
	var order []string
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read index archive").
				WithCause(err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		dir, file := path.Split(strings.TrimPrefix(header.Name, "./"))
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" || (file != "desc" && file != "files" && file != "depends") {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("failed to read %s", header.Name)).
				WithCause(err)
		}
		record, ok := byDir[dir]
		if !ok {
			record = &types.IndexRecord{}
			byDir[dir] = record
			order = append(order, dir)
		}
		if err := parseDesc(content, record); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("failed to parse %s", header.Name)).
				WithCause(err)
		}
	}
	records := make([]types.IndexRecord, 0, len(order))
	for _, dir := range order {
		records = append(records, *byDir[dir])
	}
	return records, nil
}

func writeTarFile(tw *tar.Writer, name string, content []byte, modTime time.Time) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  modTime,
	}); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func encodeError(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to encode index archive").
		WithCause(err)
}

type descWriter struct {
	buf bytes.Buffer
}

func (w *descWriter) field(key string, values ...string) {
	var kept []string
	for _, value := range values {
		if value != "" {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		return
	}
	w.buf.WriteString("%" + key + "%\n")
	for _, value := range kept {
		w.buf.WriteString(value)
		w.buf.WriteByte('\n')
	}
	w.buf.WriteByte('\n')
}

func (w *descWriter) number(key string, value int64) {
	if value == 0 {
		return
	}
	w.field(key, strconv.FormatInt(value, 10))
}

func renderDesc(r types.IndexRecord) []byte {
	w := &descWriter{}
	w.field("FILENAME", r.Filename)
	w.field("NAME", r.Name)
	w.field("BASE", r.Base)
	w.field("VERSION", r.Version)
	w.field("DESC", r.Description)
	w.field("GROUPS", r.Groups...)
	w.number("CSIZE", r.CSize)
	w.number("ISIZE", r.ISize)
	w.field("MD5SUM", r.MD5Sum)
	w.field("SHA256SUM", r.SHA256Sum)
	w.field("PGPSIG", r.PGPSig)
	w.field("URL", r.URL)
	w.field("LICENSE", r.License...)
	w.field("ARCH", r.Arch)
	w.number("BUILDDATE", r.BuildDate)
	w.field("PACKAGER", r.Packager)
	w.field("REPLACES", r.Replaces...)
	w.field("CONFLICTS", r.Conflicts...)
	w.field("PROVIDES", r.Provides...)
	w.field("DEPENDS", r.Depends...)
	w.field("OPTDEPENDS", r.OptDepends...)
	w.field("MAKEDEPENDS", r.MakeDepends...)
	w.field("CHECKDEPENDS", r.CheckDepends...)
	return w.buf.Bytes()
}

func renderFiles(r types.IndexRecord) []byte {
	w := &descWriter{}
	w.field("FILES", r.Files...)
	return w.buf.Bytes()
}

// parseDesc folds %KEY% blocks into record. Unknown keys are ignored.
func parseDesc(content []byte, record *types.IndexRecord) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	key := ""
	var values []string
	flush := func() error {
		if key == "" {
			return nil
		}
		err := assignDescField(record, key, values)
		key = ""
		values = nil
		return err
	}
	for scanner.Scan() {
		line := scanner.Text()
		if key == "" {
			if len(line) > 2 && strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
				key = strings.Trim(line, "%")
			}
			continue
		}
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func assignDescField(record *types.IndexRecord, key string, values []string) error {
	first := ""
	if len(values) > 0 {
		first = values[0]
	}
	switch key {
	case "FILENAME":
		record.Filename = first
	case "NAME":
		record.Name = first
	case "BASE":
		record.Base = first
	case "VERSION":
		record.Version = first
	case "DESC":
		record.Description = first
	case "GROUPS":
		record.Groups = values
	case "CSIZE", "ISIZE", "BUILDDATE":
		value, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %%%s%% value %q: %w", key, first, err)
		}
		switch key {
		case "CSIZE":
			record.CSize = value
		case "ISIZE":
			record.ISize = value
		default:
			record.BuildDate = value
		}
	case "MD5SUM":
		record.MD5Sum = first
	case "SHA256SUM":
		record.SHA256Sum = first
	case "PGPSIG":
		record.PGPSig = first
	case "URL":
		record.URL = first
	case "LICENSE":
		record.License = values
	case "ARCH":
		record.Arch = first
	case "PACKAGER":
		record.Packager = first
	case "REPLACES":
		record.Replaces = values
	case "CONFLICTS":
		record.Conflicts = values
	case "PROVIDES":
		record.Provides = values
	case "DEPENDS":
		record.Depends = values
	case "OPTDEPENDS":
		record.OptDepends = values
	case "MAKEDEPENDS":
		record.MakeDepends = values
	case "CHECKDEPENDS":
		record.CheckDepends = values
	case "FILES":
		record.Files = values
	}
	return nil
}

var _ ports.IndexCodec = PacmanIndexCodec{}
