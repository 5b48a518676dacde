package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// PruneTempFiles deletes temporary files older than maxAge that an
// interrupted run left in the bucket directories under root. It returns
// the deleted paths.
func (s Service) PruneTempFiles(ctx context.Context, root string, maxAge time.Duration) ([]string, error) {
	files, err := listTempFiles(s.Fs, root)
	if err != nil {
		return nil, err
	}
	plan := BuildPrunePlan(files, maxAge, timeNow(s.Clock))
	var deleted []string
	for _, file := range plan.Delete {
		if err := s.Fs.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			return deleted, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to remove temporary file " + file.Path).
				WithCause(err)
		}
		log.Ctx(ctx).Debug().Str("file", file.Path).Msg("removed stale temporary file")
		deleted = append(deleted, file.Path)
	}
	return deleted, nil
}

// listTempFiles walks <root>/<repo>/os/<arch>/ only.
func listTempFiles(fs afero.Fs, root string) ([]TempFileInfo, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil
	}
	dirs, err := afero.Glob(fs, filepath.Join(root, "*", "os", "*"))
	if err != nil {
		return nil, err
	}
	var files []TempFileInfo
	for _, dir := range dirs {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsTempFile(entry.Name()) {
				continue
			}
			files = append(files, TempFileInfo{Path: filepath.Join(dir, entry.Name()), ModTime: entry.ModTime()})
		}
	}
	return files, nil
}
