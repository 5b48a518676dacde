package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// LockFileAdapter persists the resolved package set as YAML.
type LockFileAdapter struct {
	fs afero.Fs
}

func NewLockFileAdapter(fs afero.Fs) LockFileAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return LockFileAdapter{fs: fs}
}

func (a LockFileAdapter) WriteLock(path string, lock types.LockFile) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("lock file path is required")
	}
	ordered := lock
	ordered.Packages = append([]types.LockEntry(nil), lock.Packages...)
	sort.Slice(ordered.Packages, func(i, j int) bool {
		if ordered.Packages[i].Repository != ordered.Packages[j].Repository {
			return ordered.Packages[i].Repository < ordered.Packages[j].Repository
		}
		return ordered.Packages[i].Name < ordered.Packages[j].Name
	})
	data, err := yaml.Marshal(ordered)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal lock file").
			WithCause(err)
	}
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create lock file directory").
			WithCause(err)
	}
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(a.fs, tmp, data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write lock file").
			WithCause(err)
	}
	if err := a.fs.Rename(tmp, path); err != nil {
		_ = a.fs.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move lock file into place").
			WithCause(err)
	}
	return nil
}

// ReadLock loads a lock file. A missing file yields an empty lock.
func (a LockFileAdapter) ReadLock(path string) (types.LockFile, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.LockFile{}, nil
		}
		return types.LockFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read lock file %s", path)).
			WithCause(err)
	}
	var lock types.LockFile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return types.LockFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse lock file").
			WithCause(err)
	}
	return lock, nil
}

var _ ports.LockWriterPort = LockFileAdapter{}
