package adapters

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"

	"myrepo/internal/ports"
	"myrepo/internal/shared"
)

// SeedListAdapter reads newline-delimited seed package lists. Blank lines
// and '#' comments are skipped and repeats are dropped.
type SeedListAdapter struct {
	fs afero.Fs
}

func NewSeedListAdapter(fs afero.Fs) SeedListAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return SeedListAdapter{fs: fs}
}

func (a SeedListAdapter) LoadSeeds(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package list path is required")
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package list not found: %s", path)).
			WithCause(err)
	}
	var seeds []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		for _, field := range strings.Fields(line) {
			seeds = append(seeds, field)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read package list").
			WithCause(err)
	}
	return shared.UniqueStrings(seeds), nil
}

var _ ports.SeedSourcePort = SeedListAdapter{}
