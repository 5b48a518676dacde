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

const DefaultMirrorListPath = "/etc/pacman.d/mirrorlist"

// MirrorListAdapter reads server templates from a pacman mirrorlist file.
// Only "Server = <url>" lines count; comments and section headers are
// ignored.
type MirrorListAdapter struct {
	fs afero.Fs
}

func NewMirrorListAdapter(fs afero.Fs) MirrorListAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return MirrorListAdapter{fs: fs}
}

func (a MirrorListAdapter) LoadMirrors(path string) ([]string, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("mirror list not found: %s", path)).
			WithCause(err)
	}
	mirrors := ParseMirrorList(data)
	if len(mirrors) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("mirror list %s has no active Server entries", path))
	}
	return mirrors, nil
}

func ParseMirrorList(data []byte) []string {
	var mirrors []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "Server") {
			continue
		}
		if idx := strings.Index(value, "#"); idx >= 0 {
			value = value[:idx]
		}
		mirrors = append(mirrors, strings.TrimSpace(value))
	}
	return shared.UniqueStrings(mirrors)
}

var _ ports.MirrorListPort = MirrorListAdapter{}
