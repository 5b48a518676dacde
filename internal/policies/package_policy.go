package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// RepositorySelection mirrors the repository switches of the command line.
type RepositorySelection struct {
	Core      bool
	Extra     bool
	Community bool
	Testing   bool
	Custom    []string
}

// RepositoryPolicy holds the enabled repositories in priority order. The
// first repository wins when two carry the same version of a package.
type RepositoryPolicy struct {
	enabled  []string
	priority map[string]int
}

func NewRepositoryPolicy(selection RepositorySelection) (RepositoryPolicy, error) {
	var names []string
	if selection.Core {
		names = append(names, types.RepositoryCore)
	}
	if selection.Extra {
		names = append(names, types.RepositoryExtra)
	}
	if selection.Community {
		names = append(names, types.RepositoryCommunity)
	}
	if selection.Testing {
		names = append(names, types.RepositoryTesting)
	}
	for _, custom := range selection.Custom {
		custom = strings.TrimSpace(custom)
		if custom == "" {
			continue
		}
		if !validRepositoryName(custom) {
			return RepositoryPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid repository name: %s", custom))
		}
		names = append(names, custom)
	}
	policy := RepositoryPolicy{priority: map[string]int{}}
	for _, name := range names {
		if _, ok := policy.priority[name]; ok {
			continue
		}
		policy.priority[name] = len(policy.enabled)
		policy.enabled = append(policy.enabled, name)
	}
	if len(policy.enabled) == 0 {
		return RepositoryPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no repositories enabled")
	}
	return policy, nil
}

func (p RepositoryPolicy) Enabled() []string {
	return append([]string(nil), p.enabled...)
}

// Priority returns the rank of repository, or -1 when it is not enabled.
func (p RepositoryPolicy) Priority(repository string) int {
	if idx, ok := p.priority[repository]; ok {
		return idx
	}
	return -1
}

func validRepositoryName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return name != "." && name != ".."
}

var _ ports.RepositoryPolicyPort = RepositoryPolicy{}
