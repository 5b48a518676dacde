package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cavaliergopher/rpm"

	"myrepo/internal/types"
)

// evr is a parsed [epoch:]version[-release] string.
type evr struct {
	epoch   int
	version string
	release string
}

func (v evr) Epoch() int      { return v.epoch }
func (v evr) Version() string { return v.version }
func (v evr) Release() string { return v.release }

var _ rpm.Version = evr{}

// parseEVR splits a full package version. A missing epoch is 0 and a
// missing release is empty.
func parseEVR(value string) evr {
	out := evr{version: strings.TrimSpace(value)}
	if idx := strings.Index(out.version, ":"); idx > 0 {
		if epoch, err := strconv.Atoi(out.version[:idx]); err == nil {
			out.epoch = epoch
			out.version = out.version[idx+1:]
		}
	}
	if idx := strings.LastIndex(out.version, "-"); idx >= 0 {
		out.release = out.version[idx+1:]
		out.version = out.version[:idx]
	}
	return out
}

// CompareVersions orders two package versions the way pacman does: epoch
// first, then the version segment, then the release. When either side has
// no release only epoch and version take part.
func CompareVersions(a string, b string) int {
	left := parseEVR(a)
	right := parseEVR(b)
	if left.release == "" || right.release == "" {
		left.release = ""
		right.release = ""
	}
	return rpm.Compare(left, right)
}

// Satisfies reports whether version meets op/want.
func Satisfies(version string, op types.ConstraintOp, want string) (bool, error) {
	if op == types.ConstraintOpNone {
		return true, nil
	}
	cmp := CompareVersions(version, want)
	switch op {
	case types.ConstraintOpEq:
		return cmp == 0, nil
	case types.ConstraintOpGte:
		return cmp >= 0, nil
	case types.ConstraintOpLte:
		return cmp <= 0, nil
	case types.ConstraintOpGt:
		return cmp > 0, nil
	case types.ConstraintOpLt:
		return cmp < 0, nil
	default:
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported constraint operator %q", op))
	}
}

// PackageSatisfies reports whether pkg meets spec, either directly by name
// or through one of its provides. An unversioned provide never satisfies a
// versioned spec.
func PackageSatisfies(pkg types.Package, spec types.DependencySpec) bool {
	if pkg.Name == spec.Name {
		ok, err := Satisfies(pkg.Version, spec.Op, spec.Version)
		if err == nil && ok {
			return true
		}
	}
	for _, provide := range pkg.Provides {
		if providesSatisfies(provide, spec) {
			return true
		}
	}
	return false
}

func providesSatisfies(provide types.DependencySpec, spec types.DependencySpec) bool {
	if provide.Name != spec.Name {
		return false
	}
	if !spec.IsVersioned() {
		return true
	}
	if !provide.IsVersioned() {
		return false
	}
	ok, err := Satisfies(provide.Version, spec.Op, spec.Version)
	return err == nil && ok
}
