package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

var (
	// ErrSignatureNotFound marks a mirror that has no detached signature
	// for a package file.
	ErrSignatureNotFound = errors.New("signature not found")
	// ErrNoPackagesResolved is returned when the seed list resolves to an
	// empty set.
	ErrNoPackagesResolved = errors.New("no packages resolved")
)

// MetadataFetchError reports that a repository index could not be
// retrieved from any mirror.
type MetadataFetchError struct {
	Repository   string
	Architecture string
	cause        error
}

func NewMetadataFetchError(repo, arch string, cause error) *MetadataFetchError {
	return &MetadataFetchError{
		Repository:   repo,
		Architecture: arch,
		cause: errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("fetch metadata for %s/%s", repo, arch)).
			WithCause(cause),
	}
}

func (e *MetadataFetchError) Error() string { return e.cause.Error() }
func (e *MetadataFetchError) Unwrap() error { return e.cause }

// MetadataParseError reports a repository index that could not be decoded.
// Entry and Field are set when a single record is malformed.
type MetadataParseError struct {
	Repository   string
	Architecture string
	Entry        string
	Field        string
	cause        error
}

func NewMetadataParseError(repo, arch string, cause error) *MetadataParseError {
	return &MetadataParseError{
		Repository:   repo,
		Architecture: arch,
		cause: errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("parse metadata for %s/%s", repo, arch)).
			WithCause(cause),
	}
}

func NewMalformedRecordError(repo, arch, entry, field string) *MetadataParseError {
	return &MetadataParseError{
		Repository:   repo,
		Architecture: arch,
		Entry:        entry,
		Field:        field,
		cause: errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("malformed record %q in %s/%s: missing %s", entry, repo, arch, field)),
	}
}

func (e *MetadataParseError) Error() string { return e.cause.Error() }
func (e *MetadataParseError) Unwrap() error { return e.cause }

// UnresolvedDependencyError names a dependency that no package or provider
// satisfies, together with the package that required it.
type UnresolvedDependencyError struct {
	Spec       DependencySpec
	RequiredBy string
	cause      error
}

func NewUnresolvedDependencyError(spec DependencySpec, requiredBy string) *UnresolvedDependencyError {
	msg := fmt.Sprintf("unresolved dependency %s", spec.String())
	if requiredBy != "" {
		msg += " required by " + requiredBy
	}
	return &UnresolvedDependencyError{
		Spec:       spec,
		RequiredBy: requiredBy,
		cause:      errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg(msg),
	}
}

func (e *UnresolvedDependencyError) Error() string { return e.cause.Error() }
func (e *UnresolvedDependencyError) Unwrap() error { return e.cause }

// ConflictError reports two packages that would both be in the resolved set
// while one declares a conflict with the other.
type ConflictError struct {
	A        string
	B        string
	Declared DependencySpec
	cause    error
}

func NewConflictError(a, b string, declared DependencySpec) *ConflictError {
	return &ConflictError{
		A:        a,
		B:        b,
		Declared: declared,
		cause: errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s conflicts with %s (%s)", a, b, declared.String())),
	}
}

func (e *ConflictError) Error() string { return e.cause.Error() }
func (e *ConflictError) Unwrap() error { return e.cause }

// VersionConflictError reports a package chosen earlier that fails a
// constraint discovered later. The resolver does not backtrack.
type VersionConflictError struct {
	Name        string
	Chosen      string
	Spec        DependencySpec
	RequiredBy  string
	SatisfiedBy []string
	cause       error
}

func NewVersionConflictError(name, chosen string, spec DependencySpec, requiredBy string, earlier []string) *VersionConflictError {
	msg := fmt.Sprintf("%s %s was chosen but %s requires %s", name, chosen, requiredByLabel(requiredBy), spec.String())
	if len(earlier) > 0 {
		msg += " (chosen for " + strings.Join(earlier, ", ") + ")"
	}
	return &VersionConflictError{
		Name:        name,
		Chosen:      chosen,
		Spec:        spec,
		RequiredBy:  requiredBy,
		SatisfiedBy: earlier,
		cause:       errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition).WithMsg(msg),
	}
}

func (e *VersionConflictError) Error() string { return e.cause.Error() }
func (e *VersionConflictError) Unwrap() error { return e.cause }

func requiredByLabel(requiredBy string) string {
	if requiredBy == "" {
		return "seed"
	}
	return requiredBy
}
