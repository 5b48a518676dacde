package types

type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">"
	ConstraintOpLt   ConstraintOp = "<"
)

type IndexKind string

const (
	IndexKindDB    IndexKind = "db"
	IndexKindFiles IndexKind = "files"
)

// FailureStage names the step of a sync task that failed.
type FailureStage string

const (
	FailureStageFetch  FailureStage = "fetch"
	FailureStageVerify FailureStage = "verify"
	FailureStageSign   FailureStage = "sign"
	FailureStageWrite  FailureStage = "write"
	FailureStageRemove FailureStage = "remove"
)

const (
	RepositoryCore      = "core"
	RepositoryExtra     = "extra"
	RepositoryCommunity = "community"
	RepositoryTesting   = "testing"
)

const DefaultArchitecture = "x86_64"
