package ports

import (
	"io"

	"myrepo/internal/types"
)

type LockWriterPort interface {
	WriteLock(path string, lock types.LockFile) error
}

type SummaryPort interface {
	WritePlan(w io.Writer, plan types.SyncPlan) error
	WriteReport(w io.Writer, report types.SyncReport) error
	WriteResolved(w io.Writer, resolved types.ResolvedSet) error
}

// SBOMPort writes a software bill of materials for a resolved set.
type SBOMPort interface {
	WriteSBOM(path string, createdAt string, resolved types.ResolvedSet) error
}
