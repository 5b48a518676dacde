package adapters

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

// SummaryTableAdapter renders plans, reports and resolved sets as text
// tables.
type SummaryTableAdapter struct{}

func NewSummaryTableAdapter() SummaryTableAdapter {
	return SummaryTableAdapter{}
}

func (a SummaryTableAdapter) WriteReport(w io.Writer, report types.SyncReport) error {
	table := newTable(w, []string{"Repository", "Arch", "Added", "Removed", "Unchanged", "Failed", "Indexed"})
	for _, entry := range report.Sorted() {
		indexed := "no"
		if entry.Indexed {
			indexed = "yes"
		}
		if err := table.Append(
			entry.Bucket.Repository,
			entry.Bucket.Architecture,
			strconv.Itoa(entry.Added),
			strconv.Itoa(entry.Removed),
			strconv.Itoa(entry.Unchanged),
			strconv.Itoa(entry.Failed),
			indexed,
		); err != nil {
			return renderError(err)
		}
	}
	if err := table.Render(); err != nil {
		return renderError(err)
	}
	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}
	failed := newTable(w, []string{"Bucket", "Package", "Stage", "Attempts", "Error"})
	for _, failure := range failures {
		if err := failed.Append(
			failure.Bucket.String(),
			failure.Package,
			string(failure.Stage),
			strconv.Itoa(failure.Attempts),
			errorText(failure.Err),
		); err != nil {
			return renderError(err)
		}
	}
	if err := failed.Render(); err != nil {
		return renderError(err)
	}
	return nil
}

func (a SummaryTableAdapter) WritePlan(w io.Writer, plan types.SyncPlan) error {
	table := newTable(w, []string{"Repository", "Arch", "Action", "File"})
	for _, bucket := range plan.Buckets {
		for _, pkg := range bucket.ToAdd {
			if err := table.Append(bucket.Bucket.Repository, bucket.Bucket.Architecture, "add", core.PackageFilename(pkg)); err != nil {
				return renderError(err)
			}
		}
		for _, file := range bucket.ToRemove {
			if err := table.Append(bucket.Bucket.Repository, bucket.Bucket.Architecture, "remove", file.Filename); err != nil {
				return renderError(err)
			}
		}
	}
	if err := table.Render(); err != nil {
		return renderError(err)
	}
	add, remove, unchanged := plan.Counts()
	_, err := fmt.Fprintf(w, "%d to add, %d to remove, %d unchanged\n", add, remove, unchanged)
	return err
}

func (a SummaryTableAdapter) WriteResolved(w io.Writer, resolved types.ResolvedSet) error {
	table := newTable(w, []string{"Name", "Version", "Repository", "Required By"})
	for _, pkg := range resolved.Members() {
		requiredBy := resolved.RequiredBy[pkg.Name]
		if requiredBy == "" {
			requiredBy = "-"
		}
		if err := table.Append(pkg.Name, pkg.Version, pkg.Repository, requiredBy); err != nil {
			return renderError(err)
		}
	}
	if err := table.Render(); err != nil {
		return renderError(err)
	}
	_, err := fmt.Fprintf(w, "%d packages resolved for %s\n", resolved.Len(), resolved.Architecture)
	return err
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithHeader(header),
		tablewriter.WithAlignment(tw.MakeAlign(len(header), tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
	)
}

func errorText(err error) string {
	if err == nil {
		return "-"
	}
	return err.Error()
}

func renderError(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to render table").
		WithCause(err)
}

var _ ports.SummaryPort = SummaryTableAdapter{}
