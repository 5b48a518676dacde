package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"myrepo/internal/app"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <package-file>",
		Short: "Show the database entry a package file would produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, path string) error {
	service := newAppService()
	result, err := service.InspectPackage(cmd.Context(), app.InspectRequest{Path: path})
	if err != nil {
		return err
	}
	record := result.Record
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:       %s\n", record.Name)
	fmt.Fprintf(out, "version:    %s\n", record.Version)
	fmt.Fprintf(out, "arch:       %s\n", record.Arch)
	fmt.Fprintf(out, "size:       %d (installed %d)\n", record.CSize, record.ISize)
	fmt.Fprintf(out, "sha256:     %s\n", record.SHA256Sum)
	fmt.Fprintf(out, "signed:     %t\n", record.PGPSig != "")
	fmt.Fprintf(out, "depends:    %s\n", strings.Join(record.Depends, " "))
	fmt.Fprintf(out, "provides:   %s\n", strings.Join(record.Provides, " "))
	fmt.Fprintf(out, "conflicts:  %s\n", strings.Join(record.Conflicts, " "))
	fmt.Fprintf(out, "replaces:   %s\n", strings.Join(record.Replaces, " "))
	fmt.Fprintf(out, "files:      %d\n", len(record.Files))
	return nil
}
