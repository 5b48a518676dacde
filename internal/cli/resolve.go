package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	opts := syncOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the dependency closure of the seed list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, opts)
		},
	}
	bindSyncFlags(cmd, &opts)
	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts syncOptions) error {
	ctx, cancel := withTimeout(ctx, resolveDuration(cmd, opts.Timeout, "timeout", "timeout"))
	defer cancel()

	service := newAppService()
	result, err := service.Resolve(ctx, syncRequestFromFlags(cmd, opts))
	if err != nil {
		return err
	}
	return summary.WriteResolved(cmd.OutOrStdout(), result.Resolved)
}
