package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	opts := syncOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would add, remove and keep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), cmd, opts)
		},
	}
	bindSyncFlags(cmd, &opts)
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts syncOptions) error {
	ctx, cancel := withTimeout(ctx, resolveDuration(cmd, opts.Timeout, "timeout", "timeout"))
	defer cancel()

	service := newAppService()
	result, err := service.Plan(ctx, syncRequestFromFlags(cmd, opts))
	if err != nil {
		return err
	}
	return summary.WritePlan(cmd.OutOrStdout(), result.Plan)
}
