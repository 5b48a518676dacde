package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSyncCommand() *cobra.Command {
	opts := syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Resolve, mirror and index the repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), cmd, opts)
		},
	}
	bindSyncFlags(cmd, &opts)
	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, opts syncOptions) error {
	ctx, cancel := withTimeout(ctx, resolveDuration(cmd, opts.Timeout, "timeout", "timeout"))
	defer cancel()

	service := newAppService()
	result, err := service.Sync(ctx, syncRequestFromFlags(cmd, opts))
	if err != nil {
		return err
	}
	if err := summary.WriteReport(cmd.OutOrStdout(), result.Report); err != nil {
		return err
	}
	if failures := result.Report.Failures(); len(failures) > 0 {
		log.Ctx(ctx).Warn().
			Int("failed", len(failures)).
			Msg("sync finished with failures; affected repositories were not re-indexed")
	}
	return nil
}
