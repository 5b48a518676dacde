package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"myrepo/internal/app"
	"myrepo/internal/policies"
	"myrepo/internal/types"
)

type indexOptions struct {
	Path      string
	Arch      string
	Core      bool
	Extra     bool
	Community bool
	Testing   bool
	Repos     []string
	Workers   int
}

func newIndexCommand() *cobra.Command {
	opts := indexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild repository databases from the package files on disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", app.DefaultRepoRoot, "Repository root")
	cmd.Flags().StringVar(&opts.Arch, "arch", types.DefaultArchitecture, "Target architecture")
	cmd.Flags().BoolVar(&opts.Core, "core", true, "Index the core repository")
	cmd.Flags().BoolVar(&opts.Extra, "extra", true, "Index the extra repository")
	cmd.Flags().BoolVar(&opts.Community, "community", true, "Index the community repository")
	cmd.Flags().BoolVar(&opts.Testing, "testing", false, "Index the testing repository")
	cmd.Flags().StringSliceVar(&opts.Repos, "repo", nil, "Additional repository name(s)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Repositories indexed concurrently")

	_ = viper.BindPFlag("index_workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	service := newAppService()
	result, err := service.RebuildIndexes(ctx, app.IndexRequest{
		Root:         resolveString(cmd, opts.Path, "path", "path"),
		Architecture: resolveString(cmd, opts.Arch, "arch", "arch"),
		Repositories: policies.RepositorySelection{
			Core:      resolveBool(cmd, opts.Core, "core", "core"),
			Extra:     resolveBool(cmd, opts.Extra, "extra", "extra"),
			Community: resolveBool(cmd, opts.Community, "community", "community"),
			Testing:   resolveBool(cmd, opts.Testing, "testing", "testing"),
			Custom:    resolveStrings(cmd, opts.Repos, "repos", "repo"),
		},
		Workers: resolveInt(cmd, opts.Workers, "index_workers", "workers"),
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, archive := range result.Archives {
		fmt.Fprintf(out, "indexed %s: %d packages -> %s\n", archive.Bucket, archive.Records, archive.DBPath)
	}
	if len(result.Failed) == 0 {
		return nil
	}
	buckets := make([]types.Bucket, 0, len(result.Failed))
	for bucket := range result.Failed {
		buckets = append(buckets, bucket)
	}
	types.SortBuckets(buckets)
	for _, bucket := range buckets {
		fmt.Fprintf(out, "failed %s: %v\n", bucket, result.Failed[bucket])
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("%d repositories could not be indexed", len(buckets)))
}
