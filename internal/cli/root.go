package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"myrepo/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "MYREPO"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
	LogFile    string
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	opts := syncOptions{}
	cmd := &cobra.Command{
		Use:   "myrepo",
		Short: "Build a local pacman repository from a seed package list",
		Long: "Resolves the dependency closure of a seed package list against upstream\n" +
			"repository metadata, mirrors the packages into <path>/<repo>/os/<arch>/\n" +
			"and rebuilds the repository databases. Without a subcommand it runs sync.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			logger := setupLogging(viper.GetString("log_level"), viper.GetString("log_file"))
			cmd.SetContext(logger.WithContext(commandContext(cmd)))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "Also write logs to this file, rotated")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_file", cmd.PersistentFlags().Lookup("log-file"))
	bindSyncFlags(cmd, &opts)

	cmd.AddCommand(newSyncCommand())
	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newPlanCommand())
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newInspectCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("myrepo")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/myrepo")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

// exitCodeForError maps a run error to the process exit status: 2 when
// nothing could be resolved, 1 for every other fatal error.
func exitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, types.ErrNoPackagesResolved) {
		return 2
	}
	return 1
}
