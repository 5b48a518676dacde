package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"myrepo/internal/adapters"
	"myrepo/internal/app"
	"myrepo/internal/policies"
	"myrepo/internal/types"
)

type syncOptions struct {
	Packages         string
	Path             string
	MirrorList       string
	Mirrors          []string
	Arch             string
	Core             bool
	Extra            bool
	Community        bool
	Testing          bool
	Repos            []string
	Workers          int
	FetchAttempts    int
	RetryDelayMs     int
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	SkipSig          bool
	SignMissing      bool
	GPGKey           string
	SigningKeyFile   string
	LockFile         string
	SBOMFile         string
	SBOMCreated      string
	Timeout          time.Duration
}

// bindSyncFlags registers the flags shared by the root, sync, resolve and
// plan commands.
func bindSyncFlags(cmd *cobra.Command, opts *syncOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.Packages, "packages", "", "Newline-delimited seed package list")
	flags.StringVar(&opts.Path, "path", app.DefaultRepoRoot, "Repository root")
	flags.StringVar(&opts.MirrorList, "mirror-list", adapters.DefaultMirrorListPath, "pacman mirrorlist file")
	flags.StringSliceVar(&opts.Mirrors, "mirror", nil, "Mirror URL template, e.g. https://host/$repo/os/$arch (overrides --mirror-list)")
	flags.StringVar(&opts.Arch, "arch", types.DefaultArchitecture, "Target architecture")
	flags.BoolVar(&opts.Core, "core", true, "Include the core repository")
	flags.BoolVar(&opts.Extra, "extra", true, "Include the extra repository")
	flags.BoolVar(&opts.Community, "community", true, "Include the community repository")
	flags.BoolVar(&opts.Testing, "testing", false, "Include the testing repository")
	flags.StringSliceVar(&opts.Repos, "repo", nil, "Additional repository name(s)")
	flags.IntVar(&opts.Workers, "workers", 8, "Concurrent fetch workers")
	flags.IntVar(&opts.FetchAttempts, "fetch-attempts", 3, "Attempts per package before it is reported as failed")
	flags.IntVar(&opts.RetryDelayMs, "fetch-retry-delay-ms", 500, "Base delay between package attempts in ms")
	flags.IntVar(&opts.HTTPTimeoutSec, "http-timeout", 60, "HTTP connect, header and idle-read timeout in seconds (0 = default)")
	flags.IntVar(&opts.HTTPRetries, "http-retries", 3, "HTTP retries (0 = default)")
	flags.IntVar(&opts.HTTPRetryDelayMs, "http-retry-delay-ms", 200, "HTTP retry base delay in ms (0 = default)")
	flags.BoolVar(&opts.SkipSig, "skip-sig", false, "Do not fetch or create detached signatures")
	flags.BoolVar(&opts.SignMissing, "sign-missing", false, "Sign packages locally when upstream has no signature")
	flags.StringVar(&opts.GPGKey, "gpg-key", "", "Key ID used for local signing")
	flags.StringVar(&opts.SigningKeyFile, "signing-key-file", "", "Armored or binary secret key file (uses gpg when empty)")
	flags.StringVar(&opts.LockFile, "lock-file", "", "Write the resolved package set to this YAML file")
	flags.StringVar(&opts.SBOMFile, "sbom", "", "Write an SPDX JSON SBOM of the resolved set to this file")
	flags.StringVar(&opts.SBOMCreated, "sbom-created", "", "SBOM creation time, RFC 3339 or epoch seconds (default now)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Overall deadline for the run (0 = none)")

	_ = viper.BindPFlag("packages", flags.Lookup("packages"))
	_ = viper.BindPFlag("path", flags.Lookup("path"))
	_ = viper.BindPFlag("mirror_list", flags.Lookup("mirror-list"))
	_ = viper.BindPFlag("mirrors", flags.Lookup("mirror"))
	_ = viper.BindPFlag("arch", flags.Lookup("arch"))
	_ = viper.BindPFlag("core", flags.Lookup("core"))
	_ = viper.BindPFlag("extra", flags.Lookup("extra"))
	_ = viper.BindPFlag("community", flags.Lookup("community"))
	_ = viper.BindPFlag("testing", flags.Lookup("testing"))
	_ = viper.BindPFlag("repos", flags.Lookup("repo"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("fetch_attempts", flags.Lookup("fetch-attempts"))
	_ = viper.BindPFlag("fetch_retry_delay_ms", flags.Lookup("fetch-retry-delay-ms"))
	_ = viper.BindPFlag("http_timeout_sec", flags.Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", flags.Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", flags.Lookup("http-retry-delay-ms"))
	_ = viper.BindPFlag("skip_sig", flags.Lookup("skip-sig"))
	_ = viper.BindPFlag("sign_missing", flags.Lookup("sign-missing"))
	_ = viper.BindPFlag("gpg_key", flags.Lookup("gpg-key"))
	_ = viper.BindPFlag("signing_key_file", flags.Lookup("signing-key-file"))
	_ = viper.BindPFlag("lock_file", flags.Lookup("lock-file"))
	_ = viper.BindPFlag("sbom_file", flags.Lookup("sbom"))
	_ = viper.BindPFlag("sbom_created", flags.Lookup("sbom-created"))
	_ = viper.BindPFlag("timeout", flags.Lookup("timeout"))
}

func syncRequestFromFlags(cmd *cobra.Command, opts syncOptions) app.SyncRequest {
	return app.SyncRequest{
		PackagesPath:   resolveString(cmd, opts.Packages, "packages", "packages"),
		MirrorListPath: resolveString(cmd, opts.MirrorList, "mirror_list", "mirror-list"),
		Mirrors:        resolveStrings(cmd, opts.Mirrors, "mirrors", "mirror"),
		Root:           resolveString(cmd, opts.Path, "path", "path"),
		Architecture:   resolveString(cmd, opts.Arch, "arch", "arch"),
		Repositories: policies.RepositorySelection{
			Core:      resolveBool(cmd, opts.Core, "core", "core"),
			Extra:     resolveBool(cmd, opts.Extra, "extra", "extra"),
			Community: resolveBool(cmd, opts.Community, "community", "community"),
			Testing:   resolveBool(cmd, opts.Testing, "testing", "testing"),
			Custom:    resolveStrings(cmd, opts.Repos, "repos", "repo"),
		},
		Workers:           resolveInt(cmd, opts.Workers, "workers", "workers"),
		FetchAttempts:     resolveInt(cmd, opts.FetchAttempts, "fetch_attempts", "fetch-attempts"),
		RetryDelayMs:      resolveInt(cmd, opts.RetryDelayMs, "fetch_retry_delay_ms", "fetch-retry-delay-ms"),
		HTTPTimeoutSec:    resolveInt(cmd, opts.HTTPTimeoutSec, "http_timeout_sec", "http-timeout"),
		HTTPRetries:       resolveInt(cmd, opts.HTTPRetries, "http_retries", "http-retries"),
		HTTPRetryDelayMs:  resolveInt(cmd, opts.HTTPRetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
		SkipSignatures:    resolveBool(cmd, opts.SkipSig, "skip_sig", "skip-sig"),
		SignMissing:       resolveBool(cmd, opts.SignMissing, "sign_missing", "sign-missing"),
		GPGKey:            resolveString(cmd, opts.GPGKey, "gpg_key", "gpg-key"),
		SigningKeyFile:    resolveString(cmd, opts.SigningKeyFile, "signing_key_file", "signing-key-file"),
		SigningPassphrase: viper.GetString("signing_passphrase"),
		LockFile:          resolveString(cmd, opts.LockFile, "lock_file", "lock-file"),
		SBOMFile:          resolveString(cmd, opts.SBOMFile, "sbom_file", "sbom"),
		SBOMCreated:       resolveString(cmd, opts.SBOMCreated, "sbom_created", "sbom-created"),
	}
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func resolveDuration(cmd *cobra.Command, value time.Duration, key string, flagName string) time.Duration {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetDuration(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
