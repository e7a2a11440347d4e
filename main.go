package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"glclone/internal/appConfig"
	"glclone/internal/cloneCommand"
	"glclone/internal/gitlab"
	. "glclone/internal/log"
)

const (
	exitConfigError = 2

	flagVerbose     = "verbose"
	flagConfig      = "config"
	flagLogFile     = "log-file"
	flagMetricsFile = "metrics-file"
)

// exitCode carries the process exit status out of cobra.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

type cliFlags struct {
	options     appConfig.Options
	limit       int
	verbosity   int
	configFile  string
	logFile     string
	metricsFile string
}

func bindFlags(fs *pflag.FlagSet, f *cliFlags) {
	o := &f.options
	fs.StringVar(&o.Fetch.URL, appConfig.FlagFetchURL, "", "URL of the GitLab instance to fetch projects from")
	fs.StringVar(&o.Fetch.Token, appConfig.FlagFetchToken, "", "access token for the fetch instance")
	fs.StringVar(&o.Backup.URL, appConfig.FlagBackupURL, "", "URL of the GitLab instance to push mirrors to")
	fs.StringVar(&o.Backup.Token, appConfig.FlagBackupToken, "", "access token for the backup instance")
	fs.StringVar(&o.Backup.Group, appConfig.FlagBackupGroup, "", "existing group on the backup instance that receives the mirrors")
	fs.StringSliceVar(&o.Include, appConfig.FlagInclude, nil, "comma separated regular expressions; only projects whose full path matches one are mirrored")
	fs.StringSliceVar(&o.Exclude, appConfig.FlagExclude, nil, "comma separated regular expressions; projects whose full path matches one are skipped")
	fs.StringVarP(&o.Destination, appConfig.FlagDestination, "d", "", "local directory that receives the mirrors")
	fs.BoolVar(&o.DryRun, appConfig.FlagDryRun, false, "list what would be mirrored without touching anything")
	fs.IntVar(&o.ObjectsPerPage, appConfig.FlagObjectsPerPage, 0, fmt.Sprintf("projects requested per page (default %d)", gitlab.DefaultPerPage))
	fs.IntVar(&f.limit, appConfig.FlagLimit, 0, "stop after this many listed projects")
	fs.IntVar(&o.ConcurrencyLimit, appConfig.FlagConcurrencyLimit, 0, fmt.Sprintf("maximum number of transfers at once (default %d)", appConfig.DefaultConcurrencyLimit))
	fs.BoolVar(&o.OnlyOwned, appConfig.FlagOnlyOwned, false, "only list projects owned by the token's user")
	fs.BoolVar(&o.OnlyMembership, appConfig.FlagOnlyMembership, false, "only list projects the token's user is a member of")
	fs.BoolVar(&o.DownloadSSH, appConfig.FlagDownloadSSH, false, "fetch over SSH instead of HTTPS")
	fs.BoolVar(&o.UploadSSH, appConfig.FlagUploadSSH, false, "push over SSH instead of HTTPS")
	fs.BoolVar(&o.DisableHierarchy, appConfig.FlagDisableHierarchy, false, "store local mirrors flat, by project path only")
	fs.BoolVar(&o.SkipArchived, appConfig.FlagSkipArchived, false, "skip archived projects")
	fs.IntVar(&o.RateLimit, appConfig.FlagRateLimit, 0, "maximum projects dispatched per second, 0 for no limit")
	fs.StringVar(&o.SSHKey, appConfig.FlagSSHKey, "", "private key file for SSH transfers, the SSH agent is used when empty")

	fs.CountVarP(&f.verbosity, flagVerbose, "v", "increase log verbosity (repeatable)")
	fs.StringVar(&f.configFile, flagConfig, "", fmt.Sprintf("config file (default %s in the working or home directory)", appConfig.DefaultConfigFileName))
	fs.StringVar(&f.logFile, flagLogFile, "", "write logs to this file instead of stderr")
	fs.StringVar(&f.metricsFile, flagMetricsFile, "", "write prometheus metrics to this file at the end of the run")
}

// buildParams merges the config file with the flags that were set, flags
// taking precedence, and validates the result.
func buildParams(fs *pflag.FlagSet, f *cliFlags, getenv func(string) string) (*appConfig.CloneParams, error) {
	opts, err := appConfig.LoadConfigFile(f.configFile)
	if err != nil {
		return nil, err
	}
	if fs.Changed(appConfig.FlagLimit) {
		limit := f.limit
		f.options.Limit = &limit
	}
	opts.Override(f.options, fs.Changed)
	opts.ResolveTokens(getenv)
	return opts.Build()
}

func newRootCommand(execute func(ctx context.Context, params *appConfig.CloneParams, opts cloneCommand.Options) int) *cobra.Command {
	flags := &cliFlags{}
	cmd := &cobra.Command{
		Use:           "glclone",
		Short:         "Mirror the projects of a GitLab instance to a local directory and/or another GitLab instance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := buildParams(cmd.Flags(), flags, os.Getenv)
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return exitCode(exitConfigError)
			}

			logFilePath := ""
			if flags.logFile != "" {
				logFilePath = GetLogFilePath(flags.logFile)
			}
			if err := InitLogger(flags.verbosity, logFilePath); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return exitCode(exitConfigError)
			}

			code := execute(cmd.Context(), params, cloneCommand.Options{
				Stdout:      os.Stdout,
				LogFilePath: logFilePath,
				MetricsFile: flags.metricsFile,
			})
			if code != 0 {
				return exitCode(code)
			}
			return nil
		},
	}
	bindFlags(cmd.Flags(), flags)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(cloneCommand.ExecuteCloneCommand).ExecuteContext(ctx)
	var code exitCode
	switch {
	case err == nil:
		return
	case errors.As(err, &code):
		stop()
		os.Exit(int(code))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitConfigError)
	}
}
