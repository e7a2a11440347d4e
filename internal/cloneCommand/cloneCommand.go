package cloneCommand

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"glclone/internal/appConfig"
	"glclone/internal/cloneCommand/terminalView"
	"glclone/internal/color"
	"glclone/internal/destination"
	"glclone/internal/filter"
	"glclone/internal/gitlab"
	"glclone/internal/gitrepo"
	. "glclone/internal/log"
	"glclone/internal/metrics"
	"glclone/internal/pipe"
	"glclone/internal/view"
)

// Deps are the collaborators of a run. Nil Metrics, ViewModel and
// ErrorViewModel are allowed.
type Deps struct {
	Source         gitlab.ProjectSource
	BackupAPI      destination.BackupAPI
	Transport      gitrepo.Transport
	Metrics        *metrics.Recorder
	ViewModel      *terminalView.CloneViewModel
	ErrorViewModel *view.ErrorViewModel
	TempDir        string
}

type Result struct {
	Path    string
	Outcome gitrepo.Outcome
}

type RunSummary struct {
	RunID       string
	Attempted   int
	Transferred int
	Skipped     int
	Failed      int
	Results     []Result
	// ListingError is set when listing stopped early; no transfers were
	// started after it.
	ListingError error
	Interrupted  bool
	Duration     time.Duration
}

func (s *RunSummary) add(outcome gitrepo.Outcome) {
	s.Attempted++
	switch outcome.Kind {
	case gitrepo.Transferred:
		s.Transferred++
	case gitrepo.Skipped:
		s.Skipped++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, Result{Path: outcome.Project, Outcome: outcome})
}

func (s *RunSummary) Outcomes() []gitrepo.Outcome {
	return lo.Map(s.Results, func(r Result, _ int) gitrepo.Outcome { return r.Outcome })
}

func (s *RunSummary) FailedResults() []Result {
	return lo.Filter(s.Results, func(r Result, _ int) bool { return r.Outcome.Kind == gitrepo.Failed })
}

// ExitCode is 0 only for a complete run without failures.
func (s *RunSummary) ExitCode() int {
	if s.Failed > 0 || s.ListingError != nil || s.Interrupted {
		return 1
	}
	return 0
}

// Run lists, filters and transfers projects. The returned summary is never
// nil; the error is the listing error, if any.
func Run(ctx context.Context, params *appConfig.CloneParams, deps Deps) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: uuid.NewString()}
	vm := deps.ViewModel
	if vm == nil {
		vm = terminalView.NewCloneViewModel(params.Fetch.URL, params.Destination)
	}
	log := Log.WithField("run", summary.RunID)
	log.Infof("Mirroring projects of %s to %s", color.FgCyan(params.Fetch.URL), color.FgCyan(targetLabel(params)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lister := gitlab.NewLister(deps.Source, gitlab.ListOptions{
		PerPage:    params.PerPage,
		Owned:      params.OnlyOwned,
		Membership: params.OnlyMembership,
	}, params.Limit, vm.ListedCount)
	projects, listErrs := lister.Stream(runCtx)

	listDone := make(chan struct{})
	go func() {
		defer close(listDone)
		for err := range listErrs {
			summary.ListingError = err
			log.Errorf("Listing projects failed, starting no further transfers: %v", err)
			if deps.ErrorViewModel != nil {
				deps.ErrorViewModel.Report(err)
			}
			cancel()
		}
	}()

	filtered := filter.Filter(runCtx, projects, params.Patterns, func(project gitlab.Project) {
		vm.FilteredOutCount.Inc()
		log.Debugf("Filtered out %s", project.PathWithNamespace)
	})
	paced := pipe.RateLimit(runCtx, filtered, params.RateLimitPerSecond, appConfig.DefaultChannelBufferLength)

	resolver := destination.NewResolver(params, deps.BackupAPI)
	worker := gitrepo.NewWorker(params, deps.Transport, resolver)
	worker.TempDir = deps.TempDir
	worker.RunID = summary.RunID
	jobs := gitrepo.ResolveDestinations(runCtx, paced, resolver)

	gitrepo.TransferRepositories(runCtx, jobs, params.ConcurrencyLimit, worker, vm.TransferCounters(), func(outcome gitrepo.Outcome) {
		summary.add(outcome)
		deps.Metrics.ObserveTransfer(outcome.Kind.String(), string(outcome.Stage), outcome.Duration)
		if outcome.Kind == gitrepo.Failed && deps.ErrorViewModel != nil {
			deps.ErrorViewModel.Report(fmt.Errorf("%s: %s", outcome.Project, outcome.Detail()))
		}
	})
	cancel()
	<-listDone

	summary.Interrupted = ctx.Err() != nil
	summary.Duration = time.Since(start)
	deps.Metrics.ProjectsListed(vm.ListedCount.Count())
	deps.Metrics.RunFinished(time.Now())

	log.Infof("Run finished in %.2f seconds: %d attempted, %d transferred, %d skipped, %d failed",
		summary.Duration.Seconds(), summary.Attempted, summary.Transferred, summary.Skipped, summary.Failed)
	if summary.Interrupted {
		log.Warnf("Run was interrupted, in-flight transfers were completed")
	}
	return summary, summary.ListingError
}

func targetLabel(params *appConfig.CloneParams) string {
	backup := ""
	if params.Backup != nil {
		backup = params.Backup.Endpoint.URL + "/" + params.Backup.Group
	}
	switch {
	case params.Destination != "" && backup != "":
		return params.Destination + " + " + backup
	case backup != "":
		return backup
	}
	return params.Destination
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// reportFailures names the failed projects on w, for runs whose stdout is
// not read, such as cron jobs.
func reportFailures(w io.Writer, summary *RunSummary) {
	failed := summary.FailedResults()
	if len(failed) == 0 {
		return
	}
	paths := lo.Map(failed, func(r Result, _ int) string { return r.Path })
	slices.Sort(paths)
	_, _ = fmt.Fprintf(w, "%d projects failed: %s\n", len(paths), strings.Join(paths, ", "))
}

type Options struct {
	Stdout      *os.File
	LogFilePath string
	MetricsFile string
}

// ExecuteCloneCommand performs a run against real GitLab instances and
// prints its progress and summary. It returns the process exit code.
func ExecuteCloneCommand(ctx context.Context, params *appConfig.CloneParams, opts Options) int {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	if params.Destination != "" && !params.DryRun {
		if err := os.MkdirAll(params.Destination, os.ModePerm); err != nil {
			Log.Errorf("Failed to create destination directory: %v", err)
			return 1
		}
	}

	vm := terminalView.NewCloneViewModel(hostOf(params.Fetch.URL), targetLabel(params))
	errorVM := view.NewErrorViewModel(vm.FailedCount, opts.LogFilePath)
	commandView := terminalView.NewCloneCommandView(vm, errorVM, out, nil)

	// Log lines would tear the live view apart unless they go to a file.
	isTTY := opts.LogFilePath != "" && view.IsTerminal(out)
	stopRenderLoop := func() {}
	if isTTY {
		stopRenderLoop = view.StartTTYRenderLoop(ctx, commandView, out)
	}

	deps := Deps{
		Source:         gitlab.NewClient(params.Fetch.URL, params.Fetch.Token),
		Transport:      gitrepo.NewGoGitTransport(),
		Metrics:        metrics.NewRecorder(),
		ViewModel:      vm,
		ErrorViewModel: errorVM,
	}
	if params.Backup != nil {
		deps.BackupAPI = gitlab.NewClient(params.Backup.Endpoint.URL, params.Backup.Endpoint.Token)
	}

	summary, err := Run(ctx, params, deps)
	stopRenderLoop()

	width := view.TerminalWidth(out)
	if !isTTY {
		commandView.RenderNonTTY(width)
	}
	if params.DryRun {
		terminalView.NewDryRunView(summary.Outcomes(), out).Render(width)
	} else {
		terminalView.NewSummaryView(summary.Outcomes(), out).Render(width)
	}

	if opts.MetricsFile != "" {
		if mErr := deps.Metrics.WriteTextfile(opts.MetricsFile); mErr != nil {
			Log.Errorf("Failed to write metrics to %s: %v", opts.MetricsFile, mErr)
		}
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Listing projects failed: %s\n", color.FgRed(err.Error()))
	}
	reportFailures(os.Stderr, summary)
	return summary.ExitCode()
}
