package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"glclone/internal/appConfig"
	"glclone/internal/color"
	"glclone/internal/destination"
	"glclone/internal/gitlab"
	. "glclone/internal/log"
)

// BackupPreparer creates the backup project a mirror is pushed to.
type BackupPreparer interface {
	EnsureBackup(ctx context.Context, target destination.BackupTarget) (*gitlab.Project, error)
}

// Worker transfers single projects: it fetches into the local mirror, then
// pushes the mirror to the backup instance.
type Worker struct {
	params    *appConfig.CloneParams
	transport Transport
	backup    BackupPreparer
	// TempDir is where temporary mirrors are created, os.TempDir() when empty.
	TempDir string
	// RunID is added to every log line of the worker.
	RunID string
}

func NewWorker(params *appConfig.CloneParams, transport Transport, backup BackupPreparer) *Worker {
	return &Worker{params: params, transport: transport, backup: backup}
}

// Transfer mirrors one project and reports how it went. It never returns an
// error; failures are part of the Outcome.
//
// Git and API work runs detached from ctx cancellation so that an interrupted
// run never leaves a half-written repository behind.
func (w *Worker) Transfer(ctx context.Context, dest destination.Destination) Outcome {
	start := time.Now()
	project := dest.Project
	outcome := Outcome{Project: project.PathWithNamespace, Destination: dest.String(), Stage: StageDone}
	log := Log.WithFields(logrus.Fields{"project": project.PathWithNamespace, "run": w.RunID})

	finish := func(kind OutcomeKind) Outcome {
		outcome.Kind = kind
		outcome.Duration = time.Since(start)
		switch kind {
		case Failed:
			log.Errorf("Failed to transfer %s at %s: %v", color.FgRed(project.PathWithNamespace), outcome.Stage, outcome.Err)
		case Skipped:
			log.Debugf("Skipped %s: %s", color.FgMagenta(project.PathWithNamespace), outcome.Reason)
		default:
			log.Infof("Transferred %s to %s in %.2f seconds", color.FgMagenta(project.PathWithNamespace), color.FgCyan(outcome.Destination), outcome.Duration.Seconds())
		}
		return outcome
	}
	skip := func(reason string) Outcome {
		outcome.Reason = reason
		return finish(Skipped)
	}
	fail := func(stage Stage, err error) Outcome {
		outcome.Stage = stage
		outcome.Err = err
		return finish(Failed)
	}

	switch {
	case w.params.DryRun:
		return skip(ReasonDryRun)
	case project.Archived && w.params.SkipArchived:
		return skip(ReasonArchived)
	case project.EmptyRepo:
		return skip(ReasonEmpty)
	}

	gitCtx := context.WithoutCancel(ctx)

	localPath := dest.LocalPath
	if dest.Temporary {
		dir, err := os.MkdirTemp(w.TempDir, "glclone-")
		if err != nil {
			return fail(StagePrepare, fmt.Errorf("failed to create temporary mirror directory: %w", err))
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Warnf("Failed to remove temporary mirror %s: %v", dir, err)
			}
		}()
		localPath = filepath.Join(dir, project.Path+".git")
	}

	if Log.IsLevelEnabled(logrus.DebugLevel) {
		log.Debugf("Fetching %s into %s", color.FgMagenta(project.PathWithNamespace), color.FgMagenta(localPath))
	}
	fetched, err := w.transport.CloneOrUpdate(gitCtx, w.sourceRemote(project), localPath)
	if errors.Is(err, ErrEmptyRepository) {
		return skip(ReasonEmpty)
	}
	if err != nil {
		return fail(StageFetch, err)
	}
	outcome.Fetched = true
	changed := fetched.Cloned || !fetched.UpToDate

	if dest.Backup != nil {
		backupProject, err := w.backup.EnsureBackup(gitCtx, *dest.Backup)
		if err != nil {
			return fail(StagePrepareBackup, err)
		}
		pushed, err := w.transport.MirrorPush(gitCtx, localPath, w.backupRemote(*dest.Backup, backupProject))
		if err != nil {
			return fail(StagePush, err)
		}
		outcome.Pushed = true
		changed = changed || !pushed.UpToDate
	}

	if !changed {
		return skip(ReasonUpToDate)
	}
	return finish(Transferred)
}

func (w *Worker) sourceRemote(project gitlab.Project) Remote {
	basePath := urlBasePath(w.params.Fetch.URL)
	if w.params.DownloadSSH {
		return Remote{URL: project.SSHURLToRepo, Auth: AuthSSH, SSHKeyPath: w.params.SSHKeyPath, BasePath: basePath}
	}
	return Remote{URL: project.HTTPURLToRepo, Auth: AuthHTTPToken, Token: w.params.Fetch.Token, BasePath: basePath}
}

func (w *Worker) backupRemote(target destination.BackupTarget, project *gitlab.Project) Remote {
	endpoint := w.params.Backup.Endpoint
	if w.params.UploadSSH {
		remoteURL := ""
		if project != nil {
			remoteURL = project.SSHURLToRepo
		}
		if remoteURL == "" {
			host := endpoint.URL
			if u, err := url.Parse(endpoint.URL); err == nil {
				host = u.Hostname()
			}
			remoteURL = fmt.Sprintf("git@%s:%s.git", host, target.ProjectPath)
		}
		return Remote{URL: remoteURL, Auth: AuthSSH, SSHKeyPath: w.params.SSHKeyPath}
	}

	remoteURL := ""
	if project != nil {
		remoteURL = project.HTTPURLToRepo
	}
	if remoteURL == "" {
		remoteURL = strings.TrimSuffix(endpoint.URL, "/") + "/" + target.ProjectPath + ".git"
	}
	return Remote{URL: remoteURL, Auth: AuthHTTPToken, Token: endpoint.Token}
}
