package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"glclone/internal/color"
	. "glclone/internal/log"
)

const originRemote = "origin"

var mirrorRefSpecs = []gitconfig.RefSpec{
	"+refs/heads/*:refs/heads/*",
	"+refs/tags/*:refs/tags/*",
}

// GoGitTransport implements Transport with go-git, without a git binary.
type GoGitTransport struct{}

func NewGoGitTransport() *GoGitTransport {
	return &GoGitTransport{}
}

func (t *GoGitTransport) auth(remote Remote) (transport.AuthMethod, error) {
	switch remote.Auth {
	case AuthSSH:
		if remote.SSHKeyPath != "" {
			keys, err := gitssh.NewPublicKeysFromFile("git", remote.SSHKeyPath, "")
			if err != nil {
				return nil, fmt.Errorf("failed to load ssh key %s: %w", remote.SSHKeyPath, err)
			}
			return keys, nil
		}
		agent, err := gitssh.NewSSHAgentAuth("git")
		if err != nil {
			return nil, fmt.Errorf("failed to reach ssh-agent: %w", err)
		}
		return agent, nil
	default:
		if remote.Token == "" {
			return nil, nil
		}
		return &http.BasicAuth{Username: "oauth2", Password: remote.Token}, nil
	}
}

func (t *GoGitTransport) CloneOrUpdate(ctx context.Context, src Remote, localPath string) (FetchResult, error) {
	auth, err := t.auth(src)
	if err != nil {
		return FetchResult{}, err
	}

	repository, err := git.PlainOpen(localPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return t.clone(ctx, src, auth, localPath)
	} else if err != nil {
		return FetchResult{}, fmt.Errorf("failed to open mirror at %s: %w", localPath, err)
	}

	origin, err := repository.Remote(originRemote)
	if err != nil {
		return FetchResult{}, fmt.Errorf("mirror at %s has no %s remote: %w", localPath, originRemote, err)
	}
	if urls := origin.Config().URLs; len(urls) == 0 || !sameRepository(urls[0], src.URL, src.BasePath) {
		return FetchResult{}, fmt.Errorf("%w: %s mirrors %v", ErrForeignRepository, localPath, urls)
	}

	Log.Debugf("Updating %s from %s", color.FgMagenta(localPath), color.FgCyan(src.URL))
	err = repository.FetchContext(ctx, &git.FetchOptions{
		RemoteName: originRemote,
		RemoteURL:  src.URL,
		Auth:       auth,
		RefSpecs:   mirrorRefSpecs,
		Force:      true,
		Prune:      true,
	})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return FetchResult{UpToDate: true}, nil
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return FetchResult{}, ErrEmptyRepository
	case err != nil:
		return FetchResult{}, fmt.Errorf("fetch into %s failed: %w", localPath, err)
	}
	return FetchResult{}, nil
}

func (t *GoGitTransport) clone(ctx context.Context, src Remote, auth transport.AuthMethod, localPath string) (FetchResult, error) {
	existed, err := checkCloneTarget(localPath)
	if err != nil {
		return FetchResult{}, err
	}

	Log.Debugf("Cloning %s to %s", color.FgCyan(src.URL), color.FgMagenta(localPath))
	repository, err := git.PlainCloneContext(ctx, localPath, true, &git.CloneOptions{
		URL:    src.URL,
		Auth:   auth,
		Mirror: true,
	})
	if err == nil && !hasRefs(repository) {
		err = transport.ErrEmptyRemoteRepository
	}
	if err == nil {
		return FetchResult{Cloned: true}, nil
	}

	// Leave no half-written mirror behind for the next run to trip over.
	if existed {
		cleanDirectory(localPath)
	} else {
		_ = os.RemoveAll(localPath)
	}
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return FetchResult{}, ErrEmptyRepository
	}
	return FetchResult{}, fmt.Errorf("clone into %s failed: %w", localPath, err)
}

func hasRefs(repository *git.Repository) bool {
	refs, err := repository.References()
	if err != nil {
		return false
	}
	defer refs.Close()
	found := false
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference && (ref.Name().IsBranch() || ref.Name().IsTag()) {
			found = true
			return storer.ErrStop
		}
		return nil
	})
	return found
}

// checkCloneTarget accepts a missing or empty directory.
func checkCloneTarget(localPath string) (existed bool, err error) {
	entries, err := os.ReadDir(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cannot read %s: %w", localPath, err)
	case len(entries) > 0:
		return true, fmt.Errorf("%w: %s", ErrNotARepository, localPath)
	}
	return true, nil
}

func cleanDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		_ = os.RemoveAll(dir + string(os.PathSeparator) + entry.Name())
	}
}

func (t *GoGitTransport) MirrorPush(ctx context.Context, localPath string, dst Remote) (PushResult, error) {
	auth, err := t.auth(dst)
	if err != nil {
		return PushResult{}, err
	}

	repository, err := git.PlainOpen(localPath)
	if err != nil {
		return PushResult{}, fmt.Errorf("failed to open mirror at %s: %w", localPath, err)
	}

	Log.Debugf("Pushing %s to %s", color.FgMagenta(localPath), color.FgCyan(dst.URL))
	err = repository.PushContext(ctx, &git.PushOptions{
		RemoteName: originRemote,
		RemoteURL:  dst.URL,
		Auth:       auth,
		RefSpecs:   mirrorRefSpecs,
		Force:      true,
		Prune:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return PushResult{UpToDate: true}, nil
	}
	if err != nil {
		return PushResult{}, fmt.Errorf("push to %s failed: %w", dst.URL, err)
	}
	return PushResult{}, nil
}
