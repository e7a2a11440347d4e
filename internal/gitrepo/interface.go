package gitrepo

import (
	"context"
	"errors"
)

var (
	ErrEmptyRepository   = errors.New("remote repository is empty")
	ErrForeignRepository = errors.New("directory holds a mirror of a different repository")
	ErrNotARepository    = errors.New("directory exists and is not a git repository")
)

type AuthMode int

const (
	AuthHTTPToken AuthMode = iota
	AuthSSH
)

func (m AuthMode) String() string {
	if m == AuthSSH {
		return "ssh"
	}
	return "https"
}

// Remote is a repository URL together with the credentials to reach it.
type Remote struct {
	URL  string
	Auth AuthMode
	// Token is used with AuthHTTPToken. Empty means anonymous.
	Token string
	// SSHKeyPath is used with AuthSSH. Empty means the ssh-agent.
	SSHKeyPath string
	// BasePath is the path the GitLab instance is served under, for example
	// "gitlab" for https://host/gitlab. Empty when served at the root.
	BasePath string
}

type FetchResult struct {
	Cloned   bool
	UpToDate bool
}

type PushResult struct {
	UpToDate bool
}

// Transport is the git layer: it maintains bare mirrors on disk and pushes
// them to another remote.
type Transport interface {
	// CloneOrUpdate creates a mirror of src at localPath, or updates the mirror
	// already there.
	CloneOrUpdate(ctx context.Context, src Remote, localPath string) (FetchResult, error)
	// MirrorPush force-pushes every branch and tag of the mirror at localPath
	// and deletes the ones dst has but the mirror has not.
	MirrorPush(ctx context.Context, localPath string, dst Remote) (PushResult, error)
}
