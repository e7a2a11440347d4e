package appConfig

import (
	"fmt"

	"glclone/internal/filter"
)

const (
	DefaultChannelBufferLength = 10
	DefaultConcurrencyLimit    = 21
	DefaultConfigFileName      = "glclone.yaml"
)

// GitLabEndpoint is the base URL of a GitLab instance and the token used
// against it.
type GitLabEndpoint struct {
	URL   string
	Token string
}

// BackupConfig describes where mirrors are pushed. It only exists as a whole.
type BackupConfig struct {
	Endpoint GitLabEndpoint
	Group    string
}

// CloneParams is the validated, immutable configuration of one run.
type CloneParams struct {
	Fetch  GitLabEndpoint
	Backup *BackupConfig

	// Destination is the absolute local root directory, "" when mirrors are
	// only pushed to the backup instance.
	Destination string
	Patterns    filter.Patterns

	DryRun           bool
	PerPage          int
	Limit            *int
	ConcurrencyLimit int

	OnlyOwned        bool
	OnlyMembership   bool
	DownloadSSH      bool
	UploadSSH        bool
	DisableHierarchy bool
	SkipArchived     bool

	RateLimitPerSecond int
	SSHKeyPath         string
}

// ConfigError is a problem with the supplied options, detected before any
// network access.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}
