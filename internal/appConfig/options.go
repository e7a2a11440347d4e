package appConfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"

	"glclone/internal/filter"
	"glclone/internal/gitlab"
)

// Flag names, shared by the command line and error messages.
const (
	FlagFetchURL         = "fu"
	FlagFetchToken       = "ft"
	FlagBackupURL        = "bu"
	FlagBackupToken      = "bt"
	FlagBackupGroup      = "bg"
	FlagInclude          = "include"
	FlagExclude          = "exclude"
	FlagDestination      = "dst"
	FlagDryRun           = "dry-run"
	FlagObjectsPerPage   = "objects-per-page"
	FlagLimit            = "limit"
	FlagConcurrencyLimit = "concurrency-limit"
	FlagOnlyOwned        = "only-owned"
	FlagOnlyMembership   = "only-membership"
	FlagDownloadSSH      = "download-ssh"
	FlagUploadSSH        = "upload-ssh"
	FlagDisableHierarchy = "disable-hierarchy"
	FlagSkipArchived     = "skip-archived"
	FlagRateLimit        = "rate-limit"
	FlagSSHKey           = "ssh-key"
)

type EndpointOptions struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	TokenEnvVar string `yaml:"tokenEnvVar"` // Environment variable holding the token when Token is empty
}

type BackupOptions struct {
	EndpointOptions `yaml:",inline"`
	Group           string `yaml:"group"`
}

// Options is the unvalidated form of CloneParams, as read from the config
// file and the command line.
type Options struct {
	Fetch            EndpointOptions `yaml:"fetch"`
	Backup           BackupOptions   `yaml:"backup"`
	Include          []string        `yaml:"include"`
	Exclude          []string        `yaml:"exclude"`
	Destination      string          `yaml:"destination"`
	DryRun           bool            `yaml:"dryRun"`
	ObjectsPerPage   int             `yaml:"objectsPerPage"`
	Limit            *int            `yaml:"limit"`
	ConcurrencyLimit int             `yaml:"concurrencyLimit"`
	OnlyOwned        bool            `yaml:"onlyOwned"`
	OnlyMembership   bool            `yaml:"onlyMembership"`
	DownloadSSH      bool            `yaml:"downloadSsh"`
	UploadSSH        bool            `yaml:"uploadSsh"`
	DisableHierarchy bool            `yaml:"disableHierarchy"`
	SkipArchived     bool            `yaml:"skipArchived"`
	RateLimit        int             `yaml:"rateLimitPerSecond"` // 0 is interpreted as no limit
	SSHKey           string          `yaml:"sshKey"`
}

func (e EndpointOptions) RetrieveTokenFromEnv(getenv func(string) string) string {
	if e.TokenEnvVar == "" {
		return ""
	}
	return getenv(e.TokenEnvVar)
}

// ResolveTokens fills empty tokens from their configured environment variables.
func (o *Options) ResolveTokens(getenv func(string) string) {
	if o.Fetch.Token == "" {
		o.Fetch.Token = o.Fetch.RetrieveTokenFromEnv(getenv)
	}
	if o.Backup.Token == "" {
		o.Backup.Token = o.Backup.RetrieveTokenFromEnv(getenv)
	}
}

// Override copies the values of other whose flag was set on the command line.
func (o *Options) Override(other Options, changed func(flag string) bool) {
	set := func(flag string, apply func()) {
		if changed(flag) {
			apply()
		}
	}
	set(FlagFetchURL, func() { o.Fetch.URL = other.Fetch.URL })
	set(FlagFetchToken, func() { o.Fetch.Token = other.Fetch.Token })
	set(FlagBackupURL, func() { o.Backup.URL = other.Backup.URL })
	set(FlagBackupToken, func() { o.Backup.Token = other.Backup.Token })
	set(FlagBackupGroup, func() { o.Backup.Group = other.Backup.Group })
	set(FlagInclude, func() { o.Include = other.Include })
	set(FlagExclude, func() { o.Exclude = other.Exclude })
	set(FlagDestination, func() { o.Destination = other.Destination })
	set(FlagDryRun, func() { o.DryRun = other.DryRun })
	set(FlagObjectsPerPage, func() { o.ObjectsPerPage = other.ObjectsPerPage })
	set(FlagLimit, func() { o.Limit = other.Limit })
	set(FlagConcurrencyLimit, func() { o.ConcurrencyLimit = other.ConcurrencyLimit })
	set(FlagOnlyOwned, func() { o.OnlyOwned = other.OnlyOwned })
	set(FlagOnlyMembership, func() { o.OnlyMembership = other.OnlyMembership })
	set(FlagDownloadSSH, func() { o.DownloadSSH = other.DownloadSSH })
	set(FlagUploadSSH, func() { o.UploadSSH = other.UploadSSH })
	set(FlagDisableHierarchy, func() { o.DisableHierarchy = other.DisableHierarchy })
	set(FlagSkipArchived, func() { o.SkipArchived = other.SkipArchived })
	set(FlagRateLimit, func() { o.RateLimit = other.RateLimit })
	set(FlagSSHKey, func() { o.SSHKey = other.SSHKey })
}

// Build validates the options and produces the parameters of a run.
func (o Options) Build() (*CloneParams, error) {
	fetchURL, err := normaliseURL(FlagFetchURL, o.Fetch.URL)
	if err != nil {
		return nil, err
	}
	if o.Fetch.Token == "" {
		return nil, configError(FlagFetchToken, "a token for the source instance is required")
	}

	backup, err := o.buildBackup()
	if err != nil {
		return nil, err
	}

	patterns, err := buildPatterns(cleanPatterns(o.Include), cleanPatterns(o.Exclude))
	if err != nil {
		return nil, err
	}

	concurrency := o.ConcurrencyLimit
	if concurrency == 0 {
		concurrency = DefaultConcurrencyLimit
	}
	switch {
	case concurrency < 1:
		return nil, configError(FlagConcurrencyLimit, "must be at least 1")
	case o.ObjectsPerPage < 0 || o.ObjectsPerPage > gitlab.MaxPerPage:
		return nil, configError(FlagObjectsPerPage, fmt.Sprintf("must be between 1 and %d", gitlab.MaxPerPage))
	case o.Limit != nil && *o.Limit < 0:
		return nil, configError(FlagLimit, "must not be negative")
	case o.RateLimit < 0:
		return nil, configError(FlagRateLimit, "must not be negative")
	}

	destination := ""
	if o.Destination != "" {
		destination, err = filepath.Abs(o.Destination)
		if err != nil {
			return nil, &ConfigError{Field: FlagDestination, Reason: "cannot resolve path", Err: err}
		}
	}
	if destination == "" && backup == nil && !o.DryRun {
		return nil, configError(FlagDestination, "a destination directory or a backup target is required")
	}

	return &CloneParams{
		Fetch:              GitLabEndpoint{URL: fetchURL, Token: o.Fetch.Token},
		Backup:             backup,
		Destination:        destination,
		Patterns:           patterns,
		DryRun:             o.DryRun,
		PerPage:            o.ObjectsPerPage,
		Limit:              o.Limit,
		ConcurrencyLimit:   concurrency,
		OnlyOwned:          o.OnlyOwned,
		OnlyMembership:     o.OnlyMembership,
		DownloadSSH:        o.DownloadSSH,
		UploadSSH:          o.UploadSSH,
		DisableHierarchy:   o.DisableHierarchy,
		SkipArchived:       o.SkipArchived,
		RateLimitPerSecond: o.RateLimit,
		SSHKeyPath:         o.SSHKey,
	}, nil
}

func (o Options) buildBackup() (*BackupConfig, error) {
	given := map[string]bool{
		FlagBackupURL:   o.Backup.URL != "",
		FlagBackupToken: o.Backup.Token != "",
		FlagBackupGroup: strings.Trim(o.Backup.Group, "/") != "",
	}
	missing := lo.Filter([]string{FlagBackupURL, FlagBackupToken, FlagBackupGroup}, func(flag string, _ int) bool {
		return !given[flag]
	})
	switch len(missing) {
	case 3:
		return nil, nil
	case 0:
	default:
		return nil, configError("backup", fmt.Sprintf("--%s, --%s and --%s must be given together, missing --%s",
			FlagBackupURL, FlagBackupToken, FlagBackupGroup, strings.Join(missing, ", --")))
	}

	backupURL, err := normaliseURL(FlagBackupURL, o.Backup.URL)
	if err != nil {
		return nil, err
	}
	return &BackupConfig{
		Endpoint: GitLabEndpoint{URL: backupURL, Token: o.Backup.Token},
		Group:    strings.Trim(o.Backup.Group, "/"),
	}, nil
}

func cleanPatterns(patterns []string) []string {
	return lo.Compact(lo.Map(patterns, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

func buildPatterns(include, exclude []string) (filter.Patterns, error) {
	switch {
	case len(include) > 0 && len(exclude) > 0:
		return nil, configError(FlagInclude, "--include and --exclude cannot be used together")
	case len(include) > 0:
		p, err := filter.NewInclude(include)
		if err != nil {
			return nil, &ConfigError{Field: FlagInclude, Reason: "pattern does not compile", Err: err}
		}
		return p, nil
	case len(exclude) > 0:
		p, err := filter.NewExclude(exclude)
		if err != nil {
			return nil, &ConfigError{Field: FlagExclude, Reason: "pattern does not compile", Err: err}
		}
		return p, nil
	}
	return nil, nil
}

func normaliseURL(flag, raw string) (string, error) {
	if raw == "" {
		return "", configError(flag, "a GitLab URL is required")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &ConfigError{Field: flag, Reason: "not a valid URL", Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", configError(flag, fmt.Sprintf("%q must be an absolute http or https URL", raw))
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// LoadConfigFile reads the YAML config file. An empty path looks for
// glclone.yaml in the working directory, then in the home directory; a
// missing default file yields empty options.
func LoadConfigFile(configFilePath string) (Options, error) {
	var options Options
	if configFilePath == "" {
		configFilePath = findDefaultConfigFile()
		if configFilePath == "" {
			return options, nil
		}
	}

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return options, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &options); err != nil {
		return options, fmt.Errorf("could not unmarshal config file %s: %w", configFilePath, err)
	}
	return options, nil
}

func findDefaultConfigFile() string {
	candidates := []string{filepath.Join(".", DefaultConfigFileName)}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, DefaultConfigFileName))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		} else if !errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
	return ""
}
