package appConfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glclone/internal/filter"
)

func validOptions() Options {
	return Options{
		Fetch:       EndpointOptions{URL: "https://gitlab.example.com/", Token: "src-token"},
		Destination: "/srv/mirrors",
	}
}

func TestBuild_Defaults(t *testing.T) {
	params, err := validOptions().Build()
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com", params.Fetch.URL)
	assert.Equal(t, DefaultConcurrencyLimit, params.ConcurrencyLimit)
	assert.Equal(t, "/srv/mirrors", params.Destination)
	assert.Nil(t, params.Backup)
	assert.Nil(t, params.Patterns)
	assert.Nil(t, params.Limit)
}

func TestBuild_ConfigErrors(t *testing.T) {
	negative := -1
	tests := []struct {
		name   string
		modify func(o *Options)
		field  string
	}{
		{"missing fetch url", func(o *Options) { o.Fetch.URL = "" }, FlagFetchURL},
		{"relative fetch url", func(o *Options) { o.Fetch.URL = "gitlab.example.com" }, FlagFetchURL},
		{"missing fetch token", func(o *Options) { o.Fetch.Token = "" }, FlagFetchToken},
		{"backup url only", func(o *Options) { o.Backup.URL = "https://backup.example.com" }, "backup"},
		{"backup without group", func(o *Options) {
			o.Backup.URL = "https://backup.example.com"
			o.Backup.Token = "t"
		}, "backup"},
		{"include and exclude", func(o *Options) {
			o.Include = []string{"a"}
			o.Exclude = []string{"b"}
		}, FlagInclude},
		{"bad include regex", func(o *Options) { o.Include = []string{"(("} }, FlagInclude},
		{"bad exclude regex", func(o *Options) { o.Exclude = []string{"[z-a]"} }, FlagExclude},
		{"zero-valued concurrency uses default, negative fails", func(o *Options) { o.ConcurrencyLimit = -3 }, FlagConcurrencyLimit},
		{"page size too large", func(o *Options) { o.ObjectsPerPage = 101 }, FlagObjectsPerPage},
		{"negative limit", func(o *Options) { o.Limit = &negative }, FlagLimit},
		{"negative rate", func(o *Options) { o.RateLimit = -1 }, FlagRateLimit},
		{"nowhere to put mirrors", func(o *Options) { o.Destination = "" }, FlagDestination},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.modify(&opts)

			params, err := opts.Build()
			assert.Nil(t, params)
			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.field, configErr.Field)
		})
	}
}

func TestBuild_BackupAllOrNothing(t *testing.T) {
	opts := validOptions()
	opts.Destination = ""
	opts.Backup = BackupOptions{
		EndpointOptions: EndpointOptions{URL: "https://backup.example.com", Token: "dst-token"},
		Group:           "/mirror/",
	}

	params, err := opts.Build()
	require.NoError(t, err)

	expected := &BackupConfig{
		Endpoint: GitLabEndpoint{URL: "https://backup.example.com", Token: "dst-token"},
		Group:    "mirror",
	}
	if diff := cmp.Diff(expected, params.Backup); diff != "" {
		t.Errorf("backup mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, params.Destination)
}

func TestBuild_DryRunNeedsNoDestination(t *testing.T) {
	opts := validOptions()
	opts.Destination = ""
	opts.DryRun = true

	params, err := opts.Build()
	require.NoError(t, err)
	assert.True(t, params.DryRun)
}

func TestBuild_Patterns(t *testing.T) {
	opts := validOptions()
	opts.Exclude = []string{" archive ", "", "^sandbox/"}

	params, err := opts.Build()
	require.NoError(t, err)

	exclude, ok := params.Patterns.(filter.Exclude)
	require.True(t, ok, "expected Exclude, got %T", params.Patterns)
	assert.Len(t, exclude.Exprs, 2)
	assert.False(t, filter.Matches("team/archive", params.Patterns))
	assert.True(t, filter.Matches("team/tool", params.Patterns))
}

func TestResolveTokens(t *testing.T) {
	opts := Options{
		Fetch:  EndpointOptions{TokenEnvVar: "SRC_TOKEN"},
		Backup: BackupOptions{EndpointOptions: EndpointOptions{Token: "explicit", TokenEnvVar: "DST_TOKEN"}},
	}
	env := map[string]string{"SRC_TOKEN": "from-env", "DST_TOKEN": "ignored"}
	opts.ResolveTokens(func(k string) string { return env[k] })

	assert.Equal(t, "from-env", opts.Fetch.Token)
	assert.Equal(t, "explicit", opts.Backup.Token)
}

func TestOverride_OnlyChangedFlags(t *testing.T) {
	limit := 5
	fromFile := Options{
		Fetch:            EndpointOptions{URL: "https://file.example.com", Token: "file-token"},
		Destination:      "/from/file",
		ConcurrencyLimit: 4,
	}
	fromFlags := Options{
		Fetch:            EndpointOptions{URL: "https://flag.example.com"},
		Destination:      "/from/flag",
		ConcurrencyLimit: 21,
		Limit:            &limit,
	}
	changed := map[string]bool{FlagFetchURL: true, FlagLimit: true}

	fromFile.Override(fromFlags, func(flag string) bool { return changed[flag] })

	assert.Equal(t, "https://flag.example.com", fromFile.Fetch.URL)
	assert.Equal(t, "file-token", fromFile.Fetch.Token)
	assert.Equal(t, "/from/file", fromFile.Destination)
	assert.Equal(t, 4, fromFile.ConcurrencyLimit)
	require.NotNil(t, fromFile.Limit)
	assert.Equal(t, 5, *fromFile.Limit)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glclone.yaml")
	content := `
fetch:
  url: https://gitlab.example.com
  tokenEnvVar: GITLAB_TOKEN
backup:
  url: https://backup.example.com
  token: dst
  group: mirrors
exclude:
  - archive
destination: /srv/mirrors
concurrencyLimit: 8
limit: 0
skipArchived: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com", opts.Fetch.URL)
	assert.Equal(t, "GITLAB_TOKEN", opts.Fetch.TokenEnvVar)
	assert.Equal(t, "mirrors", opts.Backup.Group)
	assert.Equal(t, "dst", opts.Backup.Token)
	assert.Equal(t, []string{"archive"}, opts.Exclude)
	assert.Equal(t, 8, opts.ConcurrencyLimit)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, 0, *opts.Limit)
	assert.True(t, opts.SkipArchived)
}

func TestLoadConfigFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glclone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destinaton: /typo\n"), 0o644))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}
