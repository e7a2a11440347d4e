package gitrepo

import "testing"

func TestSameRepository(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		basePath string
		expected bool
	}{
		{"https and scp", "https://gitlab.example.com/team/a.git", "git@gitlab.example.com:team/a.git", "", true},
		{"ssh url and scp", "ssh://git@gitlab.example.com:2222/team/a.git", "git@ssh.gitlab.example.com:team/a.git", "", true},
		{"case and suffix", "https://gitlab.example.com/Team/A", "https://gitlab.example.com/team/a.git/", "", true},
		{"different namespace", "https://gitlab.example.com/team/a.git", "https://gitlab.example.com/other/a.git", "", false},
		{"different project", "git@gitlab.example.com:team/a.git", "git@gitlab.example.com:team/b.git", "", false},
		{"local paths", "/tmp/src/../src/repo", "/tmp/src/repo", "", true},
		{"file url and path", "file:///tmp/src/repo", "/tmp/src/repo", "", true},
		{"relative url root and scp", "https://h.example.com/gitlab/team/a.git", "git@h.example.com:team/a.git", "gitlab", true},
		{"relative url root and ssh url", "ssh://git@h.example.com/team/a.git", "https://h.example.com/gitlab/team/a.git", "/gitlab/", true},
		{"relative url root, other project", "https://h.example.com/gitlab/team/a.git", "git@h.example.com:team/b.git", "gitlab", false},
		{"group named like the root over ssh", "git@h.example.com:gitlab/a.git", "https://h.example.com/gitlab/a.git", "gitlab", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameRepository(tt.a, tt.b, tt.basePath); got != tt.expected {
				t.Errorf("sameRepository(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestURLBasePath(t *testing.T) {
	tests := map[string]string{
		"https://gitlab.example.com":        "",
		"https://gitlab.example.com/":       "",
		"https://example.com/gitlab":        "gitlab",
		"https://example.com/tools/gitlab/": "tools/gitlab",
	}
	for instanceURL, expected := range tests {
		if got := urlBasePath(instanceURL); got != expected {
			t.Errorf("urlBasePath(%q) = %q, expected %q", instanceURL, got, expected)
		}
	}
}
