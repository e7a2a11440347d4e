package gitrepo

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// user@host.xz:path/to/repo.git
var scpURLRgx = regexp.MustCompile(`^[\w\-\.]+@[\w\-\.]+:(?P<path>[^/].*)$`)

// repositoryPath reduces a git URL or local path to the repository path it
// names, so that https, ssh and scp forms of the same project compare equal.
// basePath is the relative URL root of http(s) URLs; ssh URLs never carry it.
func repositoryPath(rawURL, basePath string) string {
	raw := strings.TrimSpace(rawURL)
	var p string
	switch {
	case scpURLRgx.MatchString(raw):
		p = scpURLRgx.FindStringSubmatch(raw)[scpURLRgx.SubexpIndex("path")]
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			p = raw
			break
		}
		p = u.Path
		if base := strings.Trim(basePath, "/"); base != "" && (u.Scheme == "http" || u.Scheme == "https") {
			p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), base+"/")
		}
	default:
		if abs, err := filepath.Abs(raw); err == nil {
			raw = abs
		}
		p = filepath.ToSlash(filepath.Clean(raw))
	}

	p = strings.ToLower(strings.Trim(p, "/"))
	return strings.TrimSuffix(p, ".git")
}

// sameRepository reports whether two URLs point at the same repository path.
// Hosts are not compared: the ssh and https endpoints of one GitLab instance
// often differ.
func sameRepository(a, b, basePath string) bool {
	return repositoryPath(a, basePath) == repositoryPath(b, basePath)
}

// urlBasePath returns the path an instance URL is served under, "" for the
// root.
func urlBasePath(instanceURL string) string {
	u, err := url.Parse(instanceURL)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}
