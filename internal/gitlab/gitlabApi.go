package gitlab

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type Namespace struct {
	ID       int    `json:"id"`
	FullPath string `json:"full_path"`
	Kind     string `json:"kind"`
}

// Project is the subset of the GitLab project resource needed for mirroring.
type Project struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	PathWithNamespace string    `json:"path_with_namespace"`
	Description       string    `json:"description"`
	DefaultBranch     string    `json:"default_branch"`
	Visibility        string    `json:"visibility"`
	Archived          bool      `json:"archived"`
	EmptyRepo         bool      `json:"empty_repo"`
	SSHURLToRepo      string    `json:"ssh_url_to_repo"`
	HTTPURLToRepo     string    `json:"http_url_to_repo"`
	WebURL            string    `json:"web_url"`
	Namespace         Namespace `json:"namespace"`
}

type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
}

type ListOptions struct {
	Page       int
	PerPage    int
	Owned      bool
	Membership bool
}

type CreateGroupOptions struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ParentID   int    `json:"parent_id,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

type CreateProjectOptions struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	NamespaceID int    `json:"namespace_id"`
	Visibility  string `json:"visibility,omitempty"`
	Description string `json:"description,omitempty"`
}

// ListProjects returns one page of the projects visible to the token, ordered
// by id. nextPage is 0 on the last page.
func (c *Client) ListProjects(ctx context.Context, opts ListOptions) ([]Project, int, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(max(opts.Page, 1)))
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Owned {
		query.Set("owned", "true")
	}
	if opts.Membership {
		query.Set("membership", "true")
	}
	query.Set("order_by", "id")
	query.Set("sort", "asc")

	projects, header, err := gitlabDo[[]Project](ctx, c, http.MethodGet, "/projects", query, nil)
	if err != nil {
		return nil, 0, err
	}
	return projects, nextPage(header), nil
}

func nextPage(header http.Header) int {
	next, err := strconv.Atoi(header.Get("X-Next-Page"))
	if err != nil {
		return 0
	}
	return next
}

func (c *Client) GetGroup(ctx context.Context, fullPath string) (*Group, error) {
	group, _, err := gitlabDo[*Group](ctx, c, http.MethodGet, "/groups/"+url.PathEscape(fullPath), nil, nil)
	return group, err
}

func (c *Client) CreateGroup(ctx context.Context, opts CreateGroupOptions) (*Group, error) {
	group, _, err := gitlabDo[*Group](ctx, c, http.MethodPost, "/groups", nil, opts)
	return group, err
}

func (c *Client) GetProject(ctx context.Context, fullPath string) (*Project, error) {
	project, _, err := gitlabDo[*Project](ctx, c, http.MethodGet, "/projects/"+url.PathEscape(fullPath), nil, nil)
	return project, err
}

func (c *Client) CreateProject(ctx context.Context, opts CreateProjectOptions) (*Project, error) {
	project, _, err := gitlabDo[*Project](ctx, c, http.MethodPost, "/projects", nil, opts)
	return project, err
}
