// Package gitlabtest provides an in-memory GitLab API for tests.
package gitlabtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"

	"glclone/internal/gitlab"
)

// Server answers the subset of the GitLab v4 API used by glclone.
type Server struct {
	*httptest.Server

	Token string

	mu           sync.Mutex
	failPage     int
	listed       []gitlab.Project
	groups       map[string]*gitlab.Group
	projects     map[string]*gitlab.Project
	nextID       int
	listRequests []url.Values
	creates      map[string]int
}

func NewServer(token string) *Server {
	s := &Server{
		Token:    token,
		groups:   make(map[string]*gitlab.Group),
		projects: make(map[string]*gitlab.Project),
		creates:  make(map[string]int),
		nextID:   1000,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// AddListedProjects appends projects to the /projects listing, assigning ids
// and URLs where missing.
func (s *Server) AddListedProjects(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.nextID++
		s.listed = append(s.listed, s.projectFor(s.nextID, p))
	}
}

// SetCloneURL points the HTTP clone URL of a listed project at cloneURL, for
// example a local repository.
func (s *Server) SetCloneURL(fullPath, cloneURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listed {
		if s.listed[i].PathWithNamespace == fullPath {
			s.listed[i].HTTPURLToRepo = cloneURL
		}
	}
}

// FailListPage makes the listing answer 500 for the given page.
func (s *Server) FailListPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPage = page
}

// AddGroup registers an existing group.
func (s *Server) AddGroup(fullPath string) *gitlab.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGroupLocked(fullPath)
}

func (s *Server) addGroupLocked(fullPath string) *gitlab.Group {
	s.nextID++
	g := &gitlab.Group{ID: s.nextID, Name: path.Base(fullPath), Path: path.Base(fullPath), FullPath: fullPath}
	s.groups[fullPath] = g
	return g
}

func (s *Server) projectFor(id int, fullPath string) gitlab.Project {
	host := strings.TrimPrefix(s.URL, "http://")
	return gitlab.Project{
		ID:                id,
		Name:              path.Base(fullPath),
		Path:              path.Base(fullPath),
		PathWithNamespace: fullPath,
		Visibility:        "private",
		SSHURLToRepo:      fmt.Sprintf("git@%s:%s.git", host, fullPath),
		HTTPURLToRepo:     fmt.Sprintf("%s/%s.git", s.URL, fullPath),
		Namespace:         gitlab.Namespace{FullPath: path.Dir(fullPath)},
	}
}

func (s *Server) HasGroup(fullPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[fullPath]
	return ok
}

func (s *Server) HasProject(fullPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[fullPath]
	return ok
}

// CreateCount is the number of successful POST requests for a group or
// project path.
func (s *Server) CreateCount(fullPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[fullPath]
}

func (s *Server) ListRequests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.listRequests...)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
		return
	}

	p := strings.TrimPrefix(r.URL.EscapedPath(), "/api/v4")
	switch {
	case r.Method == http.MethodGet && p == "/projects":
		s.listProjects(w, r)
	case r.Method == http.MethodPost && p == "/projects":
		s.createProject(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/projects/"):
		s.getProject(w, unescape(strings.TrimPrefix(p, "/projects/")))
	case r.Method == http.MethodPost && p == "/groups":
		s.createGroup(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/groups/"):
		s.getGroup(w, unescape(strings.TrimPrefix(p, "/groups/")))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "404 Not Found"})
	}
}

func unescape(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	s.listRequests = append(s.listRequests, q)
	listed := append([]gitlab.Project(nil), s.listed...)
	failPage := s.failPage
	s.mu.Unlock()

	page, _ := strconv.Atoi(q.Get("page"))
	page = max(page, 1)
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 {
		perPage = 20
	}

	if page == failPage {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "500 Internal Server Error"})
		return
	}

	start := min((page-1)*perPage, len(listed))
	end := min(start+perPage, len(listed))
	if end < len(listed) {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	} else {
		w.Header().Set("X-Next-Page", "")
	}
	writeJSON(w, http.StatusOK, listed[start:end])
}

func (s *Server) getGroup(w http.ResponseWriter, fullPath string) {
	s.mu.Lock()
	g, ok := s.groups[fullPath]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Group Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) groupByID(id int) *gitlab.Group {
	for _, g := range s.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var opts gitlab.CreateGroupOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fullPath := opts.Path
	if opts.ParentID != 0 {
		parent := s.groupByID(opts.ParentID)
		if parent == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Parent Not Found"})
			return
		}
		fullPath = parent.FullPath + "/" + opts.Path
	}
	if _, exists := s.groups[fullPath]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": map[string][]string{"path": {"has already been taken"}}})
		return
	}
	s.creates[fullPath]++
	writeJSON(w, http.StatusCreated, s.addGroupLocked(fullPath))
}

func (s *Server) getProject(w http.ResponseWriter, fullPath string) {
	s.mu.Lock()
	p, ok := s.projects[fullPath]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var opts gitlab.CreateProjectOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	parent := s.groupByID(opts.NamespaceID)
	if parent == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Namespace Not Found"})
		return
	}
	fullPath := parent.FullPath + "/" + opts.Path
	if _, exists := s.projects[fullPath]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": map[string][]string{"path": {"has already been taken"}}})
		return
	}
	s.nextID++
	project := s.projectFor(s.nextID, fullPath)
	project.Namespace = gitlab.Namespace{ID: parent.ID, FullPath: parent.FullPath}
	s.projects[fullPath] = &project
	s.creates[fullPath]++
	writeJSON(w, http.StatusCreated, project)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
