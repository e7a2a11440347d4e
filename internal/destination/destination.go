package destination

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"glclone/internal/appConfig"
	"glclone/internal/gitlab"
	. "glclone/internal/log"
)

var ErrNameCollision = errors.New("local path already claimed by another project")

// BackupTarget is the project a mirror is pushed to on the backup instance.
type BackupTarget struct {
	GroupPath   string // full path of the parent group, created when missing
	ProjectPath string
	Name        string
	Path        string
	Description string
}

// Destination is where one project is mirrored to.
type Destination struct {
	Project gitlab.Project
	// LocalPath is the mirror directory. Empty when Temporary is set.
	LocalPath string
	// Temporary mirrors only live for the duration of the transfer.
	Temporary bool
	Backup    *BackupTarget
}

func (d Destination) String() string {
	var targets []string
	if d.LocalPath != "" {
		targets = append(targets, d.LocalPath)
	}
	if d.Backup != nil {
		targets = append(targets, d.Backup.ProjectPath)
	}
	return strings.Join(targets, " + ")
}

// BackupAPI is the part of the GitLab API needed to prepare backup projects.
type BackupAPI interface {
	GetGroup(ctx context.Context, fullPath string) (*gitlab.Group, error)
	CreateGroup(ctx context.Context, opts gitlab.CreateGroupOptions) (*gitlab.Group, error)
	GetProject(ctx context.Context, fullPath string) (*gitlab.Project, error)
	CreateProject(ctx context.Context, opts gitlab.CreateProjectOptions) (*gitlab.Project, error)
}

// Resolver maps projects to destinations and prepares backup projects.
type Resolver struct {
	root             string
	disableHierarchy bool
	backup           *appConfig.BackupConfig
	api              BackupAPI

	claimsMu sync.Mutex
	claims   map[string]string

	groups   singleflight.Group
	groupsMu sync.Mutex
	groupIDs map[string]int
}

// NewResolver creates a Resolver. api may be nil when params has no backup.
func NewResolver(params *appConfig.CloneParams, api BackupAPI) *Resolver {
	return &Resolver{
		root:             params.Destination,
		disableHierarchy: params.DisableHierarchy,
		backup:           params.Backup,
		api:              api,
		claims:           make(map[string]string),
		groupIDs:         make(map[string]int),
	}
}

// Resolve computes the destination of project without any I/O. The first
// project to claim a local path keeps it; later ones get ErrNameCollision.
func (r *Resolver) Resolve(project gitlab.Project) (Destination, error) {
	dest := Destination{Project: project}

	if r.root != "" {
		rel := project.PathWithNamespace
		if r.disableHierarchy {
			rel = project.Path
		}
		localPath := filepath.Join(r.root, filepath.FromSlash(rel))
		if err := r.claim(localPath, project.PathWithNamespace); err != nil {
			return dest, err
		}
		dest.LocalPath = localPath
	} else if r.backup != nil {
		dest.Temporary = true
	}

	if r.backup != nil {
		projectPath := r.backup.Group + "/" + project.PathWithNamespace
		dest.Backup = &BackupTarget{
			GroupPath:   path.Dir(projectPath),
			ProjectPath: projectPath,
			Name:        project.Name,
			Path:        project.Path,
			Description: project.Description,
		}
	}
	return dest, nil
}

func (r *Resolver) claim(localPath, projectPath string) error {
	r.claimsMu.Lock()
	defer r.claimsMu.Unlock()
	key := strings.ToLower(localPath)
	if owner, taken := r.claims[key]; taken && owner != projectPath {
		return fmt.Errorf("%w: %s is used by %s", ErrNameCollision, localPath, owner)
	}
	r.claims[key] = projectPath
	return nil
}

// EnsureBackup makes sure the backup project and every group above it exist
// below the configured backup group. The backup group itself must exist.
func (r *Resolver) EnsureBackup(ctx context.Context, target BackupTarget) (*gitlab.Project, error) {
	if r.api == nil {
		return nil, errors.New("no backup instance configured")
	}
	namespaceID, err := r.ensureGroup(ctx, target.GroupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare backup group %s: %w", target.GroupPath, err)
	}

	project, err := r.api.GetProject(ctx, target.ProjectPath)
	if err == nil {
		return project, nil
	}
	if !gitlab.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up backup project %s: %w", target.ProjectPath, err)
	}

	Log.Infof("Creating backup project %s", target.ProjectPath)
	project, err = r.api.CreateProject(ctx, gitlab.CreateProjectOptions{
		Name:        target.Name,
		Path:        target.Path,
		NamespaceID: namespaceID,
		Visibility:  "private",
		Description: target.Description,
	})
	if gitlab.IsAlreadyTaken(err) {
		project, err = r.api.GetProject(ctx, target.ProjectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create backup project %s: %w", target.ProjectPath, err)
	}
	return project, nil
}

func (r *Resolver) cachedGroupID(fullPath string) (int, bool) {
	r.groupsMu.Lock()
	defer r.groupsMu.Unlock()
	id, ok := r.groupIDs[fullPath]
	return id, ok
}

// ensureGroup returns the id of the group at fullPath, creating it and its
// missing parents. Concurrent calls for the same path share one lookup.
func (r *Resolver) ensureGroup(ctx context.Context, fullPath string) (int, error) {
	if id, ok := r.cachedGroupID(fullPath); ok {
		return id, nil
	}

	id, err, _ := r.groups.Do(fullPath, func() (any, error) {
		group, err := r.api.GetGroup(ctx, fullPath)
		if err != nil && !gitlab.IsNotFound(err) {
			return 0, err
		}
		if err != nil {
			if fullPath == r.backup.Group || !strings.Contains(fullPath, "/") {
				return 0, fmt.Errorf("backup group %s does not exist: %w", fullPath, err)
			}
			group, err = r.createGroup(ctx, fullPath)
			if err != nil {
				return 0, err
			}
		}

		r.groupsMu.Lock()
		r.groupIDs[fullPath] = group.ID
		r.groupsMu.Unlock()
		return group.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return id.(int), nil
}

func (r *Resolver) createGroup(ctx context.Context, fullPath string) (*gitlab.Group, error) {
	parentID, err := r.ensureGroup(ctx, path.Dir(fullPath))
	if err != nil {
		return nil, err
	}

	name := path.Base(fullPath)
	Log.Infof("Creating backup group %s", fullPath)
	group, err := r.api.CreateGroup(ctx, gitlab.CreateGroupOptions{Name: name, Path: name, ParentID: parentID, Visibility: "private"})
	if gitlab.IsAlreadyTaken(err) {
		group, err = r.api.GetGroup(ctx, fullPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group %s: %w", fullPath, err)
	}
	return group, nil
}
