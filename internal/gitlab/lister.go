package gitlab

import (
	"context"
	"fmt"

	"glclone/internal/counter"
	"glclone/internal/ext"
	. "glclone/internal/log"
)

const (
	DefaultPerPage           = 100
	MaxPerPage               = 100
	ProjectChannelBufferSize = 20
)

// ProjectSource is the paginated project listing of a GitLab instance.
type ProjectSource interface {
	ListProjects(ctx context.Context, opts ListOptions) ([]Project, int, error)
}

// Lister turns the paginated project listing into a stream of projects.
type Lister struct {
	source         ProjectSource
	opts           ListOptions
	limit          *int
	projectCounter *counter.Counter
}

// NewLister creates a Lister. A nil limit lists every project, a limit of 0
// lists none. projectCounter may be nil.
func NewLister(source ProjectSource, opts ListOptions, limit *int, projectCounter *counter.Counter) *Lister {
	opts.PerPage = min(ext.DefaultValue(opts.PerPage, DefaultPerPage), MaxPerPage)
	return &Lister{source: source, opts: opts, limit: limit, projectCounter: projectCounter}
}

// Stream requests pages lazily and emits each project as soon as its page has
// arrived. A failed page is reported on the error channel and ends the
// listing. Both channels are closed when the listing ends.
func (l *Lister) Stream(ctx context.Context) (<-chan Project, <-chan error) {
	projects := make(chan Project, ProjectChannelBufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(projects)

		emitted := 0
		seen := make(map[int]struct{})
		limitReached := func() bool {
			return l.limit != nil && emitted >= *l.limit
		}

		for page := 1; page != 0; {
			if limitReached() {
				return
			}
			opts := l.opts
			opts.Page = page
			batch, next, err := l.source.ListProjects(ctx, opts)
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("failed to list projects page %d: %w", page, err)
				}
				return
			}
			Log.Debugf("Listed page %d with %d projects", page, len(batch))

			for _, project := range batch {
				if limitReached() {
					return
				}
				// Offset pagination repeats entries when projects are created mid-listing.
				if _, dup := seen[project.ID]; dup {
					continue
				}
				seen[project.ID] = struct{}{}

				select {
				case projects <- project:
					emitted++
					if l.projectCounter != nil {
						l.projectCounter.Inc()
					}
				case <-ctx.Done():
					return
				}
			}
			page = next
		}
	}()

	return projects, errs
}
