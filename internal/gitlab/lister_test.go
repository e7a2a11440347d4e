package gitlab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"glclone/internal/counter"
)

// fakeSource serves pages of sequentially numbered projects.
type fakeSource struct {
	mu       sync.Mutex
	total    int
	perPage  int
	failPage int
	requests []ListOptions
}

func (f *fakeSource) ListProjects(_ context.Context, opts ListOptions) ([]Project, int, error) {
	f.mu.Lock()
	f.requests = append(f.requests, opts)
	f.mu.Unlock()

	if opts.Page == f.failPage {
		return nil, 0, errors.New("boom")
	}
	var page []Project
	start := (opts.Page - 1) * f.perPage
	for i := start; i < min(start+f.perPage, f.total); i++ {
		page = append(page, Project{ID: i + 1, PathWithNamespace: fmt.Sprintf("g/p%d", i+1)})
	}
	next := opts.Page + 1
	if start+f.perPage >= f.total {
		next = 0
	}
	return page, next, nil
}

func (f *fakeSource) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// drain streams every project of lister and returns their paths and the
// listing error.
func drain(t *testing.T, lister *Lister) ([]string, error) {
	t.Helper()
	projects, errs := lister.Stream(context.Background())
	var paths []string
	for p := range projects {
		paths = append(paths, p.PathWithNamespace)
	}
	return paths, <-errs
}

func intPtr(i int) *int { return &i }

func TestLister_Limit(t *testing.T) {
	tests := []struct {
		name          string
		total         int
		limit         *int
		expectedCount int
		expectedPages int
	}{
		{"no limit lists every page", 7, nil, 7, 3},
		{"limit inside first page", 7, intPtr(2), 2, 1},
		{"limit spans pages", 7, intPtr(4), 4, 2},
		{"limit beyond total", 7, intPtr(50), 7, 3},
		{"limit zero issues no request", 7, intPtr(0), 0, 0},
		{"empty instance", 0, nil, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{total: tt.total, perPage: 3}
			listed := counter.NewCounter()
			lister := NewLister(source, ListOptions{PerPage: 3}, tt.limit, listed)

			paths, err := drain(t, lister)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(paths) != tt.expectedCount {
				t.Errorf("expected %d projects, got %d", tt.expectedCount, len(paths))
			}
			if listed.Count() != tt.expectedCount {
				t.Errorf("expected counter %d, got %d", tt.expectedCount, listed.Count())
			}
			if source.requestCount() != tt.expectedPages {
				t.Errorf("expected %d page requests, got %d", tt.expectedPages, source.requestCount())
			}
		})
	}
}

func TestLister_PageFailureIsFatal(t *testing.T) {
	source := &fakeSource{total: 9, perPage: 3, failPage: 2}
	lister := NewLister(source, ListOptions{PerPage: 3}, nil, nil)

	paths, err := drain(t, lister)
	if err == nil {
		t.Fatal("expected listing error")
	}
	if diff := cmp.Diff([]string{"g/p1", "g/p2", "g/p3"}, paths); diff != "" {
		t.Errorf("projects before the failure (-want +got):\n%s", diff)
	}
	if source.requestCount() != 2 {
		t.Errorf("failed page must not be retried, got %d requests", source.requestCount())
	}
}

func TestLister_PassesScopingAndClampsPageSize(t *testing.T) {
	source := &fakeSource{total: 1, perPage: 100}
	lister := NewLister(source, ListOptions{PerPage: 500, Owned: true, Membership: true}, nil, nil)
	_, _ = drain(t, lister)

	expected := ListOptions{Page: 1, PerPage: MaxPerPage, Owned: true, Membership: true}
	if diff := cmp.Diff(expected, source.requests[0]); diff != "" {
		t.Errorf("request options (-want +got):\n%s", diff)
	}
}

func TestLister_DefaultPageSize(t *testing.T) {
	source := &fakeSource{total: 1, perPage: 100}
	_, _ = drain(t, NewLister(source, ListOptions{}, nil, nil))
	if source.requests[0].PerPage != DefaultPerPage {
		t.Errorf("expected default page size %d, got %d", DefaultPerPage, source.requests[0].PerPage)
	}
}

func TestLister_CancelClosesChannels(t *testing.T) {
	source := &fakeSource{total: 1000, perPage: 10}
	ctx, cancel := context.WithCancel(context.Background())
	projects, errs := NewLister(source, ListOptions{PerPage: 10}, nil, nil).Stream(ctx)

	<-projects
	cancel()
	for range projects {
	}
	if err := <-errs; err != nil {
		t.Errorf("cancellation is not a listing error, got %v", err)
	}
}
