package filter

import (
	"context"
	"fmt"
	"regexp"

	"glclone/internal/gitlab"
)

// Patterns selects projects by namespace path. It is either an Include or an
// Exclude list, never both. A nil Patterns selects everything.
type Patterns interface {
	matches(path string) bool
}

// Include keeps projects whose path matches at least one expression.
type Include struct {
	Exprs []*regexp.Regexp
}

// Exclude drops projects whose path matches any expression.
type Exclude struct {
	Exprs []*regexp.Regexp
}

func (i Include) matches(path string) bool {
	return anyMatch(i.Exprs, path)
}

func (e Exclude) matches(path string) bool {
	return !anyMatch(e.Exprs, path)
}

func anyMatch(exprs []*regexp.Regexp, path string) bool {
	for _, re := range exprs {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// PatternError reports an expression that does not compile.
type PatternError struct {
	Expr string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Expr, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func compile(exprs []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Expr: expr, Err: err}
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func NewInclude(exprs []string) (Include, error) {
	compiled, err := compile(exprs)
	return Include{Exprs: compiled}, err
}

func NewExclude(exprs []string) (Exclude, error) {
	compiled, err := compile(exprs)
	return Exclude{Exprs: compiled}, err
}

// Matches reports whether the project at path should be mirrored.
func Matches(path string, p Patterns) bool {
	if p == nil {
		return true
	}
	return p.matches(path)
}

// Filter forwards the projects accepted by p. Rejected projects are handed to
// onRejected, which may be nil.
func Filter(ctx context.Context, in <-chan gitlab.Project, p Patterns, onRejected func(gitlab.Project)) <-chan gitlab.Project {
	out := make(chan gitlab.Project)
	go func() {
		defer close(out)
		for project := range in {
			if !Matches(project.PathWithNamespace, p) {
				if onRejected != nil {
					onRejected(project)
				}
				continue
			}
			select {
			case out <- project:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
