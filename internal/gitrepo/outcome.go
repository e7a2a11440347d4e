package gitrepo

import (
	"fmt"
	"time"
)

type OutcomeKind int

const (
	Transferred OutcomeKind = iota
	Skipped
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Transferred:
		return "transferred"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Stage is the step of a transfer an outcome was decided in.
type Stage string

const (
	StageResolve       Stage = "resolve"
	StagePrepare       Stage = "prepare"
	StageFetch         Stage = "fetch"
	StagePrepareBackup Stage = "prepare-backup"
	StagePush          Stage = "push"
	StageDone          Stage = "done"
)

const (
	ReasonDryRun   = "dry run"
	ReasonArchived = "archived"
	ReasonEmpty    = "empty repository"
	ReasonUpToDate = "up to date"
)

// Outcome is the final result of transferring one project.
type Outcome struct {
	Project     string
	Destination string
	Kind        OutcomeKind
	Stage       Stage
	Reason      string
	Err         error
	// Fetched is set once the local mirror holds the source's refs.
	Fetched  bool
	Pushed   bool
	Duration time.Duration
}

func (o Outcome) Detail() string {
	switch o.Kind {
	case Failed:
		return fmt.Sprintf("%s: %v", o.Stage, o.Err)
	case Skipped:
		return o.Reason
	}
	return ""
}
