package release

import (
	"time"

	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/manifest"
	"github.com/nais/release/pkg/release/rollback"
)

type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultNoop    Result = "noop"
	ResultDryRun  Result = "dry-run"
)

const idFormat = "20060102T150405.000Z"

// NewID returns a release identifier based on the given time.
// Identifiers sort in the order they were created.
func NewID(t time.Time) string {
	return t.UTC().Format(idFormat)
}

// Outcome is what happened to a single application during a release.
type Outcome struct {
	App       string
	Applied   bool
	RolledOut bool
	Verified  bool
	Err       error
	Detail    []string
	Backup    *backup.Record
	Rollback  *rollback.Result
}

// Valid reports whether the outcome respects the order of the release stages.
func (o Outcome) Valid() bool {
	if o.RolledOut && !o.Applied {
		return false
	}
	if o.Verified && !o.RolledOut {
		return false
	}
	return true
}

func (o Outcome) Status() string {
	switch {
	case o.Verified:
		return "verified"
	case o.RolledOut:
		return "rolled out"
	case o.Applied:
		return "applied"
	case o.Err != nil:
		return "failed"
	default:
		return "pending"
	}
}

// Run is the record of one release.
type Run struct {
	ID            string
	CorrelationID string
	Environment   string
	DryRun        bool
	Selected      []manifest.Entry
	Outcomes      []Outcome
	Rollbacks     []rollback.Result
	Reconciled    bool
	Result        Result
	Started       time.Time
	Finished      time.Time
}

// Succeeded is true when every selected application has been verified.
func (r *Run) Succeeded() bool {
	if len(r.Outcomes) != len(r.Selected) {
		return false
	}
	for _, outcome := range r.Outcomes {
		if !outcome.Verified {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not reach verification.
func (r *Run) Failed() []Outcome {
	failed := make([]Outcome, 0)
	for _, outcome := range r.Outcomes {
		if !outcome.Verified {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// Records returns the backup records of every application that got as far as being backed up.
func (r *Run) Records() []backup.Record {
	records := make([]backup.Record, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if outcome.Backup != nil {
			records = append(records, *outcome.Backup)
		}
	}
	return records
}
