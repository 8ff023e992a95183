package rollback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/metrics"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const DefaultTimeout = 2 * time.Minute

var ErrRollbackFailed = errors.New("rollback failed")

type Action string

const (
	// The snapshot taken before the release was applied again.
	ActionReapplied Action = "reapplied"
	// The application did not exist before the release, and is left as is.
	ActionNone Action = "none"
	// No usable snapshot was taken before the release.
	ActionUnavailable Action = "unavailable"
	ActionFailed      Action = "failed"
)

type Result struct {
	App    string
	Action Action
	Detail []string
	Err    error
}

func (r Result) Message() string {
	switch r.Action {
	case ActionReapplied:
		return "restored from backup"
	case ActionNone:
		return "no rollback action taken"
	case ActionUnavailable:
		return fmt.Sprintf("no backup available: %s", r.Err)
	default:
		return r.Err.Error()
	}
}

type Restorer interface {
	Restore(ctx context.Context, record backup.Record) ([]unstructured.Unstructured, error)
}

type Applier interface {
	Apply(ctx context.Context, logger *log.Entry, resources []unstructured.Unstructured) ([]unstructured.Unstructured, []string, error)
}

type Coordinator struct {
	Backups Restorer
	Applier Applier
	Timeout time.Duration
}

// Rollback restores the pre-release state of every application in records, in order.
// It keeps going when a single application fails, and is not interrupted when ctx is cancelled.
func (c *Coordinator) Rollback(ctx context.Context, logger *log.Entry, records []backup.Record) []Result {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	results := make([]Result, 0, len(records))
	for _, record := range records {
		entryLogger := logger.WithField("app", record.App)
		result := c.rollback(ctx, entryLogger, record)
		metrics.Rollbacks.WithLabelValues(string(result.Action)).Inc()

		switch result.Action {
		case ActionFailed:
			entryLogger.Errorf("Rollback: %s", result.Message())
		case ActionUnavailable:
			entryLogger.Warnf("Rollback: %s", result.Message())
		default:
			entryLogger.Infof("Rollback: %s", result.Message())
		}

		results = append(results, result)
	}

	return results
}

func (c *Coordinator) rollback(ctx context.Context, logger *log.Entry, record backup.Record) Result {
	result := Result{
		App: record.App,
	}

	if record.Err != nil {
		result.Action = ActionUnavailable
		result.Err = record.Err
		return result
	}

	if !record.ExistedBeforeRun {
		result.Action = ActionNone
		return result
	}

	resources, err := c.Backups.Restore(ctx, record)
	if err != nil {
		result.Action = ActionFailed
		result.Err = fmt.Errorf("%w: read snapshot %s: %w", ErrRollbackFailed, record.Key, err)
		return result
	}

	_, result.Detail, err = c.Applier.Apply(ctx, logger, resources)
	if err != nil {
		result.Action = ActionFailed
		result.Err = fmt.Errorf("%w: %w", ErrRollbackFailed, err)
		return result
	}

	result.Action = ActionReapplied
	return result
}

// Failed returns true if any result is a failure.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Action == ActionFailed {
			return true
		}
	}
	return false
}
