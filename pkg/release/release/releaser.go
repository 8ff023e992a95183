package release

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/manifest"
	"github.com/nais/release/pkg/release/metrics"
	"github.com/nais/release/pkg/release/rollback"
	"github.com/nais/release/pkg/release/verify"
	"github.com/nais/release/pkg/telemetry"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	stageBackup   = "backup"
	stageApply    = "apply"
	stageRollout  = "rollout"
	stageVerify   = "verify"
	stageComplete = "complete"
	stageSkipped  = "skipped"
)

type ResourceLoader interface {
	Load(entry manifest.Entry) ([]unstructured.Unstructured, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Differ interface {
	Diff(ctx context.Context, resources []unstructured.Unstructured) ([]string, error)
}

type Backupper interface {
	Backup(ctx context.Context, logger *log.Entry, app string, resources []unstructured.Unstructured, timestamp string) backup.Record
}

type Applier interface {
	Apply(ctx context.Context, logger *log.Entry, resources []unstructured.Unstructured) ([]unstructured.Unstructured, []string, error)
}

type RolloutMonitor interface {
	WaitForRollout(ctx context.Context, logger *log.Entry, resources []unstructured.Unstructured) error
}

type Verifier interface {
	Verify(ctx context.Context, logger *log.Entry, app string, resources []unstructured.Unstructured) (*verify.Result, error)
}

type Rollbacker interface {
	Rollback(ctx context.Context, logger *log.Entry, records []backup.Record) []rollback.Result
}

// Releaser promotes every application flagged as ready in a manifest onto the cluster.
type Releaser struct {
	ID            string
	CorrelationID string
	Environment   string
	DryRun        bool
	Parallelism   int

	Store      manifest.Store
	Loader     ResourceLoader
	Cluster    Pinger
	Differ     Differ
	Backups    Backupper
	Applier    Applier
	Monitor    RolloutMonitor
	Verifier   Verifier
	Rollbacker Rollbacker
	Logger     *log.Entry
}

func (r *Releaser) logger() *log.Entry {
	logger := r.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return logger.WithFields(log.Fields{
		"release_id":     r.ID,
		"correlation_id": r.CorrelationID,
	})
}

// Run performs a complete release. The returned Run is never nil, and describes how far
// the release got even when an error is returned.
func (r *Releaser) Run(ctx context.Context) (run *Run, err error) {
	run = &Run{
		ID:            r.ID,
		CorrelationID: r.CorrelationID,
		Environment:   r.Environment,
		DryRun:        r.DryRun,
		Selected:      make([]manifest.Entry, 0),
		Outcomes:      make([]Outcome, 0),
		Rollbacks:     make([]rollback.Result, 0),
		Started:       time.Now(),
	}

	ctx, span := telemetry.StartSpan(ctx, "release",
		telemetry.AttributeReleaseID.String(r.ID),
		telemetry.AttributeCorrelationID.String(r.CorrelationID),
		telemetry.AttributeEnvironment.String(r.Environment),
	)

	defer func() {
		run.Finished = time.Now()
		if len(run.Result) > 0 {
			metrics.Runs.WithLabelValues(string(run.Result)).Inc()
		}
		telemetry.EndSpan(span, err)
	}()

	logger := r.logger()

	if err = ctx.Err(); err != nil {
		return run, fmt.Errorf("%w: before loading manifest: %w", ErrCancelled, err)
	}

	m, err := r.Store.Load(ctx)
	if err != nil {
		return run, interrupted(ctx, err)
	}

	run.Selected = manifest.Select(m.Entries)
	if len(run.Selected) == 0 {
		logger.Warnf("No applications in the %s manifest are ready for release", r.Environment)
		run.Result = ResultNoop
		return run, nil
	}

	logger.Infof("Applications ready for release: %s", strings.Join(manifest.Apps(run.Selected), ", "))

	resources := make([][]unstructured.Unstructured, len(run.Selected))
	for i, entry := range run.Selected {
		resources[i], err = r.Loader.Load(entry)
		if err != nil {
			return run, err
		}
	}

	if r.DryRun {
		run.Outcomes = r.dryRun(ctx, logger, run.Selected, resources)
		run.Result = ResultDryRun
		return run, nil
	}

	if err = r.Cluster.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return run, interrupted(ctx, err)
		}
		return run, fmt.Errorf("%w: %w", ErrClusterUnreachable, err)
	}

	run.Outcomes = r.releaseAll(ctx, run, resources)

	if run.Succeeded() {
		run.Result = ResultSuccess
		return run, r.reconcile(ctx, logger, run, m)
	}

	run.Result = ResultFailure
	return run, r.rollback(ctx, logger, run)
}

// releaseAll processes entries with bounded concurrency. Outcomes are indexed by manifest order.
func (r *Releaser) releaseAll(ctx context.Context, run *Run, resources [][]unstructured.Unstructured) []Outcome {
	outcomes := make([]Outcome, len(run.Selected))

	parallelism := r.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	g := &errgroup.Group{}
	g.SetLimit(parallelism)

	for i := range run.Selected {
		entry := run.Selected[i]
		if ctx.Err() != nil {
			outcomes[i] = cancelled(entry.App, ctx.Err())
			continue
		}
		g.Go(func() error {
			outcomes[i] = r.release(ctx, run.ID, entry, resources[i])
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

// interrupted wraps err with ErrCancelled if ctx has been cancelled.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}

func cancelled(app string, err error) Outcome {
	metrics.Entries.WithLabelValues(stageSkipped, "cancelled").Inc()
	return Outcome{
		App: app,
		Err: fmt.Errorf("%w: not started: %w", ErrCancelled, err),
	}
}

// release takes a single application through backup, apply, rollout and verification.
func (r *Releaser) release(ctx context.Context, id string, entry manifest.Entry, resources []unstructured.Unstructured) (outcome Outcome) {
	logger := r.logger().WithField("app", entry.App)
	outcome = Outcome{
		App:    entry.App,
		Detail: make([]string, 0),
	}

	if ctx.Err() != nil {
		return cancelled(entry.App, ctx.Err())
	}

	ctx, span := telemetry.StartSpan(ctx, "release entry", telemetry.AttributeApp.String(entry.App))
	stage := stageBackup
	defer func() {
		result := "ok"
		if outcome.Err != nil {
			result = "failed"
			logger.Errorf("Release of %s failed during %s: %s", entry.App, stage, outcome.Err)
		}
		metrics.Entries.WithLabelValues(stage, result).Inc()
		telemetry.EndSpan(span, outcome.Err)
	}()

	// classify marks errors caused by cancellation, so that they can be told apart from real failures.
	classify := func(kind error, err error) error {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrCancelled, stage, err)
		}
		if kind != nil {
			return fmt.Errorf("%w: %w", kind, err)
		}
		return err
	}

	start := time.Now()
	record := r.Backups.Backup(ctx, logger, entry.App, resources, id)
	outcome.Backup = &record
	metrics.ObserveStage(stage, start)

	stage = stageApply
	start = time.Now()
	applied, detail, err := r.Applier.Apply(ctx, logger, resources)
	outcome.Detail = append(outcome.Detail, detail...)
	metrics.ObserveStage(stage, start)
	if err != nil {
		outcome.Err = classify(ErrApplyRejected, err)
		return outcome
	}
	outcome.Applied = true

	stage = stageRollout
	start = time.Now()
	err = r.Monitor.WaitForRollout(ctx, logger, applied)
	metrics.ObserveStage(stage, start)
	if err != nil {
		outcome.Err = classify(nil, err)
		return outcome
	}
	outcome.RolledOut = true

	stage = stageVerify
	start = time.Now()
	result, err := r.Verifier.Verify(ctx, logger, entry.App, applied)
	metrics.ObserveStage(stage, start)
	if err != nil {
		outcome.Err = classify(nil, err)
		return outcome
	}
	outcome.Verified = true
	stage = stageComplete

	if result != nil {
		outcome.Detail = append(outcome.Detail, fmt.Sprintf("%d pods running", result.Running))
	}
	logger.Infof("Release of %s verified", entry.App)

	return outcome
}

// reconcile clears the readiness flags of the released applications and writes the manifest back.
// The manifest is written even if ctx has been cancelled, as the release itself has already succeeded.
func (r *Releaser) reconcile(ctx context.Context, logger *log.Entry, run *Run, m *manifest.Manifest) error {
	updated, changed := manifest.ClearFlags(m, manifest.Apps(run.Selected))
	if !changed {
		logger.Infof("Readiness flags already cleared; manifest left as is")
		return nil
	}

	err := r.Store.Persist(context.WithoutCancel(ctx), updated)
	if err != nil {
		logger.Errorf("All applications were released, but the manifest could not be updated. Clear the readiness flags by hand to avoid releasing them again.")
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	run.Reconciled = true
	logger.Infof("Cleared readiness flags for %s", strings.Join(manifest.Apps(run.Selected), ", "))

	return nil
}

func (r *Releaser) rollback(ctx context.Context, logger *log.Entry, run *Run) error {
	failed := run.Failed()
	apps := make([]string, len(failed))
	for i := range failed {
		apps[i] = failed[i].App
	}

	err := fmt.Errorf("%w: %d of %d applications failed: %s", ErrReleaseFailed, len(failed), len(run.Outcomes), strings.Join(apps, ", "))

	records := run.Records()
	if len(records) == 0 {
		logger.Warnf("Nothing to roll back")
		return err
	}

	logger.Warnf("Rolling back %d applications", len(records))
	run.Rollbacks = r.Rollbacker.Rollback(ctx, logger, records)

	byApp := make(map[string]*rollback.Result, len(run.Rollbacks))
	for i := range run.Rollbacks {
		byApp[run.Rollbacks[i].App] = &run.Rollbacks[i]
	}
	for i := range run.Outcomes {
		run.Outcomes[i].Rollback = byApp[run.Outcomes[i].App]
	}

	if rollback.Failed(run.Rollbacks) {
		errs := make([]error, 0)
		for _, result := range run.Rollbacks {
			if result.Err != nil && result.Action == rollback.ActionFailed {
				errs = append(errs, fmt.Errorf("%s: %w", result.App, result.Err))
			}
		}
		return fmt.Errorf("%w; %w", err, errors.Join(errs...))
	}

	return err
}

func (r *Releaser) dryRun(ctx context.Context, logger *log.Entry, selected []manifest.Entry, resources [][]unstructured.Unstructured) []Outcome {
	outcomes := make([]Outcome, len(selected))
	for i := range selected {
		outcomes[i] = Outcome{
			App:    selected[i].App,
			Detail: make([]string, 0),
		}
	}

	if err := r.Cluster.Ping(ctx); err != nil {
		logger.Warnf("Cluster unreachable, unable to compare with live state: %s", err)
		return outcomes
	}

	for i := range selected {
		diff, err := r.Differ.Diff(ctx, resources[i])
		if err != nil {
			outcomes[i].Err = err
			logger.WithField("app", selected[i].App).Warnf("Unable to compare with live state: %s", err)
			continue
		}
		outcomes[i].Detail = diff
	}

	return outcomes
}
