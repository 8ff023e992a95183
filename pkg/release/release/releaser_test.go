package release_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/manifest"
	"github.com/nais/release/pkg/release/release"
	"github.com/nais/release/pkg/release/resource"
	"github.com/nais/release/pkg/release/rollback"
	"github.com/nais/release/pkg/release/strategy"
	"github.com/nais/release/pkg/release/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const releaseID = "20261018T101500.000Z"

const twoApps = `[
  {
    "app": "orders",
    "resourceFile": "orders.yaml",
    "version": "1.4.2",
    "readytodeploy": 1
  },
  {
    "app": "billing",
    "resourceFile": "billing.yaml",
    "version": "0.9.0",
    "readytodeploy": 1
  }
]
`

type rig struct {
	path       string
	loader     *release.MockResourceLoader
	cluster    *release.MockPinger
	differ     *release.MockDiffer
	backups    *release.MockBackupper
	applier    *release.MockApplier
	monitor    *release.MockRolloutMonitor
	verifier   *release.MockVerifier
	rollbacker *release.MockRollbacker
	releaser   *release.Releaser
}

func newRig(t *testing.T, document string) *rig {
	path := filepath.Join(t.TempDir(), "release.json")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	r := &rig{
		path:       path,
		loader:     release.NewMockResourceLoader(t),
		cluster:    release.NewMockPinger(t),
		differ:     release.NewMockDiffer(t),
		backups:    release.NewMockBackupper(t),
		applier:    release.NewMockApplier(t),
		monitor:    release.NewMockRolloutMonitor(t),
		verifier:   release.NewMockVerifier(t),
		rollbacker: release.NewMockRollbacker(t),
	}
	r.releaser = &release.Releaser{
		ID:            releaseID,
		CorrelationID: "5f0c6a4e-3f0b-4a4f-9d57-8b1c2d3e4f50",
		Environment:   "prod",
		Parallelism:   1,
		Store:         manifest.NewFileStore(path),
		Loader:        r.loader,
		Cluster:       r.cluster,
		Differ:        r.differ,
		Backups:       r.backups,
		Applier:       r.applier,
		Monitor:       r.monitor,
		Verifier:      r.verifier,
		Rollbacker:    r.rollbacker,
	}
	return r
}

func (r *rig) manifest(t *testing.T) string {
	data, err := os.ReadFile(r.path)
	require.NoError(t, err)
	return string(data)
}

func deployment(app string) []unstructured.Unstructured {
	u := unstructured.Unstructured{}
	u.SetAPIVersion("apps/v1")
	u.SetKind("Deployment")
	u.SetName(app)
	u.SetNamespace("shop")
	return []unstructured.Unstructured{u}
}

// expectStages sets up a release of app that succeeds up to, but not including, failAt.
func (r *rig) expectStages(app string, existed bool, failAt string, err error) {
	resources := deployment(app)
	r.loader.On("Load", mock.MatchedBy(func(e manifest.Entry) bool { return e.App == app })).Return(resources, nil).Once()
	r.backups.On("Backup", mock.Anything, mock.Anything, app, resources, releaseID).Return(backup.Record{
		App:              app,
		Timestamp:        releaseID,
		Key:              backup.Key(app, releaseID),
		ExistedBeforeRun: existed,
	}).Once()

	if failAt == "apply" {
		r.applier.On("Apply", mock.Anything, mock.Anything, resources).Return(nil, []string{fmt.Sprintf("deployment.apps/%s rejected: %s", app, err)}, err).Once()
		return
	}
	r.applier.On("Apply", mock.Anything, mock.Anything, resources).Return(resources, []string{fmt.Sprintf("deployment.apps/%s configured", app)}, nil).Once()

	if failAt == "rollout" {
		r.monitor.On("WaitForRollout", mock.Anything, mock.Anything, resources).Return(err).Once()
		return
	}
	r.monitor.On("WaitForRollout", mock.Anything, mock.Anything, resources).Return(nil).Once()

	if failAt == "verify" {
		r.verifier.On("Verify", mock.Anything, mock.Anything, app, resources).Return(&verify.Result{}, err).Once()
		return
	}
	r.verifier.On("Verify", mock.Anything, mock.Anything, app, resources).Return(&verify.Result{Running: 2}, nil).Once()
}

func assertValid(t *testing.T, run *release.Run) {
	for _, outcome := range run.Outcomes {
		assert.True(t, outcome.Valid(), "outcome for %s is inconsistent: %+v", outcome.App, outcome)
	}
}

func TestOnlyReadyEntriesAreReleased(t *testing.T) {
	r := newRig(t, `[
  {"app": "orders", "resourceFile": "orders.yaml", "readytodeploy": 1},
  {"app": "billing", "resourceFile": "billing.yaml", "readytodeploy": 0}
]
`)
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", true, "", nil)

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, manifest.Apps(run.Selected))
	assert.Equal(t, release.ResultSuccess, run.Result)
	assert.Equal(t, `[
  {
    "app": "orders",
    "resourceFile": "orders.yaml",
    "readytodeploy": 0
  },
  {
    "app": "billing",
    "resourceFile": "billing.yaml",
    "readytodeploy": 0
  }
]
`, r.manifest(t))
}

func TestNoReadyEntriesHasNoSideEffects(t *testing.T) {
	document := `[
  {"app": "orders", "resourceFile": "orders.yaml", "readytodeploy": 0},
  {"app": "billing", "resourceFile": "billing.yaml", "readytodeploy": false}
]
`
	r := newRig(t, document)

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, release.ResultNoop, run.Result)
	assert.Empty(t, run.Outcomes)
	assert.True(t, run.Succeeded())
	assert.Equal(t, document, r.manifest(t))
	assert.Equal(t, release.ExitSuccess, release.ErrorExitCode(err))

	// mocks fail the test on any unexpected call
}

func TestSuccessfulReleaseClearsFlags(t *testing.T) {
	r := newRig(t, twoApps)
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", true, "", nil)
	r.expectStages("billing", false, "", nil)

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	assertValid(t, run)

	assert.True(t, run.Succeeded())
	assert.True(t, run.Reconciled)
	assert.Equal(t, release.ResultSuccess, run.Result)
	require.Len(t, run.Outcomes, 2)
	assert.Equal(t, "orders", run.Outcomes[0].App)
	assert.True(t, run.Outcomes[0].Verified)
	assert.Equal(t, []string{"deployment.apps/orders configured", "2 pods running"}, run.Outcomes[0].Detail)
	assert.Empty(t, run.Rollbacks)

	m, err := manifest.NewFileStore(r.path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, manifest.Select(m.Entries))
	assert.Contains(t, r.manifest(t), `"version": "1.4.2"`)
}

func TestRolloutTimeoutRollsBack(t *testing.T) {
	r := newRig(t, twoApps)
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", true, "", nil)
	r.expectStages("billing", true, "rollout", fmt.Errorf("deployment.apps/billing: %w", strategy.ErrRolloutTimeout))

	r.rollbacker.On("Rollback", mock.Anything, mock.Anything, mock.MatchedBy(func(records []backup.Record) bool {
		return len(records) == 2 && records[0].App == "orders" && records[1].App == "billing"
	})).Return([]rollback.Result{
		{App: "orders", Action: rollback.ActionReapplied},
		{App: "billing", Action: rollback.ActionReapplied},
	}).Once()

	run, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, release.ErrReleaseFailed)
	assert.Equal(t, release.ExitReleaseFailed, release.ErrorExitCode(err))
	assertValid(t, run)

	assert.Equal(t, release.ResultFailure, run.Result)
	assert.False(t, run.Reconciled)

	billing := run.Outcomes[1]
	assert.True(t, billing.Applied)
	assert.False(t, billing.RolledOut)
	assert.ErrorIs(t, billing.Err, strategy.ErrRolloutTimeout)
	require.NotNil(t, billing.Rollback)
	assert.Equal(t, rollback.ActionReapplied, billing.Rollback.Action)

	// mixed success never clears any flag
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestRollbackWithoutPriorDeploymentIsReported(t *testing.T) {
	r := newRig(t, twoApps)
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", false, "rollout", fmt.Errorf("deployment.apps/orders: %w", strategy.ErrRolloutFailed))
	r.expectStages("billing", false, "", nil)

	// A rollback coordinator that would fail the test on any restore or reapply.
	r.releaser.Rollbacker = &rollback.Coordinator{
		Backups: nil,
		Applier: release.NewMockApplier(t),
	}

	run, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, release.ErrReleaseFailed)
	assert.NotErrorIs(t, err, rollback.ErrRollbackFailed)
	assertValid(t, run)

	require.Len(t, run.Rollbacks, 2)
	for _, outcome := range run.Outcomes {
		require.NotNil(t, outcome.Rollback)
		assert.Equal(t, rollback.ActionNone, outcome.Rollback.Action)
		assert.Equal(t, "no rollback action taken", outcome.Rollback.Message())
	}
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestApplyRejectedAndVerificationFailure(t *testing.T) {
	r := newRig(t, twoApps)
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", true, "apply", errors.New(`admission webhook "validate" denied the request`))
	r.expectStages("billing", true, "verify", fmt.Errorf("%w: no running pods", verify.ErrVerificationFailed))
	r.rollbacker.On("Rollback", mock.Anything, mock.Anything, mock.Anything).Return([]rollback.Result{
		{App: "orders", Action: rollback.ActionReapplied},
		{App: "billing", Action: rollback.ActionFailed, Err: fmt.Errorf("%w: snapshot missing", rollback.ErrRollbackFailed)},
	}).Once()

	run, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, release.ErrReleaseFailed)
	assert.ErrorIs(t, err, rollback.ErrRollbackFailed)
	assert.Equal(t, release.ExitRollbackFailed, release.ErrorExitCode(err))
	assertValid(t, run)

	orders := run.Outcomes[0]
	assert.False(t, orders.Applied)
	assert.ErrorIs(t, orders.Err, release.ErrApplyRejected)
	assert.Equal(t, []string{`deployment.apps/orders rejected: admission webhook "validate" denied the request`}, orders.Detail)

	billing := run.Outcomes[1]
	assert.True(t, billing.RolledOut)
	assert.False(t, billing.Verified)
	assert.ErrorIs(t, billing.Err, verify.ErrVerificationFailed)
	assert.NotErrorIs(t, billing.Err, release.ErrApplyRejected)
}

func TestCancellation(t *testing.T) {
	r := newRig(t, twoApps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orders := deployment("orders")
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.loader.On("Load", mock.Anything).Return(orders, nil).Twice()
	r.backups.On("Backup", mock.Anything, mock.Anything, "orders", orders, releaseID).Return(backup.Record{App: "orders", ExistedBeforeRun: true}).Once()
	r.applier.On("Apply", mock.Anything, mock.Anything, orders).Return(orders, []string{}, nil).Once()
	r.monitor.On("WaitForRollout", mock.Anything, mock.Anything, orders).Run(func(args mock.Arguments) {
		cancel()
	}).Return(strategy.ErrRolloutTimeout).Once()
	r.rollbacker.On("Rollback", mock.Anything, mock.Anything, []backup.Record{{App: "orders", ExistedBeforeRun: true}}).
		Return([]rollback.Result{{App: "orders", Action: rollback.ActionReapplied}}).Once()

	run, err := r.releaser.Run(ctx)
	assert.ErrorIs(t, err, release.ErrReleaseFailed)
	assertValid(t, run)

	require.Len(t, run.Outcomes, 2)
	assert.ErrorIs(t, run.Outcomes[0].Err, release.ErrCancelled)
	assert.ErrorIs(t, run.Outcomes[1].Err, release.ErrCancelled)
	assert.Nil(t, run.Outcomes[1].Backup)
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestCancelledBeforeStart(t *testing.T) {
	r := newRig(t, twoApps)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := r.releaser.Run(ctx)
	assert.ErrorIs(t, err, release.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, release.ExitCancelled, release.ErrorExitCode(err))
	assert.Empty(t, run.Outcomes)
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestCancelledDuringPing(t *testing.T) {
	r := newRig(t, twoApps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.loader.On("Load", mock.Anything).Return(deployment("orders"), nil).Twice()
	r.cluster.On("Ping", mock.Anything).Run(func(args mock.Arguments) {
		cancel()
	}).Return(context.Canceled).Once()

	_, err := r.releaser.Run(ctx)
	assert.ErrorIs(t, err, release.ErrCancelled)
	assert.NotErrorIs(t, err, release.ErrClusterUnreachable)
	assert.Equal(t, release.ExitCancelled, release.ErrorExitCode(err))
}

func TestClusterUnreachable(t *testing.T) {
	r := newRig(t, twoApps)
	r.loader.On("Load", mock.Anything).Return(deployment("orders"), nil).Twice()
	r.cluster.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

	run, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, release.ErrClusterUnreachable)
	assert.Equal(t, release.ExitClusterUnreachable, release.ErrorExitCode(err))
	assert.Empty(t, run.Outcomes)
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestInvalidResourceAbortsBeforeClusterAccess(t *testing.T) {
	r := newRig(t, twoApps)
	r.loader.On("Load", mock.Anything).Return(nil, fmt.Errorf("%w: kind is required", resource.ErrInvalidResource)).Once()

	_, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, resource.ErrInvalidResource)
	assert.Equal(t, release.ExitInvalidResource, release.ErrorExitCode(err))
}

func TestManifestErrors(t *testing.T) {
	r := newRig(t, `{"app": "orders"}`)
	_, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, manifest.ErrManifestMalformed)
	assert.Equal(t, release.ExitManifestError, release.ErrorExitCode(err))

	r.releaser.Store = manifest.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err = r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
}

type failingStore struct {
	manifest.Store
}

func (s failingStore) Persist(ctx context.Context, m *manifest.Manifest) error {
	return errors.New("read-only file system")
}

func TestPersistFailureDoesNotRollBack(t *testing.T) {
	r := newRig(t, twoApps)
	r.releaser.Store = failingStore{Store: manifest.NewFileStore(r.path)}
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.expectStages("orders", true, "", nil)
	r.expectStages("billing", true, "", nil)

	run, err := r.releaser.Run(context.Background())
	assert.ErrorIs(t, err, release.ErrPersistFailed)
	assert.Equal(t, release.ExitPersistFailed, release.ErrorExitCode(err))
	assert.True(t, run.Succeeded())
	assert.False(t, run.Reconciled)
	assert.Empty(t, run.Rollbacks)
}

func TestDryRun(t *testing.T) {
	r := newRig(t, twoApps)
	r.releaser.DryRun = true
	r.loader.On("Load", mock.Anything).Return(deployment("orders"), nil).Twice()
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	r.differ.On("Diff", mock.Anything, mock.Anything).Return([]string{"deployment.apps/orders unchanged"}, nil).Twice()

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, release.ResultDryRun, run.Result)
	require.Len(t, run.Outcomes, 2)
	assert.Equal(t, []string{"deployment.apps/orders unchanged"}, run.Outcomes[0].Detail)
	assert.False(t, run.Outcomes[0].Applied)
	assert.Equal(t, twoApps, r.manifest(t))
}

func TestDryRunWithoutCluster(t *testing.T) {
	r := newRig(t, twoApps)
	r.releaser.DryRun = true
	r.loader.On("Load", mock.Anything).Return(deployment("orders"), nil).Twice()
	r.cluster.On("Ping", mock.Anything).Return(errors.New("no route to host")).Once()

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, release.ResultDryRun, run.Result)
	assert.Len(t, run.Outcomes, 2)
}

func TestParallelReleaseKeepsManifestOrder(t *testing.T) {
	apps := []string{"orders", "billing", "frontend", "search"}
	document := "[\n"
	for i, app := range apps {
		if i > 0 {
			document += ",\n"
		}
		document += fmt.Sprintf(`  {"app": %q, "resourceFile": "%s.yaml", "readytodeploy": 1}`, app, app)
	}
	document += "\n]\n"

	r := newRig(t, document)
	r.releaser.Parallelism = 3
	r.cluster.On("Ping", mock.Anything).Return(nil).Once()
	for _, app := range apps {
		r.expectStages(app, true, "", nil)
	}

	run, err := r.releaser.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Outcomes, len(apps))
	for i, app := range apps {
		assert.Equal(t, app, run.Outcomes[i].App)
		assert.True(t, run.Outcomes[i].Verified)
	}
	assert.True(t, run.Reconciled)
}

func TestOutcomeValid(t *testing.T) {
	assert.True(t, release.Outcome{}.Valid())
	assert.True(t, release.Outcome{Applied: true, RolledOut: true, Verified: true}.Valid())
	assert.False(t, release.Outcome{RolledOut: true}.Valid())
	assert.False(t, release.Outcome{Applied: true, Verified: true}.Valid())
}
