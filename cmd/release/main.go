package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/nais/release/pkg/conftools"
	"github.com/nais/release/pkg/logging"
	"github.com/nais/release/pkg/release/apply"
	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/config"
	"github.com/nais/release/pkg/release/kubeclient"
	"github.com/nais/release/pkg/release/manifest"
	"github.com/nais/release/pkg/release/metrics"
	"github.com/nais/release/pkg/release/release"
	"github.com/nais/release/pkg/release/resource"
	"github.com/nais/release/pkg/release/rollback"
	"github.com/nais/release/pkg/release/strategy"
	"github.com/nais/release/pkg/release/verify"
	"github.com/nais/release/pkg/telemetry"
	"github.com/nais/release/pkg/version"
)

// Time allowed for flushing traces and metrics after the release is done.
const shutdownTimeout = 10 * time.Second

func main() {
	err := run()
	if err == nil {
		return
	}
	code := release.ErrorExitCode(err)
	if code == release.ExitInvocationFailure {
		flag.Usage()
	}
	log.Errorf("fatal: %s", err)
	os.Exit(int(code))
}

func run() error {
	cfg := config.Initialize()
	err := config.Load(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", release.ErrInvocation, err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return fmt.Errorf("%w: %w", release.ErrInvocation, err)
	}

	// Welcome
	log.Infof("release %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}

	for _, line := range conftools.Format(config.Secrets) {
		log.Debug(line)
	}

	// Trap SIGINT and SIGTERM to stop starting new work and roll back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.New(ctx, "release", cfg.OtelCollectorEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Warnf("Unable to flush traces: %s", err)
		}
	}()

	releaser, err := newReleaser(cfg)
	if err != nil {
		return err
	}

	run, err := releaser.Run(ctx)

	release.Log(releaser.Logger, run)
	if len(cfg.SummaryFile) > 0 {
		if summaryErr := release.WriteSummary(cfg.SummaryFile, run); summaryErr != nil {
			log.Warnf("Unable to write release summary: %s", summaryErr)
		}
	}
	pushMetrics(cfg)

	if err == nil && run.Result == release.ResultNoop && cfg.FailOnEmpty {
		return release.ErrNoReadyEntries
	}
	if errors.Is(err, release.ErrPersistFailed) {
		log.Errorf("The cluster has been updated, but %s was not. Do not re-run this release before the manifest is fixed.", cfg.ManifestPath())
	}

	return err
}

func newReleaser(cfg *config.Config) (*release.Releaser, error) {
	id := release.NewID(time.Now())
	correlationID := uuid.New().String()
	logger := log.WithFields(log.Fields{
		"environment": cfg.Environment,
	})

	storage, err := cfg.BackupStorage()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrInvocation, err)
	}

	variables := resource.TemplateVariablesFromSlice(cfg.Variables)
	variables = resource.TemplateVariables{
		"environment": cfg.Environment,
		"release":     id,
	}.Merge(variables)

	loader := &resource.Loader{
		BaseDir:     cfg.ResourcePath(),
		Namespace:   cfg.Namespace,
		Variables:   variables,
		Annotations: resource.BuildEnvironmentAnnotations(id, correlationID),
	}

	client, err := kubeclient.DefaultClient(cfg.Kubeconfig, float32(cfg.KubeQPS), cfg.KubeBurst)
	if err != nil {
		if !cfg.DryRun {
			return nil, fmt.Errorf("%w: configure Kubernetes client: %w", release.ErrClusterUnreachable, err)
		}
		logger.Warnf("No usable Kubernetes configuration, dry run will not compare with the cluster: %s", err)
		client = unreachable{err: err}
	}

	applier := &apply.Applier{Client: client}
	backups := &backup.Manager{Client: client, Storage: storage}

	return &release.Releaser{
		ID:            id,
		CorrelationID: correlationID,
		Environment:   cfg.Environment,
		DryRun:        cfg.DryRun,
		Parallelism:   cfg.Parallelism,
		Store:         manifest.NewFileStore(cfg.ManifestPath()),
		Loader:        loader,
		Cluster:       client,
		Differ:        &apply.Differ{Client: client},
		Backups:       backups,
		Applier:       applier,
		Monitor: &strategy.Monitor{
			Client:   client,
			Timeout:  cfg.RolloutTimeout,
			Interval: cfg.PollInterval,
		},
		Verifier: &verify.Verifier{Client: client},
		Rollbacker: &rollback.Coordinator{
			Backups: backups,
			Applier: applier,
			Timeout: cfg.RollbackTimeout,
		},
		Logger: logger,
	}, nil
}

func pushMetrics(cfg *config.Config) {
	if len(cfg.PushgatewayURL) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.Environment); err != nil {
		log.Warnf("Unable to push metrics to %s: %s", cfg.PushgatewayURL, err)
	}
}
