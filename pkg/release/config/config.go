package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nais/release/pkg/conftools"
	"github.com/nais/release/pkg/logging"
	"github.com/nais/release/pkg/release/backup"
	"github.com/nais/release/pkg/release/rollback"
	"github.com/nais/release/pkg/release/strategy"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendFilesystem = "file"
	BackendS3         = "s3"
)

type Config struct {
	LogFormat             string        `json:"log-format"`
	LogLevel              string        `json:"log-level"`
	Environment           string        `json:"environment"`
	ManifestDir           string        `json:"manifest-dir"`
	ManifestFile          string        `json:"manifest-file"`
	ResourceDir           string        `json:"resource-dir"`
	Namespace             string        `json:"namespace"`
	Kubeconfig            string        `json:"kubeconfig"`
	KubeQPS               float64       `json:"kube-qps"`
	KubeBurst             int           `json:"kube-burst"`
	DryRun                bool          `json:"dry-run"`
	FailOnEmpty           bool          `json:"fail-on-empty"`
	Parallelism           int           `json:"parallelism"`
	RolloutTimeout        time.Duration `json:"rollout-timeout"`
	PollInterval          time.Duration `json:"poll-interval"`
	RollbackTimeout       time.Duration `json:"rollback-timeout"`
	Variables             []string      `json:"var"`
	SummaryFile           string        `json:"summary-file"`
	PushgatewayURL        string        `json:"pushgateway-url"`
	OtelCollectorEndpoint string        `json:"otel-collector-endpoint"`
	Backup                Backup        `json:"backup"`
}

type Backup struct {
	Backend string          `json:"backend"`
	Dir     string          `json:"dir"`
	S3      backup.S3Config `json:"s3"`
}

const (
	LogFormat             = "log-format"
	LogLevel              = "log-level"
	Environment           = "environment"
	ManifestDir           = "manifest-dir"
	ManifestFile          = "manifest-file"
	ResourceDir           = "resource-dir"
	Namespace             = "namespace"
	Kubeconfig            = "kubeconfig"
	KubeQPS               = "kube-qps"
	KubeBurst             = "kube-burst"
	DryRun                = "dry-run"
	FailOnEmpty           = "fail-on-empty"
	Parallelism           = "parallelism"
	RolloutTimeout        = "rollout-timeout"
	PollInterval          = "poll-interval"
	RollbackTimeout       = "rollback-timeout"
	Variables             = "var"
	SummaryFile           = "summary-file"
	PushgatewayURL        = "pushgateway-url"
	OtelCollectorEndpoint = "otel-collector-endpoint"
	BackupBackend         = "backup.backend"
	BackupDir             = "backup.dir"
	BackupS3Endpoint      = "backup.s3.endpoint"
	BackupS3Bucket        = "backup.s3.bucket"
	BackupS3Prefix        = "backup.s3.prefix"
	BackupS3AccessKeyID   = "backup.s3.access-key-id"
	BackupS3SecretKey     = "backup.s3.secret-access-key"
	BackupS3Region        = "backup.s3.region"
	BackupS3Insecure      = "backup.s3.insecure"
)

// Configuration keys whose values must never be printed.
var Secrets = []string{
	BackupS3AccessKeyID,
	BackupS3SecretKey,
}

func bindWellKnown() {
	viper.BindEnv(Kubeconfig, "KUBECONFIG")
	viper.BindEnv(SummaryFile, "GITHUB_STEP_SUMMARY")
	viper.BindEnv(BackupS3AccessKeyID, "AWS_ACCESS_KEY_ID")
	viper.BindEnv(BackupS3SecretKey, "AWS_SECRET_ACCESS_KEY")
	viper.BindEnv(BackupS3Region, "AWS_REGION")
}

func Initialize() *Config {
	conftools.Initialize("release")
	bindWellKnown()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: release [flags] <environment>\n\n")
		flag.PrintDefaults()
	}

	flag.String(LogFormat, logging.FormatText, "Log format, one of 'text', 'json' or 'actions'.")
	flag.String(LogLevel, "info", "Logging verbosity level.")
	flag.String(Environment, "", "Environment to release to. May also be given as the first argument.")
	flag.String(ManifestDir, "deployment", "Directory holding one subdirectory per environment.")
	flag.String(ManifestFile, "release.json", "File name of the release manifest within the environment directory.")
	flag.String(ResourceDir, "k8s", "Directory of resource files, relative to the environment directory.")
	flag.String(Namespace, "default", "Namespace for resources that do not specify one.")
	flag.String(Kubeconfig, "", "Path to kubeconfig file. Uses in-cluster configuration if empty and not found in home directory.")
	flag.Float64(KubeQPS, 20, "Maximum queries per second to the Kubernetes API.")
	flag.Int(KubeBurst, 40, "Maximum burst of queries to the Kubernetes API.")
	flag.Bool(DryRun, false, "Load and validate everything, show differences against the cluster, but change nothing.")
	flag.Bool(FailOnEmpty, false, "Exit with an error if no manifest entry is ready for release.")
	flag.Int(Parallelism, 1, "Number of applications to release concurrently.")
	flag.Duration(RolloutTimeout, strategy.DefaultRolloutTimeout, "Time to wait for each application to finish rolling out.")
	flag.Duration(PollInterval, strategy.DefaultRequestInterval, "Time between rollout status checks.")
	flag.Duration(RollbackTimeout, rollback.DefaultTimeout, "Time allowed for rolling back after a failed release.")
	flag.StringSlice(Variables, nil, "Template variable in the form KEY=VALUE. Can be specified multiple times.")
	flag.String(SummaryFile, "", "Append a Markdown summary of the release to this file.")
	flag.String(PushgatewayURL, "", "Push metrics to this Prometheus Pushgateway when done.")
	flag.String(OtelCollectorEndpoint, "", "OpenTelemetry collector endpoint. Tracing is disabled if empty.")
	flag.String(BackupBackend, BackendFilesystem, "Where to store backups, either 'file' or 's3'.")
	flag.String(BackupDir, ".release/backups", "Directory for backups when using the file backend.")
	flag.String(BackupS3Endpoint, "", "S3 endpoint, in the form host:port.")
	flag.String(BackupS3Bucket, "", "S3 bucket for backups.")
	flag.String(BackupS3Prefix, "", "Object name prefix for backups.")
	flag.String(BackupS3AccessKeyID, "", "S3 access key ID.")
	flag.String(BackupS3SecretKey, "", "S3 secret access key.")
	flag.String(BackupS3Region, "", "S3 region.")
	flag.Bool(BackupS3Insecure, false, "Connect to S3 without TLS.")

	return &Config{}
}

// Load reads configuration from file, environment, and command line.
func Load(cfg *Config) error {
	err := conftools.Load(cfg)
	if err != nil {
		return err
	}

	switch flag.NArg() {
	case 0:
	case 1:
		cfg.Environment = flag.Arg(0)
	default:
		return fmt.Errorf("expected at most one argument, got %d", flag.NArg())
	}

	return cfg.Validate()
}

func (cfg *Config) Validate() error {
	if len(cfg.Environment) == 0 {
		return fmt.Errorf("environment must be specified")
	}
	if cfg.Parallelism < 1 {
		return fmt.Errorf("%s must be at least 1", Parallelism)
	}
	if cfg.RolloutTimeout <= 0 {
		return fmt.Errorf("%s must be positive", RolloutTimeout)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", PollInterval)
	}
	switch cfg.Backup.Backend {
	case BackendFilesystem:
		if len(cfg.Backup.Dir) == 0 {
			return fmt.Errorf("%s must be specified", BackupDir)
		}
	case BackendS3:
		if len(cfg.Backup.S3.Endpoint) == 0 || len(cfg.Backup.S3.Bucket) == 0 {
			return fmt.Errorf("%s and %s must be specified", BackupS3Endpoint, BackupS3Bucket)
		}
	default:
		return fmt.Errorf("%s must be either '%s' or '%s'", BackupBackend, BackendFilesystem, BackendS3)
	}
	return nil
}

// EnvironmentDir is the directory holding the manifest of the configured environment.
func (cfg *Config) EnvironmentDir() string {
	return filepath.Join(cfg.ManifestDir, cfg.Environment)
}

func (cfg *Config) ManifestPath() string {
	return filepath.Join(cfg.EnvironmentDir(), cfg.ManifestFile)
}

// ResourcePath is the directory that resource file names in the manifest are relative to.
func (cfg *Config) ResourcePath() string {
	return filepath.Join(cfg.EnvironmentDir(), cfg.ResourceDir)
}

func (cfg *Config) BackupStorage() (backup.Storage, error) {
	if cfg.Backup.Backend == BackendS3 {
		return backup.NewS3Storage(cfg.Backup.S3)
	}
	return backup.NewFilesystemStorage(cfg.Backup.Dir), nil
}
