package release

import (
	"errors"

	"github.com/nais/release/pkg/release/manifest"
	"github.com/nais/release/pkg/release/resource"
	"github.com/nais/release/pkg/release/rollback"
)

var (
	ErrInvocation         = errors.New("invalid invocation")
	ErrNoReadyEntries     = errors.New("no manifest entries are ready for release")
	ErrClusterUnreachable = errors.New("cluster unreachable")
	ErrApplyRejected      = errors.New("apply rejected")
	ErrCancelled          = errors.New("cancelled")
	ErrPersistFailed      = errors.New("persisting manifest failed")
	ErrReleaseFailed      = errors.New("release failed")
)

type ExitCode int

// Keep separate to avoid skewing exit codes
const (
	ExitSuccess ExitCode = iota
	ExitReleaseFailed
	ExitRollbackFailed
	ExitPersistFailed
	ExitManifestError
	ExitInvalidResource
	ExitClusterUnreachable
	ExitNoReadyEntries
	ExitCancelled
	ExitInvocationFailure
	ExitInternalError
)

// ErrorExitCode returns the process exit code for an error returned by a release.
func ErrorExitCode(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, rollback.ErrRollbackFailed):
		return ExitRollbackFailed
	case errors.Is(err, ErrReleaseFailed):
		return ExitReleaseFailed
	case errors.Is(err, ErrPersistFailed):
		return ExitPersistFailed
	case errors.Is(err, manifest.ErrManifestNotFound), errors.Is(err, manifest.ErrManifestMalformed):
		return ExitManifestError
	case errors.Is(err, resource.ErrInvalidResource):
		return ExitInvalidResource
	case errors.Is(err, ErrClusterUnreachable):
		return ExitClusterUnreachable
	case errors.Is(err, ErrNoReadyEntries):
		return ExitNoReadyEntries
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	case errors.Is(err, ErrInvocation):
		return ExitInvocationFailure
	default:
		return ExitInternalError
	}
}
