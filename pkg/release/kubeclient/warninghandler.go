package kubeclient

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/rest"

	"github.com/nais/release/pkg/release/metrics"
)

type warningHandler struct {
	logger *log.Entry
}

var _ rest.WarningHandler = &warningHandler{}

// NewWarningHandler returns a handler that logs API server warnings and counts
// field validation warnings.
func NewWarningHandler(logger *log.Entry) rest.WarningHandler {
	return &warningHandler{logger: logger}
}

func (w *warningHandler) HandleWarningHeader(_ int, _ string, message string) {
	// invoked once per warning; a single request may produce several
	w.logger.Warnf("apiserver: %s", message)

	if strings.Contains(message, "unknown field") {
		metrics.FieldValidationWarnings.Inc()
	}
}
