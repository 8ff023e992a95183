package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const DefaultRolloutTimeout = time.Second * 300

// Monitor waits for the resources of one manifest entry to finish rolling out.
// Timeout applies to the entry as a whole, not to each resource.
type Monitor struct {
	Client   kubeclient.Interface
	Timeout  time.Duration
	Interval time.Duration
}

func (m *Monitor) WaitForRollout(ctx context.Context, logger *log.Entry, resources []unstructured.Unstructured) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultRolloutTimeout
	}
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultRequestInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	for _, resource := range resources {
		identifier := k8sutils.ResourceIdentifier(resource)
		strat := NewWatchStrategy(resource.GroupVersionKind(), m.Client, interval)

		logger.Debugf("Monitoring rollout status of '%s' in namespace '%s', deadline %s", identifier, identifier.Namespace, deadline.Format(time.RFC3339))
		err := strat.Watch(ctx, logger, resource)
		if err != nil {
			return fmt.Errorf("%s: %w", identifier, err)
		}
		logger.Debugf("Finished monitoring rollout status of '%s' in namespace '%s'", identifier, identifier.Namespace)
	}

	return nil
}
