package apply

import (
	"context"
	"fmt"

	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/kubeclient"
	"github.com/nais/release/pkg/release/metrics"
	"github.com/nais/release/pkg/release/strategy"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Applier submits resource definitions to the cluster.
type Applier struct {
	Client kubeclient.Interface
}

// Apply creates or updates each resource in order, stopping at the first rejection.
// It returns the objects as stored by the cluster, and one detail line per resource
// that was attempted.
func (a *Applier) Apply(ctx context.Context, logger *log.Entry, resources []unstructured.Unstructured) ([]unstructured.Unstructured, []string, error) {
	applied := make([]unstructured.Unstructured, 0, len(resources))
	detail := make([]string, 0, len(resources))

	for _, resource := range resources {
		identifier := k8sutils.ResourceIdentifier(resource)

		deployed, action, err := a.apply(ctx, resource)
		if err != nil {
			detail = append(detail, fmt.Sprintf("%s rejected: %s", identifier, err))
			metrics.KubernetesResources.WithLabelValues(identifier.Kind, metrics.ResultRejected).Inc()
			return applied, detail, fmt.Errorf("%s: %w", identifier, err)
		}

		logger.Infof("Resource %s %s", identifier, action)
		detail = append(detail, fmt.Sprintf("%s %s", identifier, action))
		applied = append(applied, *deployed)
		metrics.KubernetesResources.WithLabelValues(identifier.Kind, string(action)).Inc()
	}

	return applied, detail, nil
}

func (a *Applier) apply(ctx context.Context, resource unstructured.Unstructured) (*unstructured.Unstructured, strategy.Action, error) {
	ri, err := a.Client.ResourceInterface(&resource)
	if err != nil {
		return nil, "", err
	}
	return strategy.NewDeployStrategy(ri).Deploy(ctx, resource)
}
