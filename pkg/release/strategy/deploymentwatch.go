package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	apps "k8s.io/api/apps/v1"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const progressDeadlineExceeded = "ProgressDeadlineExceeded"

type deployment struct {
	client   kubeclient.Interface
	interval time.Duration
}

// Watch returns nil once the generation of the deployment that was applied, or a later one,
// is completely rolled out.
func (d deployment) Watch(ctx context.Context, logger *log.Entry, resource unstructured.Unstructured) error {
	var cur *apps.Deployment
	var err error

	client := d.client.Kubernetes().AppsV1().Deployments(resource.GetNamespace())
	generation := resource.GetGeneration()

	for {
		cur, err = client.Get(ctx, resource.GetName(), metav1.GetOptions{})
		switch {
		case err == nil:
			if cur.Generation >= generation && deploymentComplete(cur, &cur.Status) {
				return nil
			}

			if failed, reason := deploymentFailed(cur); failed {
				return fmt.Errorf("%w: %s", ErrRolloutFailed, reason)
			}

			logger.WithFields(log.Fields{
				"deployment_replicas":            cur.Status.Replicas,
				"deployment_updated_replicas":    cur.Status.UpdatedReplicas,
				"deployment_available_replicas":  cur.Status.AvailableReplicas,
				"deployment_observed_generation": cur.Status.ObservedGeneration,
			}).Debugf("Still waiting for deployment to finish rollout...")

		case errors.IsNotFound(err):
			logger.Debugf("Deployment '%s' in namespace '%s' is not currently present in the cluster.", resource.GetName(), resource.GetNamespace())

		default:
			logger.Debugf("Recoverable error while polling for deployment object: %s", err)
		}

		if !sleep(ctx, d.interval) {
			break
		}
	}

	if err != nil {
		return fmt.Errorf("%w; last error was: %s", ErrRolloutTimeout, err)
	}

	return ErrRolloutTimeout
}

func desiredReplicas(deployment *apps.Deployment) int32 {
	if deployment.Spec.Replicas == nil {
		return 1
	}
	return *deployment.Spec.Replicas
}

// deploymentComplete considers a deployment to be complete once all of its desired replicas
// are updated and available, and no old pods are running.
//
// Adapted from
// https://github.com/kubernetes/kubernetes/blob/74bcefc8b2bf88a2f5816336999b524cc48cf6c0/pkg/controller/deployment/util/deployment_util.go#L745
func deploymentComplete(deployment *apps.Deployment, newStatus *apps.DeploymentStatus) bool {
	replicas := desiredReplicas(deployment)
	return newStatus.UpdatedReplicas == replicas &&
		newStatus.Replicas == replicas &&
		newStatus.AvailableReplicas == replicas &&
		newStatus.ObservedGeneration >= deployment.Generation
}

func deploymentFailed(deployment *apps.Deployment) (bool, string) {
	for _, condition := range deployment.Status.Conditions {
		if condition.Type == apps.DeploymentProgressing && condition.Status == v1.ConditionFalse && condition.Reason == progressDeadlineExceeded {
			return true, condition.Message
		}
	}
	return false, ""
}
