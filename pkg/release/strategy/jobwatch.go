package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	v1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type job struct {
	client   kubeclient.Interface
	interval time.Duration
}

func (j job) Watch(ctx context.Context, logger *log.Entry, resource unstructured.Unstructured) error {
	var job *v1.Job
	var err error

	client := j.client.Kubernetes().BatchV1().Jobs(resource.GetNamespace())

	// Wait until the new job object is present in the cluster.
	for {
		job, err = client.Get(ctx, resource.GetName(), metav1.GetOptions{})
		if err == nil {
			if jobComplete(job) {
				return nil
			}

			if status, condition := jobFailed(job); status {
				return fmt.Errorf("%w: job failed: %s", ErrRolloutFailed, condition.Message)
			}

			logger.Debugf("Still waiting for job to complete...")
		}

		if !sleep(ctx, j.interval) {
			break
		}
	}

	if err != nil {
		return fmt.Errorf("%w; last error was: %s", ErrRolloutTimeout, err)
	}

	return ErrRolloutTimeout
}

func jobComplete(job *v1.Job) bool {
	for _, condition := range job.Status.Conditions {
		if condition.Type == v1.JobComplete {
			return true
		}
	}
	return false
}

func jobFailed(job *v1.Job) (bool, v1.JobCondition) {
	for _, condition := range job.Status.Conditions {
		if condition.Type == v1.JobFailed {
			return true, condition
		}
	}
	return false, v1.JobCondition{}
}
