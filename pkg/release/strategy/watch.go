package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const DefaultRequestInterval = time.Second * 5

var (
	ErrRolloutTimeout = errors.New("timeout while waiting for rollout to complete")
	ErrRolloutFailed  = errors.New("rollout failed")
)

type WatchStrategy interface {
	Watch(ctx context.Context, logger *log.Entry, resource unstructured.Unstructured) error
}

type NoOp struct{}

func (c NoOp) Watch(ctx context.Context, logger *log.Entry, resource unstructured.Unstructured) error {
	logger.Debugf("No rollout to wait for on resource %s/%s", resource.GroupVersionKind().String(), resource.GetName())
	return nil
}

func NewWatchStrategy(gvk schema.GroupVersionKind, client kubeclient.Interface, interval time.Duration) WatchStrategy {
	if gvk.Kind == "Deployment" && (gvk.Group == "apps" || gvk.Group == "extensions") {
		return deployment{client: client, interval: interval}
	}

	if gvk.Group == "batch" && gvk.Kind == "Job" && gvk.Version == "v1" {
		return job{client: client, interval: interval}
	}

	return NoOp{}
}

// sleep waits for the poll interval. It returns false if the context expires first.
func sleep(ctx context.Context, interval time.Duration) bool {
	t := time.NewTimer(interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
