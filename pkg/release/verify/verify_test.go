package verify_test

import (
	"context"
	"testing"

	"github.com/nais/release/pkg/release/kubeclient/kubeclienttest"
	"github.com/nais/release/pkg/release/verify"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

func logger() *log.Entry {
	return log.NewEntry(log.StandardLogger())
}

func pod(name string, labels map[string]string, phase v1.PodPhase, waiting string) *v1.Pod {
	p := &v1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "shop", Labels: labels},
		Status:     v1.PodStatus{Phase: phase},
	}
	if len(waiting) > 0 {
		p.Status.ContainerStatuses = []v1.ContainerStatus{
			{Name: "main", State: v1.ContainerState{Waiting: &v1.ContainerStateWaiting{Reason: waiting}}},
		}
	}
	return p
}

func deployment(name string, matchLabels map[string]interface{}) unstructured.Unstructured {
	u := unstructured.Unstructured{}
	u.SetAPIVersion("apps/v1")
	u.SetKind("Deployment")
	u.SetName(name)
	u.SetNamespace("shop")
	if matchLabels != nil {
		_ = unstructured.SetNestedMap(u.Object, matchLabels, "spec", "selector", "matchLabels")
	}
	return u
}

func service(name string) unstructured.Unstructured {
	u := unstructured.Unstructured{}
	u.SetAPIVersion("v1")
	u.SetKind("Service")
	u.SetName(name)
	u.SetNamespace("shop")
	return u
}

func TestVerify(t *testing.T) {
	for _, tt := range []struct {
		name      string
		pods      []runtime.Object
		resources []unstructured.Unstructured
		running   int
		err       string
	}{
		{
			name: "running pods matched by selector",
			pods: []runtime.Object{
				pod("orders-1", map[string]string{"component": "orders"}, v1.PodRunning, ""),
				pod("orders-2", map[string]string{"component": "orders"}, v1.PodRunning, ""),
				pod("billing-1", map[string]string{"component": "billing"}, v1.PodFailed, ""),
			},
			resources: []unstructured.Unstructured{
				deployment("orders", map[string]interface{}{"component": "orders"}),
				service("orders"),
			},
			running: 2,
		},
		{
			name: "fallback to app label",
			pods: []runtime.Object{
				pod("orders-1", map[string]string{"app": "orders"}, v1.PodRunning, ""),
			},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			running:   1,
		},
		{
			name:      "no running pods",
			pods:      []runtime.Object{pod("orders-1", map[string]string{"app": "orders"}, v1.PodPending, "")},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			err:       "deployment.apps/orders: no running pods",
		},
		{
			name: "crash looping pod next to a running one",
			pods: []runtime.Object{
				pod("orders-1", map[string]string{"app": "orders"}, v1.PodRunning, ""),
				pod("orders-2", map[string]string{"app": "orders"}, v1.PodRunning, "CrashLoopBackOff"),
			},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			running:   1,
		},
		{
			name: "evicted pod from an earlier revision",
			pods: []runtime.Object{
				pod("orders-1", map[string]string{"app": "orders"}, v1.PodRunning, ""),
				pod("orders-2", map[string]string{"app": "orders"}, v1.PodRunning, ""),
				pod("orders-old-evicted", map[string]string{"app": "orders"}, v1.PodFailed, ""),
			},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			running:   2,
		},
		{
			name:      "failed pod",
			pods:      []runtime.Object{pod("orders-1", map[string]string{"app": "orders"}, v1.PodFailed, "")},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			err:       "no running pods; pods in error state: orders-1: Failed",
		},
		{
			name:      "only crash looping pods",
			pods:      []runtime.Object{pod("orders-1", map[string]string{"app": "orders"}, v1.PodRunning, "ImagePullBackOff")},
			resources: []unstructured.Unstructured{deployment("orders", nil)},
			err:       "pods in error state: orders-1: Running (ImagePullBackOff)",
		},
		{
			name:      "nothing to verify",
			resources: []unstructured.Unstructured{service("orders")},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &verify.Verifier{Client: kubeclienttest.New(tt.pods, nil)}
			result, err := verifier.Verify(context.Background(), logger(), "orders", tt.resources)
			require.NotNil(t, result)
			assert.Equal(t, tt.running, result.Running)
			if len(tt.err) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, verify.ErrVerificationFailed)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
