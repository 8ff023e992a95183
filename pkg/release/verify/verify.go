package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
)

var ErrVerificationFailed = errors.New("verification failed")

// Container waiting reasons that will not resolve by themselves.
var errorReasons = map[string]bool{
	"CrashLoopBackOff":           true,
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"InvalidImageName":           true,
	"CreateContainerConfigError": true,
}

// Kinds that run pods, and thereby have something to verify.
var workloadKinds = map[string]bool{
	"Deployment":  true,
	"StatefulSet": true,
	"DaemonSet":   true,
	"ReplicaSet":  true,
}

// Result summarizes the pods found for each workload of an application.
type Result struct {
	Running int
	Pods    []PodStatus
}

type PodStatus struct {
	Name   string
	Phase  v1.PodPhase
	Reason string
}

func (p PodStatus) String() string {
	if len(p.Reason) > 0 {
		return fmt.Sprintf("%s: %s (%s)", p.Name, p.Phase, p.Reason)
	}
	return fmt.Sprintf("%s: %s", p.Name, p.Phase)
}

type Verifier struct {
	Client kubeclient.Interface
}

// Verify confirms that every workload among resources has at least one running pod
// without an error status. Pods in error state only fail a workload that has no such pod.
func (v *Verifier) Verify(ctx context.Context, logger *log.Entry, app string, resources []unstructured.Unstructured) (*Result, error) {
	result := &Result{
		Pods: make([]PodStatus, 0),
	}
	workloads := 0

	for _, resource := range resources {
		if !workloadKinds[resource.GetKind()] {
			continue
		}
		workloads++

		identifier := k8sutils.ResourceIdentifier(resource)
		selector, err := podSelector(resource)
		if err != nil {
			return result, fmt.Errorf("%w: %s: %s", ErrVerificationFailed, identifier, err)
		}

		pods, err := v.Client.Kubernetes().CoreV1().Pods(resource.GetNamespace()).List(ctx, metav1.ListOptions{
			LabelSelector: selector.String(),
		})
		if err != nil {
			return result, fmt.Errorf("%w: %s: list pods: %s", ErrVerificationFailed, identifier, err)
		}

		running := 0
		failing := make([]string, 0)
		for _, pod := range pods.Items {
			status := podStatus(pod)
			result.Pods = append(result.Pods, status)
			if len(status.Reason) > 0 || pod.Status.Phase == v1.PodFailed {
				failing = append(failing, status.String())
				continue
			}
			if pod.Status.Phase == v1.PodRunning {
				running++
			}
		}
		result.Running += running

		logger.Debugf("Found %d pods for %s matching '%s', %d running", len(pods.Items), identifier, selector, running)

		sort.Strings(failing)
		if running == 0 && len(failing) > 0 {
			return result, fmt.Errorf("%w: %s: no running pods; pods in error state: %s", ErrVerificationFailed, identifier, strings.Join(failing, ", "))
		}
		if running == 0 {
			return result, fmt.Errorf("%w: %s: no running pods", ErrVerificationFailed, identifier)
		}

		// Pods left behind by earlier revisions may still match the selector.
		for _, status := range failing {
			logger.Warnf("%s: ignoring pod in error state next to %d running: %s", identifier, running, status)
		}
	}

	if workloads == 0 {
		logger.Infof("Application %s has no workloads; nothing to verify", app)
		return result, nil
	}

	logger.Infof("Verified %d running pods", result.Running)
	return result, nil
}

// podSelector returns the workload's own pod selector, or app=<name> if it has none.
func podSelector(resource unstructured.Unstructured) (labels.Selector, error) {
	raw, found, err := unstructured.NestedMap(resource.Object, "spec", "selector")
	if err != nil {
		return nil, err
	}
	if !found || len(raw) == 0 {
		return labels.SelectorFromSet(labels.Set{"app": resource.GetName()}), nil
	}

	selector := &metav1.LabelSelector{}
	if err = runtime.DefaultUnstructuredConverter.FromUnstructured(raw, selector); err != nil {
		return nil, fmt.Errorf("parse pod selector: %w", err)
	}
	return metav1.LabelSelectorAsSelector(selector)
}

func podStatus(pod v1.Pod) PodStatus {
	status := PodStatus{
		Name:  pod.Name,
		Phase: pod.Status.Phase,
	}
	statuses := append(append([]v1.ContainerStatus{}, pod.Status.InitContainerStatuses...), pod.Status.ContainerStatuses...)
	for _, cs := range statuses {
		if cs.State.Waiting != nil && errorReasons[cs.State.Waiting.Reason] {
			status.Reason = cs.State.Waiting.Reason
			break
		}
	}
	return status
}
