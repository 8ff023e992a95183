package apply

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/kubeclient"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Differ compares resource definitions with their live counterparts without changing anything.
type Differ struct {
	Client kubeclient.Interface
}

// Diff returns one line per resource, followed by the differences between the live object and
// the desired one. Only fields present in the desired object are compared, since the cluster
// adds defaults and status that the resource files never carry.
func (d *Differ) Diff(ctx context.Context, resources []unstructured.Unstructured) ([]string, error) {
	lines := make([]string, 0, len(resources))
	for i := range resources {
		identifier := k8sutils.ResourceIdentifier(resources[i])
		ri, err := d.Client.ResourceInterface(&resources[i])
		if err != nil {
			return lines, fmt.Errorf("%s: %w", identifier, err)
		}

		live, err := ri.Get(ctx, resources[i].GetName(), metav1.GetOptions{})
		if errors.IsNotFound(err) {
			lines = append(lines, fmt.Sprintf("%s would be created", identifier))
			continue
		} else if err != nil {
			return lines, fmt.Errorf("get %s: %w", identifier, err)
		}

		diff := cmp.Diff(prune(live.Object, resources[i].Object), resources[i].Object)
		if len(diff) == 0 {
			lines = append(lines, fmt.Sprintf("%s unchanged", identifier))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s would be configured:\n%s", identifier, diff))
	}
	return lines, nil
}

// prune returns the parts of live that are also present in desired.
// Lists are kept whole.
func prune(live, desired map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(desired))
	for key, desiredValue := range desired {
		liveValue, ok := live[key]
		if !ok {
			continue
		}
		liveMap, liveIsMap := liveValue.(map[string]interface{})
		desiredMap, desiredIsMap := desiredValue.(map[string]interface{})
		if liveIsMap && desiredIsMap {
			out[key] = prune(liveMap, desiredMap)
			continue
		}
		out[key] = liveValue
	}
	return out
}
