package k8sutils

import (
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
)

type Identifier struct {
	schema.GroupVersionKind
	Namespace string
	Name      string
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s/%s", strings.ToLower(id.GroupKind().String()), id.Name)
}

func ResourceIdentifier(resource unstructured.Unstructured) Identifier {
	return Identifier{
		GroupVersionKind: resource.GroupVersionKind(),
		Namespace:        resource.GetNamespace(),
		Name:             resource.GetName(),
	}
}

// ResourceName derives the cluster resource name of an application.
// Every component addressing the cluster on behalf of a manifest entry must use this function.
func ResourceName(app string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(app)), ".", "-")
}

// ValidateResourceName returns an error if the derived name of an application is not a valid
// Kubernetes object name.
func ValidateResourceName(app string) error {
	name := ResourceName(app)
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return fmt.Errorf("derived resource name %q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

func ResourcesFromJSON(json []json.RawMessage) ([]unstructured.Unstructured, error) {
	resources := make([]unstructured.Unstructured, len(json))
	for i := range resources {
		err := resources[i].UnmarshalJSON(json[i])
		if err != nil {
			return nil, fmt.Errorf("resource %d: decoding payload: %s", i+1, err)
		}
	}
	return resources, nil
}
