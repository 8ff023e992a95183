package resource

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/manifest"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

var ErrInvalidResource = errors.New("invalid resource definition")

// Loader turns the resource files of a manifest entry into Kubernetes objects ready to be applied.
type Loader struct {
	// Relative resource file paths are resolved against this directory.
	BaseDir string

	// Namespace is filled into resources that do not specify one.
	Namespace string

	// Variables are available to all templates, and override entry fields with the same name.
	Variables TemplateVariables

	Annotations map[string]string
}

func (l *Loader) path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(l.BaseDir, file)
}

func (l *Loader) templateVariables(entry manifest.Entry) TemplateVariables {
	vars := TemplateVariables(entry.Fields())
	vars["app"] = entry.App
	vars["name"] = k8sutils.ResourceName(entry.App)
	return vars.Merge(l.Variables)
}

// Load reads, templates, and validates every resource of the entry, in the order listed.
func (l *Loader) Load(entry manifest.Entry) ([]unstructured.Unstructured, error) {
	if err := k8sutils.ValidateResourceName(entry.App); err != nil {
		return nil, fmt.Errorf("%w: app %q: %s", ErrInvalidResource, entry.App, err)
	}

	vars := l.templateVariables(entry)
	resources := make([]unstructured.Unstructured, 0)

	for _, file := range entry.ResourceFiles() {
		docs, err := MultiDocumentFileAsJSON(l.path(file), vars)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidResource, err)
		}

		parsed, err := k8sutils.ResourcesFromJSON(docs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidResource, file, err)
		}

		resources = append(resources, parsed...)
	}

	if len(resources) == 0 {
		return nil, fmt.Errorf("%w: app %q: no resources found in %v", ErrInvalidResource, entry.App, entry.ResourceFiles())
	}

	seen := make(map[k8sutils.Identifier]bool)
	for i := range resources {
		if len(resources[i].GetName()) == 0 {
			resources[i].SetName(k8sutils.ResourceName(entry.App))
		}
		if len(resources[i].GetNamespace()) == 0 && len(l.Namespace) > 0 {
			resources[i].SetNamespace(l.Namespace)
		}

		if err := validate(resources[i]); err != nil {
			return nil, fmt.Errorf("%w: app %q: resource %d: %s", ErrInvalidResource, entry.App, i+1, err)
		}

		id := k8sutils.ResourceIdentifier(resources[i])
		if seen[id] {
			return nil, fmt.Errorf("%w: app %q: %s is defined more than once", ErrInvalidResource, entry.App, id)
		}
		seen[id] = true

		if len(l.Annotations) > 0 {
			InjectAnnotations(&resources[i], l.Annotations)
		}
	}

	return resources, nil
}

func validate(resource unstructured.Unstructured) error {
	gvk := resource.GroupVersionKind()
	switch {
	case len(gvk.Version) == 0:
		return fmt.Errorf("apiVersion is required")
	case len(gvk.Kind) == 0:
		return fmt.Errorf("kind is required")
	}
	if _, found := resource.Object["status"]; found {
		return fmt.Errorf("%s: status must not be set", k8sutils.ResourceIdentifier(resource))
	}
	return nil
}
