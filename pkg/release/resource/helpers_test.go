package resource_test

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func unstructuredContainers(obj map[string]interface{}) ([]map[string]interface{}, bool, error) {
	list, found, err := unstructured.NestedSlice(obj, "spec", "template", "spec", "containers")
	if err != nil || !found {
		return nil, found, err
	}
	containers := make([]map[string]interface{}, 0, len(list))
	for _, c := range list {
		if m, ok := c.(map[string]interface{}); ok {
			containers = append(containers, m)
		}
	}
	return containers, true, nil
}
