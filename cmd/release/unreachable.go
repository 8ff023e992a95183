package main

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// unreachable stands in for a cluster that could not be configured, so that a dry run
// can still validate the manifest and resource files.
type unreachable struct {
	err error
}

func (u unreachable) Kubernetes() kubernetes.Interface {
	return nil
}

func (u unreachable) ResourceInterface(*unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	return nil, u.err
}

func (u unreachable) Ping(context.Context) error {
	return u.err
}
