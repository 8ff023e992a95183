package kubeclient

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Needed for auth side effect
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
)

// Provide a Kubernetes client that knows how to deal with unstructured resources.
type Interface interface {
	// Return a Kubernetes client.
	Kubernetes() kubernetes.Interface

	// Return an object that knows how to do CRUD on the specified unstructured resource.
	ResourceInterface(resource *unstructured.Unstructured) (dynamic.ResourceInterface, error)

	// Return an error if the API server cannot be reached.
	Ping(ctx context.Context) error
}

type client struct {
	static  kubernetes.Interface
	dynamic dynamic.Interface
	mapper  meta.RESTMapper
}

var _ Interface = &client{}

func (c *client) Kubernetes() kubernetes.Interface {
	return c.static
}

// Given a unstructured Kubernetes resource, return a dynamic client that knows how to apply it to the cluster.
func (c *client) ResourceInterface(resource *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	mapping, err := c.mapping(resource)
	if err != nil {
		return nil, err
	}

	resourceInterface := c.dynamic.Resource(mapping.Resource)
	ns := resource.GetNamespace()

	if len(ns) == 0 || mapping.Scope.Name() == meta.RESTScopeNameRoot {
		return resourceInterface, nil
	}

	return resourceInterface.Namespace(ns), nil
}

func (c *client) Ping(ctx context.Context) error {
	_, err := c.static.Discovery().ServerVersion()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func New(config *rest.Config) (Interface, error) {
	cli, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(cli.Discovery()))

	return NewForClients(cli, dyn, mapper), nil
}

// NewForClients wraps existing clients, e.g. fake clients in tests.
func NewForClients(static kubernetes.Interface, dyn dynamic.Interface, mapper meta.RESTMapper) Interface {
	return &client{
		static:  static,
		dynamic: dyn,
		mapper:  mapper,
	}
}

// Given a unstructured Kubernetes resource, return the REST mapping that identifies it in the cluster.
func (c *client) mapping(resource *unstructured.Unstructured) (*meta.RESTMapping, error) {
	gvk := resource.GroupVersionKind()
	gk := schema.GroupKind{Group: gvk.Group, Kind: gvk.Kind}
	mapping, err := c.mapper.RESTMapping(gk, gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("unable to discover resource using REST mapper: %s", err)
	}

	return mapping, nil
}
