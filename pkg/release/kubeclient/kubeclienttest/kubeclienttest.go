// Package kubeclienttest provides an in-memory cluster for tests.
package kubeclienttest

import (
	"github.com/nais/release/pkg/release/kubeclient"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
)

var namespaced = []schema.GroupVersionKind{
	{Group: "apps", Version: "v1", Kind: "Deployment"},
	{Group: "apps", Version: "v1", Kind: "StatefulSet"},
	{Group: "batch", Version: "v1", Kind: "Job"},
	{Group: "", Version: "v1", Kind: "ConfigMap"},
	{Group: "", Version: "v1", Kind: "Service"},
	{Group: "", Version: "v1", Kind: "Pod"},
}

var listKinds = map[schema.GroupVersionResource]string{
	{Group: "apps", Version: "v1", Resource: "deployments"}:  "DeploymentList",
	{Group: "apps", Version: "v1", Resource: "statefulsets"}: "StatefulSetList",
	{Group: "batch", Version: "v1", Resource: "jobs"}:        "JobList",
	{Group: "", Version: "v1", Resource: "configmaps"}:       "ConfigMapList",
	{Group: "", Version: "v1", Resource: "services"}:         "ServiceList",
	{Group: "", Version: "v1", Resource: "pods"}:             "PodList",
	{Group: "", Version: "v1", Resource: "namespaces"}:       "NamespaceList",
}

// Mapper knows about the handful of kinds used in tests.
func Mapper() meta.RESTMapper {
	mapper := meta.NewDefaultRESTMapper(nil)
	for _, gvk := range namespaced {
		mapper.Add(gvk, meta.RESTScopeNamespace)
	}
	mapper.Add(schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot)
	return mapper
}

type Cluster struct {
	kubeclient.Interface
	Static  *fake.Clientset
	Dynamic *dynamicfake.FakeDynamicClient
}

// New returns a cluster where typed objects are served by the structured client,
// and unstructured objects by the dynamic client. The two do not share storage.
func New(typed []runtime.Object, unstructured []runtime.Object) *Cluster {
	static := fake.NewSimpleClientset(typed...)
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(clientgoscheme.Scheme, listKinds, unstructured...)
	return &Cluster{
		Interface: kubeclient.NewForClients(static, dyn, Mapper()),
		Static:    static,
		Dynamic:   dyn,
	}
}
