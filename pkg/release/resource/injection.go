package resource

import (
	"fmt"
	"os"
	"strings"

	"github.com/nais/release/pkg/version"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	AnnotationCorrelationID = "release.nais.io/correlation-id"
	AnnotationReleaseID     = "release.nais.io/release-id"
	AnnotationClientVersion = "release.nais.io/client-version"
	AnnotationChangeCause   = "kubernetes.io/change-cause"
)

// InjectAnnotations merges the given annotations into the resource metadata,
// overwriting existing keys.
func InjectAnnotations(resource *unstructured.Unstructured, annotations map[string]string) {
	anno := resource.GetAnnotations()
	if anno == nil {
		anno = make(map[string]string)
	}
	for k, v := range annotations {
		anno[k] = v
	}
	resource.SetAnnotations(anno)
}

// BuildEnvironmentAnnotations collects provenance information from the CI environment.
// https://docs.github.com/en/actions/reference/environment-variables#default-environment-variables
func BuildEnvironmentAnnotations(releaseID, correlationID string) map[string]string {
	a := make(map[string]string)

	add := func(envVar, key string) {
		value, found := os.LookupEnv(envVar)
		if found {
			a[key] = value
		}
	}
	addAll := func(envVar ...string) {
		for _, v := range envVar {
			key := "release.nais.io/" + strings.ReplaceAll(strings.ToLower(v), "_", "-")
			add(v, key)
		}
	}

	addAll(
		// GitHub
		"GITHUB_ACTOR",
		"GITHUB_SHA",

		// Jenkins
		"BUILD_URL",
		"GIT_COMMIT",
	)

	a[AnnotationClientVersion] = version.Version()
	a[AnnotationReleaseID] = releaseID
	a[AnnotationCorrelationID] = correlationID
	a[AnnotationChangeCause] = changeCause(a)

	return a
}

func changeCause(annotations map[string]string) string {
	cause := fmt.Sprintf("release %s", annotations[AnnotationReleaseID])
	for _, key := range []string{"release.nais.io/github-sha", "release.nais.io/git-commit"} {
		if commit, ok := annotations[key]; ok {
			return fmt.Sprintf("%s: commit %s", cause, commit)
		}
	}
	return cause
}
