package strategy

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

type Action string

const (
	ActionCreated    Action = "created"
	ActionConfigured Action = "configured"
)

func NewDeployStrategy(namespacedResource dynamic.ResourceInterface) DeployStrategy {
	return createOrUpdateStrategy{client: namespacedResource}
}

type DeployStrategy interface {
	Deploy(ctx context.Context, resource unstructured.Unstructured) (*unstructured.Unstructured, Action, error)
}

type createOrUpdateStrategy struct {
	client dynamic.ResourceInterface
}

func (c createOrUpdateStrategy) Deploy(ctx context.Context, resource unstructured.Unstructured) (*unstructured.Unstructured, Action, error) {
	existing, err := c.client.Get(ctx, resource.GetName(), metav1.GetOptions{})
	if errors.IsNotFound(err) {
		deployed, err := c.client.Create(ctx, &resource, metav1.CreateOptions{
			FieldValidation: metav1.FieldValidationStrict,
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating resource: %w", transformStrictDecodingError(err))
		}
		return deployed, ActionCreated, nil
	} else if err != nil {
		return nil, "", fmt.Errorf("get existing resource: %w", err)
	}

	resource.SetResourceVersion(existing.GetResourceVersion())
	updated, err := c.client.Update(ctx, &resource, metav1.UpdateOptions{
		FieldValidation: metav1.FieldValidationStrict,
	})
	if err != nil {
		return nil, "", fmt.Errorf("updating resource: %w", transformStrictDecodingError(err))
	}

	return updated, ActionConfigured, nil
}

func transformStrictDecodingError(err error) error {
	msg := err.Error()

	// Kubernetes doesn't expose any error types, so we have to rely on the error message for now
	const strictDecodingError = "strict decoding error:"

	if !strings.Contains(msg, strictDecodingError) {
		return err
	}

	// we trim the default error message as it is too verbose, e.g:
	// > Deployment in version "v1" cannot be handled as a Deployment: strict decoding error: unknown field "spec.nestedField", ...
	parts := strings.SplitAfterN(msg, strictDecodingError, 2)
	if len(parts) > 1 {
		msg = parts[1]
	}

	s := &strings.Builder{}
	s.WriteString(strictDecodingError)

	// multiple errors are joined as a comma separated string; split them up again
	errs := strings.Split(msg, ",")
	for _, e := range errs {
		s.WriteString("\n| ")
		s.WriteString(strings.TrimSpace(e))
	}

	s.WriteString("\n| The field")
	if len(errs) > 1 {
		s.WriteString("s")
	}
	s.WriteString(" might be misspelled, incorrectly indented, or unsupported. Fields are case sensitive.")

	return fmt.Errorf("%w: %s", err, s.String())
}
