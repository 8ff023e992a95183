package strategy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformStrictDecodingError(t *testing.T) {
	err := errors.New(`Deployment in version "v1" cannot be handled as a Deployment: strict decoding error: unknown field "spec.replica", unknown field "spec.templat"`)

	transformed := transformStrictDecodingError(err)
	assert.ErrorIs(t, transformed, err)
	assert.Contains(t, transformed.Error(), "\n| unknown field \"spec.replica\"")
	assert.Contains(t, transformed.Error(), "\n| unknown field \"spec.templat\"")
	assert.Contains(t, transformed.Error(), "The fields might be misspelled")

	plain := errors.New("admission webhook denied the request")
	assert.Equal(t, plain, transformStrictDecodingError(plain))
}
