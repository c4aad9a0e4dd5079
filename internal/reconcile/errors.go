package reconcile

import (
	"errors"

	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
)

// Precondition failures raised before any network call
var (
	// ErrEmptyArtifact indicates a zero-length code package
	ErrEmptyArtifact = errors.New("code package is empty")
	// ErrUnknownRuntime indicates a runtime identifier the platform does not accept
	ErrUnknownRuntime = errors.New("unrecognized runtime")
	// ErrUnknownArchitecture indicates an architecture tag the platform does not accept
	ErrUnknownArchitecture = errors.New("unrecognized architecture")
	// ErrIncompleteResponse indicates the provider accepted a call but
	// omitted a field the caller depends on
	ErrIncompleteResponse = errors.New("incomplete provider response")
)

// IsNotFound reports whether a provider error means the resource is absent.
// Covers the typed exceptions of both backend services plus the raw error
// codes some endpoints return.
func IsNotFound(err error) bool {
	var roleMissing *iamtypes.NoSuchEntityException
	if errors.As(err, &roleMissing) {
		return true
	}
	var fnMissing *lambdatypes.ResourceNotFoundException
	if errors.As(err, &fnMissing) {
		return true
	}
	return isAPIErrorCode(err, "NoSuchEntity") || isAPIErrorCode(err, "ResourceNotFoundException")
}

// isAPIErrorCode matches provider errors by code when no typed exception
// covers the condition
func isAPIErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
