package models

import (
	"time"

	"github.com/google/uuid"
)

// Action represents the top-level operation a run performed
type Action string

const (
	// ActionDeploy provisions or updates the function stack
	ActionDeploy Action = "deploy"
	// ActionDestroy tears the function stack down
	ActionDestroy Action = "destroy"
)

// IsValid checks if the action value is valid
func (a Action) IsValid() bool {
	switch a {
	case ActionDeploy, ActionDestroy:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// Outcome represents how a run ended
type Outcome string

const (
	// OutcomeSucceeded indicates the run converged to the desired state
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed indicates the run aborted on a fatal error
	OutcomeFailed Outcome = "failed"
)

// IsValid checks if the outcome value is valid
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// DeploymentRecord captures the result of one deploy or destroy run
type DeploymentRecord struct {
	// ID is the unique identifier for the run
	ID string `json:"id" dynamodbav:"id"`

	// FunctionName is the Lambda function the run operated on
	FunctionName string `json:"function_name" dynamodbav:"function_name"`

	// RoleName is the execution role the run operated on
	RoleName string `json:"role_name" dynamodbav:"role_name"`

	// Region is the target AWS region
	Region string `json:"region" dynamodbav:"region"`

	// Action is the operation performed (deploy or destroy)
	Action Action `json:"action" dynamodbav:"action"`

	// Outcome is how the run ended
	Outcome Outcome `json:"outcome" dynamodbav:"outcome"`

	// URL is the public Function URL after a successful deploy
	URL string `json:"url,omitempty" dynamodbav:"url,omitempty"`

	// ArtifactSHA256 is the hex digest of the deployed code package
	ArtifactSHA256 string `json:"artifact_sha256,omitempty" dynamodbav:"artifact_sha256,omitempty"`

	// ArtifactBytes is the size of the deployed code package
	ArtifactBytes int64 `json:"artifact_bytes,omitempty" dynamodbav:"artifact_bytes,omitempty"`

	// ErrorMessage contains error details if Outcome is failed
	ErrorMessage string `json:"error_message,omitempty" dynamodbav:"error_message,omitempty"`

	// CreatedAt is when the run finished
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// NewDeploymentRecord creates a record for a run that is about to be persisted
func NewDeploymentRecord(functionName, roleName, region string, action Action) *DeploymentRecord {
	return &DeploymentRecord{
		ID:           uuid.NewString(),
		FunctionName: functionName,
		RoleName:     roleName,
		Region:       region,
		Action:       action,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarkSucceeded records a successful outcome
func (r *DeploymentRecord) MarkSucceeded(url string) {
	r.Outcome = OutcomeSucceeded
	r.URL = url
	r.CreatedAt = time.Now().UTC()
}

// MarkFailed records a failed outcome with the fatal error message
func (r *DeploymentRecord) MarkFailed(errorMessage string) {
	r.Outcome = OutcomeFailed
	r.ErrorMessage = errorMessage
	r.CreatedAt = time.Now().UTC()
}
