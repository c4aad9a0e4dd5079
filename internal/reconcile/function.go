package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Function defaults applied when a FunctionSpec leaves them unset
const (
	DefaultHandler        = "bootstrap"
	DefaultRuntime        = "provided.al2023"
	DefaultArchitecture   = "arm64"
	DefaultMemoryMB       = int32(128)
	DefaultTimeoutSeconds = int32(30)
)

// FunctionAPI is the slice of the Lambda client the function reconciler uses
type FunctionAPI interface {
	GetFunction(ctx context.Context, params *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
}

// FunctionSpec describes the function to create. Code is the zipped artifact.
type FunctionSpec struct {
	Name           string
	RoleArn        string
	Handler        string
	Runtime        string
	Architecture   string
	MemoryMB       int32
	TimeoutSeconds int32
	Code           []byte
}

// withDefaults fills unset optional fields
func (s FunctionSpec) withDefaults() FunctionSpec {
	if s.Handler == "" {
		s.Handler = DefaultHandler
	}
	if s.Runtime == "" {
		s.Runtime = DefaultRuntime
	}
	if s.Architecture == "" {
		s.Architecture = DefaultArchitecture
	}
	if s.MemoryMB == 0 {
		s.MemoryMB = DefaultMemoryMB
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return s
}

// validate rejects bad input before any network call
func (s FunctionSpec) validate() error {
	if s.Name == "" {
		return errors.New("function name is required")
	}
	if s.RoleArn == "" {
		return errors.New("execution role ARN is required")
	}
	if len(s.Code) == 0 {
		return ErrEmptyArtifact
	}
	if !validRuntime(s.Runtime) {
		return fmt.Errorf("%w: %s", ErrUnknownRuntime, s.Runtime)
	}
	if !validArchitecture(s.Architecture) {
		return fmt.Errorf("%w: %s", ErrUnknownArchitecture, s.Architecture)
	}
	return nil
}

// validRuntime checks the identifier against the platform's enumerated set
func validRuntime(id string) bool {
	for _, r := range lambdatypes.Runtime("").Values() {
		if string(r) == id {
			return true
		}
	}
	return false
}

func validArchitecture(id string) bool {
	for _, a := range lambdatypes.Architecture("").Values() {
		if string(a) == id {
			return true
		}
	}
	return false
}

// FunctionReconciler drives a named Lambda function toward the desired state
type FunctionReconciler struct {
	client FunctionAPI
	logger *slog.Logger
}

// NewFunctionReconciler creates a function reconciler over the given client
func NewFunctionReconciler(client FunctionAPI, logger *slog.Logger) *FunctionReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &FunctionReconciler{
		client: client,
		logger: logger,
	}
}

// Exists reports whether the named function exists. A missing function is
// not an error.
func (r *FunctionReconciler) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.client.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up function %s: %w", name, err)
	}

	return true, nil
}

// Create creates the function from the spec and returns its ARN. It is
// strictly a creation primitive: callers branch on Exists themselves.
func (r *FunctionReconciler) Create(ctx context.Context, spec FunctionSpec) (string, error) {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return "", err
	}

	out, err := r.client.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(spec.Name),
		Role:         aws.String(spec.RoleArn),
		Handler:      aws.String(spec.Handler),
		Runtime:      lambdatypes.Runtime(spec.Runtime),
		Architectures: []lambdatypes.Architecture{
			lambdatypes.Architecture(spec.Architecture),
		},
		MemorySize: aws.Int32(spec.MemoryMB),
		Timeout:    aws.Int32(spec.TimeoutSeconds),
		Code: &lambdatypes.FunctionCode{
			ZipFile: spec.Code,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create function %s: %w", spec.Name, err)
	}
	if out.FunctionArn == nil {
		return "", fmt.Errorf("%w: function creation for %s returned no ARN", ErrIncompleteResponse, spec.Name)
	}

	arn := aws.ToString(out.FunctionArn)
	r.logger.InfoContext(ctx, "function created",
		slog.String("function_name", spec.Name),
		slog.String("function_arn", arn),
		slog.String("runtime", spec.Runtime),
		slog.String("architecture", spec.Architecture),
	)

	return arn, nil
}

// UpdateCode replaces the code package of an existing function in place.
// The caller is responsible for having confirmed existence.
func (r *FunctionReconciler) UpdateCode(ctx context.Context, name string, code []byte) error {
	if len(code) == 0 {
		return ErrEmptyArtifact
	}

	_, err := r.client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(name),
		ZipFile:      code,
	})
	if err != nil {
		return fmt.Errorf("failed to update code for function %s: %w", name, err)
	}

	r.logger.InfoContext(ctx, "function code updated",
		slog.String("function_name", name),
		slog.Int("code_bytes", len(code)),
	)

	return nil
}

// Remove deletes the function by name without checking existence first
func (r *FunctionReconciler) Remove(ctx context.Context, name string) error {
	_, err := r.client.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete function %s: %w", name, err)
	}

	r.logger.InfoContext(ctx, "function deleted", slog.String("function_name", name))
	return nil
}
