package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

const (
	// PropagationAttempts bounds the post-creation existence poll
	PropagationAttempts = 5
	// PropagationInterval is the fixed delay between poll attempts
	PropagationInterval = 2 * time.Second

	// BasicExecutionPolicyArn is the managed policy attached to every
	// execution role this deployer creates
	BasicExecutionPolicyArn = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
)

// lambdaTrustPolicy scopes sts:AssumeRole to the Lambda service principal
const lambdaTrustPolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"Service": "lambda.amazonaws.com"},
		"Action": "sts:AssumeRole"
	}]
}`

// IdentityAPI is the slice of the IAM client the role reconciler uses
type IdentityAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// RoleReconciler drives a named execution role toward the desired state
type RoleReconciler struct {
	client IdentityAPI
	logger *slog.Logger

	// poll settings default to the exported constants; tests shrink them
	propagationAttempts int
	propagationInterval time.Duration
}

// NewRoleReconciler creates a role reconciler over the given identity client
func NewRoleReconciler(client IdentityAPI, logger *slog.Logger) *RoleReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RoleReconciler{
		client:              client,
		logger:              logger,
		propagationAttempts: PropagationAttempts,
		propagationInterval: PropagationInterval,
	}
}

// Exists looks the role up by name. A missing role is not an error.
func (r *RoleReconciler) Exists(ctx context.Context, roleName string) (string, bool, error) {
	out, err := r.client.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		var notFound *iamtypes.NoSuchEntityException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up role %s: %w", roleName, err)
	}

	if out.Role == nil || out.Role.Arn == nil {
		return "", false, fmt.Errorf("%w: role lookup for %s returned no ARN", ErrIncompleteResponse, roleName)
	}

	return aws.ToString(out.Role.Arn), true, nil
}

// EnsureExists returns the ARN of the named role, creating it with the Lambda
// trust policy and the basic execution policy when absent. After creation it
// polls Exists to absorb the identity service's propagation window; if the
// poll budget runs out it returns the creation-time ARN and lets the first
// dependent call surface the propagation failure.
func (r *RoleReconciler) EnsureExists(ctx context.Context, roleName string) (string, error) {
	arn, ok, err := r.Exists(ctx, roleName)
	if err != nil {
		return "", err
	}
	if ok {
		r.logger.DebugContext(ctx, "role already exists",
			slog.String("role_name", roleName),
			slog.String("role_arn", arn),
		)
		return arn, nil
	}

	created, err := r.client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(lambdaTrustPolicy),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create role %s: %w", roleName, err)
	}
	if created.Role == nil || created.Role.Arn == nil {
		return "", fmt.Errorf("%w: role creation for %s returned no ARN", ErrIncompleteResponse, roleName)
	}
	createdArn := aws.ToString(created.Role.Arn)

	_, err = r.client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(BasicExecutionPolicyArn),
	})
	if err != nil {
		return "", fmt.Errorf("failed to attach execution policy to role %s: %w", roleName, err)
	}

	r.logger.InfoContext(ctx, "role created",
		slog.String("role_name", roleName),
		slog.String("role_arn", createdArn),
	)

	for attempt := 1; attempt <= r.propagationAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.propagationInterval):
		}

		arn, ok, err := r.Exists(ctx, roleName)
		if err != nil {
			return "", err
		}
		if ok {
			return arn, nil
		}

		r.logger.DebugContext(ctx, "role not yet propagated",
			slog.String("role_name", roleName),
			slog.Int("attempt", attempt),
		)
	}

	// Soft degrade: a still-unpropagated role fails at function creation,
	// not here
	r.logger.WarnContext(ctx, "role propagation not observed within poll budget",
		slog.String("role_name", roleName),
		slog.Int("attempts", r.propagationAttempts),
	)
	return createdArn, nil
}

// Remove deletes the role by name without checking existence first. The
// managed policy must be detached before IAM will accept the delete.
func (r *RoleReconciler) Remove(ctx context.Context, roleName string) error {
	_, err := r.client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(BasicExecutionPolicyArn),
	})
	if err != nil {
		var notFound *iamtypes.NoSuchEntityException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to detach execution policy from role %s: %w", roleName, err)
		}
	}

	_, err = r.client.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete role %s: %w", roleName, err)
	}

	r.logger.InfoContext(ctx, "role deleted", slog.String("role_name", roleName))
	return nil
}
