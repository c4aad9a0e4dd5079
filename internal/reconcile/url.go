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

// PublicAccessStatementID keys the anonymous-invoke grant. Reusing the same
// statement id keeps repeated grants idempotent instead of additive.
const PublicAccessStatementID = "FunctionURLAllowPublicAccess"

const invokeURLAction = "lambda:InvokeFunctionUrl"

// FunctionURLAPI is the slice of the Lambda client the URL reconciler uses
type FunctionURLAPI interface {
	GetFunctionUrlConfig(ctx context.Context, params *lambda.GetFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error)
	CreateFunctionUrlConfig(ctx context.Context, params *lambda.CreateFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error)
	DeleteFunctionUrlConfig(ctx context.Context, params *lambda.DeleteFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionUrlConfigOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// URLConfig describes the URL configuration to create
type URLConfig struct {
	AuthType         lambdatypes.FunctionUrlAuthType
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
}

// DefaultURLConfig is a public URL with a wildcard CORS policy
func DefaultURLConfig() URLConfig {
	return URLConfig{
		AuthType:     lambdatypes.FunctionUrlAuthTypeNone,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"*"},
		AllowHeaders: []string{"*"},
	}
}

// URLReconciler drives a function's URL configuration toward the desired state
type URLReconciler struct {
	client FunctionURLAPI
	logger *slog.Logger
}

// NewURLReconciler creates a URL reconciler over the given client
func NewURLReconciler(client FunctionURLAPI, logger *slog.Logger) *URLReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &URLReconciler{
		client: client,
		logger: logger,
	}
}

// URLExists looks up the function's URL configuration. A missing
// configuration is not an error.
func (r *URLReconciler) URLExists(ctx context.Context, name string) (string, bool, error) {
	out, err := r.client.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up URL config for function %s: %w", name, err)
	}

	if out.FunctionUrl == nil {
		return "", false, fmt.Errorf("%w: URL config lookup for %s returned no URL", ErrIncompleteResponse, name)
	}

	return aws.ToString(out.FunctionUrl), true, nil
}

// EnsureURL returns the function's public URL, creating the URL configuration
// and granting the anonymous-invoke permission when absent. A URL config
// without the matching resource-policy grant serves 403 to anonymous callers,
// so both steps belong to the same operation.
func (r *URLReconciler) EnsureURL(ctx context.Context, name string, cfg URLConfig) (string, error) {
	url, ok, err := r.URLExists(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		r.logger.DebugContext(ctx, "function URL already exists",
			slog.String("function_name", name),
			slog.String("url", url),
		)
		return url, nil
	}

	out, err := r.client.CreateFunctionUrlConfig(ctx, &lambda.CreateFunctionUrlConfigInput{
		FunctionName: aws.String(name),
		AuthType:     cfg.AuthType,
		Cors: &lambdatypes.Cors{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     cfg.AllowMethods,
			AllowHeaders:     cfg.AllowHeaders,
			AllowCredentials: aws.Bool(cfg.AllowCredentials),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create URL config for function %s: %w", name, err)
	}
	if out.FunctionUrl == nil {
		return "", fmt.Errorf("%w: URL creation for %s returned no URL", ErrIncompleteResponse, name)
	}
	url = aws.ToString(out.FunctionUrl)

	r.logger.InfoContext(ctx, "function URL created",
		slog.String("function_name", name),
		slog.String("url", url),
	)

	if cfg.AuthType == lambdatypes.FunctionUrlAuthTypeNone {
		if err := r.grantPublicAccess(ctx, name); err != nil {
			return "", err
		}
	}

	return url, nil
}

// grantPublicAccess adds the anonymous-invoke permission under the fixed
// statement id. An existing grant is the desired end state, so a conflict
// is success.
func (r *URLReconciler) grantPublicAccess(ctx context.Context, name string) error {
	_, err := r.client.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:        aws.String(name),
		StatementId:         aws.String(PublicAccessStatementID),
		Action:              aws.String(invokeURLAction),
		Principal:           aws.String("*"),
		FunctionUrlAuthType: lambdatypes.FunctionUrlAuthTypeNone,
	})
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		if errors.As(err, &conflict) {
			r.logger.DebugContext(ctx, "public access grant already present",
				slog.String("function_name", name),
			)
			return nil
		}
		return fmt.Errorf("failed to grant public access to function %s: %w", name, err)
	}

	r.logger.InfoContext(ctx, "public access granted",
		slog.String("function_name", name),
		slog.String("statement_id", PublicAccessStatementID),
	)

	return nil
}

// DeleteURL removes the function's URL configuration by name
func (r *URLReconciler) DeleteURL(ctx context.Context, name string) error {
	_, err := r.client.DeleteFunctionUrlConfig(ctx, &lambda.DeleteFunctionUrlConfigInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete URL config for function %s: %w", name, err)
	}

	r.logger.InfoContext(ctx, "function URL deleted", slog.String("function_name", name))
	return nil
}
