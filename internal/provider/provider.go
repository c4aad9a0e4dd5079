package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Credentials is the opaque credential triple supplied by the caller.
// A zero value falls back to the ambient AWS credential chain.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// IsStatic reports whether an explicit key pair was supplied
func (c Credentials) IsStatic() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Clients bundles the authenticated service clients one run operates through.
// Config is the resolved AWS configuration, exposed so callers can construct
// clients for the optional collaborators from the same credentials.
type Clients struct {
	Config   aws.Config
	Identity *iam.Client
	Function *lambda.Client
}

// Resolve builds fresh service clients for the given credentials and region.
// Clients are never cached across calls, so credential rotation between runs
// always takes effect.
func Resolve(ctx context.Context, creds Credentials, region string) (*Clients, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if creds.IsStatic() {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				creds.SessionToken,
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Clients{
		Config:   cfg,
		Identity: iam.NewFromConfig(cfg),
		Function: lambda.NewFromConfig(cfg),
	}, nil
}
