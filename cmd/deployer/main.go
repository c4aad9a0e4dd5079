// Command deployer provisions a single AWS Lambda function with a public
// Function URL from a CI pipeline, and tears it down again.
//
// Usage:
//
//	deployer deploy --artifact ./build/bootstrap     Provision or update the function
//	deployer destroy                                 Remove function and role
//	deployer history                                 Show recent runs
//	deployer version                                 Show version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"

	"github.com/jrzesz33/rez_deploy/internal/deploy"
	"github.com/jrzesz33/rez_deploy/internal/history"
	"github.com/jrzesz33/rez_deploy/internal/notify"
	"github.com/jrzesz33/rez_deploy/internal/provider"
	"github.com/jrzesz33/rez_deploy/internal/reconcile"
	"github.com/jrzesz33/rez_deploy/internal/secrets"
	appconfig "github.com/jrzesz33/rez_deploy/pkg/config"
)

var version = "dev"

// runContext is the outer cancellation boundary for a run: a cancelled
// deploy leaves partial state for the next run to reconcile forward
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "deployer",
		Short: "Deploy a single Lambda function behind a public URL",
		Long: `deployer converges an AWS account toward one deployed Lambda function
with a public Function URL: execution role, function code, URL configuration
and the anonymous-invoke grant. Runs are idempotent; a partially provisioned
account from an earlier aborted run is reconciled forward.`,
	}

	rootCmd.AddCommand(
		newDeployCmd(),
		newDestroyCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deployer %s\n", version)
		},
	}
}

// targetFlags are the overrides shared by the deploy and destroy commands
type targetFlags struct {
	manifest     string
	functionName string
	roleName     string
	region       string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "f", "", "Path to a deploy.yaml manifest")
	cmd.Flags().StringVar(&f.functionName, "function", "", "Function name (overrides config)")
	cmd.Flags().StringVar(&f.roleName, "role", "", "Execution role name (overrides config)")
	cmd.Flags().StringVar(&f.region, "region", "", "Target AWS region (overrides config)")
}

// loadConfig layers env config, the optional manifest, then flag overrides
func loadConfig(flags targetFlags) (*appconfig.Config, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}

	if flags.manifest != "" {
		if err := cfg.ApplyManifest(flags.manifest); err != nil {
			return nil, err
		}
	}

	if flags.functionName != "" {
		cfg.FunctionName = flags.functionName
	}
	if flags.roleName != "" {
		cfg.RoleName = flags.roleName
	}
	if flags.region != "" {
		cfg.Region = flags.region
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveCredentials yields the credential triple for the run, preferring a
// Secrets Manager secret over the environment triple when one is configured
func resolveCredentials(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (provider.Credentials, error) {
	if cfg.CredentialsSecretName != "" {
		ambient, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return provider.Credentials{}, fmt.Errorf("failed to load ambient AWS configuration: %w", err)
		}

		manager := secrets.NewManager(ambient, logger)
		creds, err := manager.GetDeployCredentials(ctx, cfg.CredentialsSecretName)
		if err != nil {
			return provider.Credentials{}, err
		}

		return provider.Credentials{
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SessionToken,
		}, nil
	}

	return provider.Credentials{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
	}, nil
}

// buildDeployer wires the reconcilers and optional collaborators for one run
func buildDeployer(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*deploy.Deployer, error) {
	creds, err := resolveCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	clients, err := provider.Resolve(ctx, creds, cfg.Region)
	if err != nil {
		return nil, err
	}

	roles := reconcile.NewRoleReconciler(clients.Identity, logger)
	functions := reconcile.NewFunctionReconciler(clients.Function, logger)
	urls := reconcile.NewURLReconciler(clients.Function, logger)

	var recorder deploy.Recorder
	if cfg.HistoryTableName != "" {
		recorder = history.NewDynamoDBRepository(
			dynamodb.NewFromConfig(clients.Config), cfg.HistoryTableName, logger)
	}

	var notifier deploy.Notifier
	if cfg.NotificationsTopicArn != "" {
		notifier = notify.NewSNSNotifier(
			sns.NewFromConfig(clients.Config), cfg.NotificationsTopicArn, logger)
	}

	return deploy.NewDeployer(roles, functions, urls, recorder, notifier, logger), nil
}
