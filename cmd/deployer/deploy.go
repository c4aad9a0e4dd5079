package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrzesz33/rez_deploy/internal/artifact"
	"github.com/jrzesz33/rez_deploy/internal/deploy"
	"github.com/jrzesz33/rez_deploy/internal/logging"
)

// newDeployCmd creates the "deploy" subcommand
func newDeployCmd() *cobra.Command {
	var flags targetFlags
	var artifactPath string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Provision or update the function and its public URL",
		Long: `Deploy converges the account to a fully provisioned state: execution
role, function (created, or code updated in place when it already exists)
and public Function URL with the anonymous-invoke grant.

The artifact is a prebuilt bootstrap binary or a build output directory;
it is zipped and validated before any function call.

Examples:
    deployer deploy --artifact ./build/bootstrap
    deployer deploy -f deploy.yaml --region eu-west-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(flags, artifactPath)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "Path to the built bootstrap binary or build directory (overrides config)")

	return cmd
}

func runDeploy(flags targetFlags, artifactPath string) error {
	logger := logging.New("deployer")
	ctx, stop := runContext()
	defer stop()

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if artifactPath != "" {
		cfg.ArtifactPath = artifactPath
	}
	if cfg.ArtifactPath == "" {
		return fmt.Errorf("an artifact path is required (--artifact or ARTIFACT_PATH)")
	}

	if cfg.BuildImage != "" {
		// the build itself runs outside this tool; the image is informational
		logger.Info("artifact built externally", "build_image", cfg.BuildImage)
	}

	producer, err := producerFor(cfg.ArtifactPath)
	if err != nil {
		return err
	}

	deployer, err := buildDeployer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := deployer.Deploy(ctx, deploy.Request{
		FunctionName:   cfg.FunctionName,
		RoleName:       cfg.RoleName,
		Region:         cfg.Region,
		Handler:        cfg.Handler,
		Runtime:        cfg.Runtime,
		Architecture:   cfg.Architecture,
		MemoryMB:       cfg.MemoryMB,
		TimeoutSeconds: cfg.TimeoutSeconds,
		Artifact:       producer,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}

// producerFor picks the packaging strategy for the artifact path
func producerFor(path string) (artifact.Producer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("artifact path %s: %w", path, err)
	}

	if info.IsDir() {
		return artifact.DirProducer(path), nil
	}
	return artifact.FileProducer(path, "bootstrap"), nil
}
