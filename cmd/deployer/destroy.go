package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrzesz33/rez_deploy/internal/deploy"
	"github.com/jrzesz33/rez_deploy/internal/logging"
)

// newDestroyCmd creates the "destroy" subcommand
func newDestroyCmd() *cobra.Command {
	var flags targetFlags

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Remove the function, its role and its URL configuration",
		Long: `Destroy tears the stack down. Resources that are already absent are
skipped, so destroying a partially provisioned or empty account succeeds.

Examples:
    deployer destroy
    deployer destroy --function site-fn --role site-fn-role`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runDestroy(flags targetFlags) error {
	logger := logging.New("deployer")
	ctx, stop := runContext()
	defer stop()

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	deployer, err := buildDeployer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := deployer.Destroy(ctx, deploy.Request{
		FunctionName: cfg.FunctionName,
		RoleName:     cfg.RoleName,
		Region:       cfg.Region,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}
