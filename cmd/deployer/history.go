package main

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/jrzesz33/rez_deploy/internal/history"
	"github.com/jrzesz33/rez_deploy/internal/logging"
	"github.com/jrzesz33/rez_deploy/internal/provider"
)

// newHistoryCmd creates the "history" subcommand
func newHistoryCmd() *cobra.Command {
	var flags targetFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deploy and destroy runs",
		Long: `History lists the most recent runs recorded in the deployment history
table (DEPLOY_HISTORY_TABLE or history_table in the manifest), newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(flags, limit)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func runHistory(flags targetFlags, limit int) error {
	logger := logging.New("deployer")
	ctx, stop := runContext()
	defer stop()

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.HistoryTableName == "" {
		return fmt.Errorf("no history table configured (DEPLOY_HISTORY_TABLE)")
	}

	creds, err := resolveCredentials(ctx, cfg, logger)
	if err != nil {
		return err
	}
	clients, err := provider.Resolve(ctx, creds, cfg.Region)
	if err != nil {
		return err
	}

	repo := history.NewDynamoDBRepository(
		dynamodb.NewFromConfig(clients.Config), cfg.HistoryTableName, logger)

	records, err := repo.ListRecent(ctx, cfg.FunctionName, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-7s  %-9s  %s",
			r.CreatedAt.Format(time.RFC3339), r.Action, r.Outcome, r.FunctionName)
		if r.URL != "" {
			line += "  " + r.URL
		}
		if r.ErrorMessage != "" {
			line += "  " + r.ErrorMessage
		}
		fmt.Println(line)
	}

	return nil
}
