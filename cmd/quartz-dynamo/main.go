package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukeryannetnz/quartz-dynamo/cmd/quartz-dynamo/commands"
	"github.com/lukeryannetnz/quartz-dynamo/logger"
)

var rootCmd = &cobra.Command{
	Use:   "quartz-dynamo",
	Short: "Inspect and bootstrap a DynamoDB-backed scheduler store",
	Long: `quartz-dynamo - Operate a DynamoDB-backed scheduler job store

Available commands:
  tables   - Create the store's DynamoDB tables
  jobs     - List stored jobs
  triggers - List stored triggers

Configuration comes from QUARTZ_DYNAMO_* environment variables
(REGION, ENDPOINT, ACCESS_KEY, SECRET_KEY, TABLE_PREFIX).

Examples:
  quartz-dynamo tables create     # Bootstrap tables against the endpoint
  quartz-dynamo jobs ls           # List jobs across all groups
  quartz-dynamo triggers ls       # List triggers with state and fire times`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.TablesCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.TriggersCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
