package commands

import (
	"github.com/spf13/cobra"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/storage/dynamo"
)

// TablesCmd represents the tables command
var TablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage the store's DynamoDB tables",
	Long: `tables - Manage the store's DynamoDB tables

Examples:
  quartz-dynamo tables create     # Create any missing tables`,
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create any missing tables",
	Long:  "Create the JobDetail, Trigger, TriggerGroup, Calendar and Scheduler tables, skipping ones that already exist",
	RunE:  runTablesCreate,
}

func init() {
	TablesCmd.AddCommand(tablesCreateCmd)
}

func runTablesCreate(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd)
	if err != nil {
		return err
	}
	if err := backend.Bootstrap(cmd.Context()); err != nil {
		return errors.Wrap(err, "failed to create tables")
	}
	return nil
}

// openBackend builds a DynamoDB backend from the environment.
func openBackend(cmd *cobra.Command) (*dynamo.Backend, error) {
	cfg := dynamo.LoadConfig()
	client, err := dynamo.NewClient(cmd.Context(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build DynamoDB client")
	}
	return dynamo.New(client, cfg.TablePrefix), nil
}
