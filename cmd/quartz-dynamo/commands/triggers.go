package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukeryannetnz/quartz-dynamo/quartz"
)

// TriggersCmd represents the triggers command
var TriggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "Inspect stored triggers",
	Long: `triggers - Inspect stored triggers

Examples:
  quartz-dynamo triggers ls                  # List triggers across all groups
  quartz-dynamo triggers ls --group nightly  # List triggers in one group`,
}

var triggersLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored triggers with state and next fire time",
	RunE:  runTriggersLs,
}

var triggersGroupFlag string

func init() {
	TriggersCmd.AddCommand(triggersLsCmd)
	triggersLsCmd.Flags().StringVar(&triggersGroupFlag, "group", "", "Only list triggers in this group")
}

func runTriggersLs(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	matcher := quartz.AnyGroup()
	if triggersGroupFlag != "" {
		matcher = quartz.GroupEquals(triggersGroupFlag)
	}

	keys, err := store.GetTriggerKeys(cmd.Context(), matcher)
	if err != nil {
		return err
	}
	for _, key := range keys {
		trigger, err := store.RetrieveTrigger(cmd.Context(), key)
		if err != nil {
			return err
		}
		if trigger == nil {
			continue
		}
		state, err := store.GetTriggerState(cmd.Context(), key)
		if err != nil {
			return err
		}
		next := "-"
		if trigger.NextFireTime != nil {
			next = trigger.NextFireTime.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-40s %-10s %-20s job=%s\n", key, state, next, trigger.JobKey)
	}
	fmt.Printf("%d triggers\n", len(keys))
	return nil
}
