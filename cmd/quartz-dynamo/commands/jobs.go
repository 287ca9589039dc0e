package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukeryannetnz/quartz-dynamo/jobstore"
	"github.com/lukeryannetnz/quartz-dynamo/quartz"
)

// JobsCmd represents the jobs command
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect stored jobs",
	Long: `jobs - Inspect stored jobs

Examples:
  quartz-dynamo jobs ls                  # List jobs across all groups
  quartz-dynamo jobs ls --group reports  # List jobs in one group`,
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored jobs",
	RunE:  runJobsLs,
}

var jobsGroupFlag string

func init() {
	JobsCmd.AddCommand(jobsLsCmd)
	jobsLsCmd.Flags().StringVar(&jobsGroupFlag, "group", "", "Only list jobs in this group")
}

func runJobsLs(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	matcher := quartz.AnyGroup()
	if jobsGroupFlag != "" {
		matcher = quartz.GroupEquals(jobsGroupFlag)
	}

	keys, err := store.GetJobKeys(cmd.Context(), matcher)
	if err != nil {
		return err
	}
	for _, key := range keys {
		job, err := store.RetrieveJob(cmd.Context(), key)
		if err != nil {
			return err
		}
		if job == nil {
			continue
		}
		durable := ""
		if job.Durable {
			durable = " durable"
		}
		fmt.Printf("%-40s %s%s\n", key, job.JobType, durable)
	}
	fmt.Printf("%d jobs\n", len(keys))
	return nil
}

// openStore builds a read-only job store over the DynamoDB backend.
func openStore(cmd *cobra.Command) (*jobstore.JobStore, error) {
	backend, err := openBackend(cmd)
	if err != nil {
		return nil, err
	}
	return jobstore.New(backend, jobstore.Config{InstanceID: "quartz-dynamo-cli"}, nil), nil
}
