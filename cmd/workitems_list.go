package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
	"github.com/christopherhouse/azure-devops-ai-agent/pkg/client"
)

// workItemsListCmd represents the workitems list command
var workItemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent work items",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := cmd.Flags().GetString("project")
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching work items...")
		items, correlation, err := cli.ListWorkItems(cmd.Context(), client.ListWorkItemsOpts{
			Project: project,
			Limit:   limit,
		})
		if err != nil {
			return logError(err, correlation, "failed to list work items")
		}

		log.Info().Msgf("Retrieved %d work items", len(items))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"ID", "Type", "State", "Title",
		})

		for _, item := range items {
			t.AppendRow(table.Row{
				item.ID,
				fieldString(item, devops.FieldWorkItemType),
				fieldString(item, devops.FieldState),
				truncate(fieldString(item, devops.FieldTitle), 60),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func fieldString(item devops.WorkItem, field string) string {
	value, ok := item.Fields[field]
	if !ok {
		return ""
	}
	return fmt.Sprint(value)
}

func init() {
	workItemsCmd.AddCommand(workItemsListCmd)

	workItemsListCmd.Flags().String("project", "", "Limit results to a project")
	workItemsListCmd.Flags().IntP("limit", "n", 25, "Number of work items to retrieve")
}
