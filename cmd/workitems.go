package cmd

import "github.com/spf13/cobra"

var workItemsCmd = &cobra.Command{
	Use:   "workitems",
	Short: "Work with Azure DevOps work items",
}

func init() {
	rootCmd.AddCommand(workItemsCmd)
}
