package cmd

import "github.com/spf13/cobra"

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log commands",
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
