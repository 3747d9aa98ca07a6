package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// projectsListCmd represents the projects list command
var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the projects of the configured organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching projects...")
		projects, correlation, err := cli.ListProjects(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to list projects")
		}

		log.Info().Msgf("Retrieved %d projects", len(projects))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Name", "ID", "State", "Visibility", "Description",
		})

		for _, p := range projects {
			t.AppendRow(table.Row{
				p.Name,
				p.ID,
				p.State,
				p.Visibility,
				truncate(p.Description, 50),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
}
