package cli

import (
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the current presence roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatusResult

			if err := client.Get("/api/v1/status", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(UserList{
				TotalUsers: result.TotalUsers,
				Truncated:  result.Truncated,
				Users:      result.Users,
			})
			return nil
		},
	}
}
