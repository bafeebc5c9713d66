package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Triaksa-Space/be-admin-console/console"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/querycache"
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	var f user.ListFilter

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users with their activity status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}

			list := console.NewUserList(api, querycache.New(16, time.Minute), 0, nil)
			defer list.Close()

			page, err := list.SetFilter(cmd.Context(), f)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tACTIVITY")
			for _, u := range page.Users {
				role := ""
				if u.RoleName != nil {
					role = *u.RoleName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%t\t%s\n", u.ID, u.Email, u.FirstName, u.LastName, role, u.IsActive, u.ActivityStatus)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d users)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Search, "search", "", "Match email or name")
	cmd.Flags().StringVar(&f.Status, "status", "", "active, inactive or banned")
	cmd.Flags().StringVar(&f.Role, "role", "", "Role name")
	cmd.Flags().IntVar(&f.Page, "page", 1, "Page number")
	return cmd
}
