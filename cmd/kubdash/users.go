package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kubdash/kubdash/pkg/models"
)

func newUsersCmd(conf *configFile) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse registered accounts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all users with their details",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				users, err := a.client.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Println("No users found.")
					return nil
				}
				return printUsers(users)
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			return withApp(conf, func(a *app) error {
				u, err := a.client.GetUser(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printUsers([]models.UserWithDetails{*u})
			})
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func printUsers(users []models.UserWithDetails) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
	for _, u := range users {
		name, phone := "-", "-"
		if u.Details != nil {
			name, phone = u.Details.Name, u.Details.Phone
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, name, u.Email, phone)
	}
	return w.Flush()
}
