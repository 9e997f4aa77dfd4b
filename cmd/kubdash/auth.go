package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubdash/kubdash/pkg/models"
)

func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv("KUBDASH_PASSWORD"); p != "" {
		return p, nil
	}
	return "", errors.New("password required (--password or KUBDASH_PASSWORD)")
}

func newLoginCmd(conf *configFile) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and cache the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			return withApp(conf, func(a *app) error {
				u, err := a.client.Login(cmd.Context(), email, pw)
				if err != nil {
					return err
				}
				fmt.Printf("Logged in as %s (id %d)\n", u.DisplayName(), u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(conf *configFile) *cobra.Command {
	var reg models.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with profile details",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(reg.Password)
			if err != nil {
				return err
			}
			reg.Password = pw
			return withApp(conf, func(a *app) error {
				u, err := a.client.Register(cmd.Context(), reg)
				if err != nil {
					return err
				}
				fmt.Printf("Registered %s (id %d)\n", u.DisplayName(), u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(conf *configFile) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the session token and expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				a.client.Logout()
				if err := a.client.ClearToken(); err != nil {
					return err
				}
				fmt.Println("Logged out.")
				return nil
			})
		},
	}
}

func newTokenCmd(conf *configFile) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token used for event endpoints",
	}

	setCmd := &cobra.Command{
		Use:   "set <token>",
		Short: "Store a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				if err := a.client.SetToken(args[0]); err != nil {
					return err
				}
				fmt.Println("Token stored.")
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				return a.client.ClearToken()
			})
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}
