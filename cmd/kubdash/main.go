package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	klog "github.com/kubdash/kubdash/internal/log"
)

var version = "dev"

func main() {
	conf := &configFile{}

	root := &cobra.Command{
		Use:           "kubdash",
		Short:         "Account dashboard client with a persistent response cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			klog.Init("")
			conf.explicit = cmd.Flags().Changed("config")
		},
	}
	root.PersistentFlags().StringVarP(&conf.path, "config", "c", "kubdash.yaml", "path to config file")

	root.AddCommand(
		newLoginCmd(conf),
		newRegisterCmd(conf),
		newLogoutCmd(conf),
		newTokenCmd(conf),
		newUsersCmd(conf),
		newCacheCmd(conf),
		newEventsCmd(conf),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
