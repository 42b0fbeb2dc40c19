package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "embednetd",
		Short: "Hosted reactor and protocol stack for embednet",
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML/JSON/TOML config file")
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}
