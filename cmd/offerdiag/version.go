package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/offer-diagnostics/internal/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "offerdiag", version)
	},
}

func init() {
	api.Version = version
}
