package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coah80/clipbot/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "clipbot", config.Version)
	},
}
