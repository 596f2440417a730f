package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version 构建时注入
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of quill",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "quill version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
