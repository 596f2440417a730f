package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill-ai-editor/internal/domain/entity"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the available writing styles",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, s := range entity.Styles() {
			marker := ""
			if s == entity.DefaultStyle {
				marker = " (default)"
			}
			fmt.Fprintf(out, "%-13s %s%s\n", s, s.Label(), marker)
		}
	},
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}
