package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill continues or expands text with an AI writing service",
	Long:  `Quill sends the text before the cursor (or the selected text) to the generation endpoint and inserts the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logger.InitWithWriter(os.Stderr, level, "text")
	},
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultDir, "Directory containing config.yaml")
	rootCmd.PersistentFlags().String("endpoint", "", "Generation endpoint, overrides client.endpoint")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}

// loadClientConfig 读取配置并应用命令行覆盖
func loadClientConfig(cmd *cobra.Command) (config.ClientConfig, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return config.ClientConfig{}, err
	}
	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		cfg.Client.Endpoint = endpoint
	}
	return cfg.Client, nil
}
