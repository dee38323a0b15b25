package cmd

import (
	"fmt"

	"TuneBox/logger"
	"TuneBox/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动TuneBox服务器",
	Long:  `启动TuneBox的HTTP服务器，提供曲库、歌单和用户API，以及可选的Web界面`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Info("[Server] Starting TuneBox server...",
		logger.String("db", cfg.DBDriver),
		logger.String("storage", cfg.StorageBackend))
	return server.Start(cfg)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
