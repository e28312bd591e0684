package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	timeout time.Duration
	debug   bool
	strict  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "calor",
	Short: "calor - contract verification tooling for the Calor notation",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func main() {
	var err error
	if logger, err = zap.NewProduction(); err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "solving time budget per contract clause")
	rootCmd.AddCommand(verifyCmd)
}
