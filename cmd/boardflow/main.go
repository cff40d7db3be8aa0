package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/boardflow/core/cmd/boardflow/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardflow",
		Short: "BoardFlow boards client and development server",
		Long:  `BoardFlow is a Telegram Mini App boards backend client with a bundled development server for local work.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewClientCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
