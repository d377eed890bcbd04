package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "saasctl",
	Short: "Run and administer the saasgate API server",
	Long: `saasctl runs the saasgate API server and manages its database,
seed data and users.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
