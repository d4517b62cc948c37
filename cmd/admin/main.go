package main

import (
	"os"

	"github.com/Kyushi/pemoi/cmd/admin/cmd"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Operator tools for pemoi",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.BootstrapCmd())
	rootCmd.AddCommand(cmd.UserCmd())
	rootCmd.AddCommand(cmd.EnvCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
