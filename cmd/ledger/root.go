package main

import (
	"github.com/spf13/cobra"

	"ledger/internal/cli"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Personal expense ledger with monthly budgets",
		Long: `Personal expense ledger with monthly budgets. Usage:

	ledger serve
	ledger migrate up
	ledger adduser --user alice --role admin
	ledger events
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
		},
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newAddUserCmd(),
		newEventsCmd(),
	)
	return root
}
