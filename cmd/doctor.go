package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor <team-id>",
		Short: "Verify that a team's ledger deltas sum to its balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			tid := mustUUID(args[0], "team id")
			if err := rt.meter.Reconcile(ctx, tid); err != nil {
				fatal("ledger check failed: %s", err)
			}
			balance, err := rt.meter.Balance(ctx, tid)
			if err != nil {
				fatal("get balance: %s", err)
			}
			fmt.Printf("ledger is consistent, balance %d\n", balance)
		},
	}
}
