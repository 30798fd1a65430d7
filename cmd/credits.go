package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func creditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and top up team credit balances",
	}
	cmd.AddCommand(creditsBalanceCmd())
	cmd.AddCommand(creditsTopupCmd())
	cmd.AddCommand(creditsLedgerCmd())
	return cmd
}

func creditsBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <team-id>",
		Short: "Show a team's credit balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			balance, err := rt.meter.Balance(ctx, mustUUID(args[0], "team id"))
			if err != nil {
				fatal("get balance: %s", err)
			}
			fmt.Println(balance)
		},
	}
}

func creditsTopupCmd() *cobra.Command {
	var amount int64
	var note string
	cmd := &cobra.Command{
		Use:   "topup <team-id>",
		Short: "Add credits to a team's balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			if amount <= 0 {
				fatal("--amount must be positive")
			}
			newBalance, err := rt.meter.Topup(ctx, mustUUID(args[0], "team id"), amount, note)
			if err != nil {
				fatal("topup: %s", err)
			}
			fmt.Printf("new balance: %d\n", newBalance)
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "credits to add (required)")
	cmd.Flags().StringVar(&note, "note", "manual topup", "ledger description")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func creditsLedgerCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ledger <team-id>",
		Short: "Show a team's recent ledger entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			entries, err := rt.store.Credits.Ledger(ctx, mustUUID(args[0], "team id"), limit)
			if err != nil {
				fatal("read ledger: %s", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "WHEN\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%+d\t%d\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.TxType, e.Amount, e.BalanceAfter, e.Description)
			}
			tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries")
	return cmd
}
