package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func approvalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Review and resolve pending approval requests",
	}
	cmd.AddCommand(approvalsListCmd())
	cmd.AddCommand(approvalsResolveCmd("approve", true))
	cmd.AddCommand(approvalsResolveCmd("reject", false))
	return cmd
}

func approvalsListCmd() *cobra.Command {
	var teamID, agentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending approvals",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			var tid, aid uuid.UUID
			if teamID != "" {
				tid = mustUUID(teamID, "--team")
			}
			if agentID != "" {
				aid = mustUUID(agentID, "--agent")
			}
			pending, err := rt.gate.ListPending(ctx, tid, aid)
			if err != nil {
				fatal("list approvals: %s", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tAGENT\tACTION\tRISK\tREQUESTED\n")
			for _, a := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.AgentID, a.ActionType, a.RiskLevel, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			tw.Flush()
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "filter by team id")
	cmd.Flags().StringVar(&agentID, "agent", "", "filter by agent id")
	return cmd
}

func approvalsResolveCmd(verb string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <approval-id>",
		Short: verb + " a pending approval",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			a, err := rt.gate.Resolve(ctx, mustUUID(args[0], "approval id"), approved)
			if err != nil {
				fatal("%s approval: %s", verb, err)
			}
			fmt.Printf("approval %s is now %s\n", a.ID, a.Status)
		},
	}
}
