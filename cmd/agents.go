package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agents",
	}
	cmd.AddCommand(agentsListCmd())
	cmd.AddCommand(agentsCreateCmd())
	cmd.AddCommand(agentsStatusCmd("start", store.AgentRunning, "Start an agent (installs its heartbeat timer)"))
	cmd.AddCommand(agentsStatusCmd("pause", store.AgentPaused, "Pause an agent (removes its heartbeat timer)"))
	cmd.AddCommand(agentsStatusCmd("stop", store.AgentStopped, "Stop an agent"))
	return cmd
}

func agentsListCmd() *cobra.Command {
	var teamID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a team's agents",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			tid := mustUUID(teamID, "--team")
			agents, err := rt.store.Agents.List(ctx, tid)
			if err != nil {
				fatal("list agents: %s", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tNAME\tSTATUS\tPROACTIVE\tMODEL\tHEARTBEAT\tHOURS\n")
			for _, a := range agents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%ds\t%02d-%02d\n",
					a.ID, a.DisplayName, a.Status, a.Proactive, a.Model,
					a.HeartbeatSeconds, a.ActiveHoursStart, a.ActiveHoursEnd)
			}
			tw.Flush()
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "team id (required)")
	cmd.MarkFlagRequired("team")
	return cmd
}

func agentsCreateCmd() *cobra.Command {
	var (
		teamID    string
		name      string
		model     string
		prompt    string
		proactive bool
		interval  int
		hours     []int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfig()
			rt, err := buildRuntime(ctx, cfg, false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			if interval <= 0 {
				interval = cfg.Heartbeat.DefaultIntervalSeconds
			}
			a := &store.AgentData{
				ID:               store.GenNewID(),
				TeamID:           mustUUID(teamID, "--team"),
				DisplayName:      name,
				Status:           store.AgentStopped,
				Proactive:        proactive,
				HeartbeatSeconds: interval,
				ActiveHoursStart: hours[0],
				ActiveHoursEnd:   hours[1],
				Model:            model,
				SystemPrompt:     prompt,
			}
			if err := rt.store.Agents.Create(ctx, a); err != nil {
				fatal("create agent: %s", err)
			}
			fmt.Println(a.ID)
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "team id (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&model, "model", "smart", "logical model")
	cmd.Flags().StringVar(&prompt, "prompt", "", "system prompt")
	cmd.Flags().BoolVar(&proactive, "proactive", false, "act on heartbeats")
	cmd.Flags().IntVar(&interval, "interval", 0, "heartbeat interval in seconds")
	cmd.Flags().IntSliceVar(&hours, "hours", []int{0, 0}, "active hours window start,end (0,0 = always)")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("name")
	return cmd
}

// agentsStatusCmd builds start/pause/stop, which share everything except
// the target status. The scheduler sync happens in the serve process on
// its next tick; standalone one-shots only persist the status change.
func agentsStatusCmd(verb, status, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <agent-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			id := mustUUID(args[0], "agent id")
			if err := rt.store.Agents.SetStatus(ctx, id, status); err != nil {
				fatal("%s agent: %s", verb, err)
			}
			fmt.Printf("agent %s is now %s\n", id, status)
		},
	}
}

func mustUUID(s, what string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		fatal("invalid %s: %s", what, err)
	}
	return id
}
