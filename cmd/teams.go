package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

func teamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage teams",
	}
	cmd.AddCommand(teamsCreateCmd())
	return cmd
}

func teamsCreateCmd() *cobra.Command {
	var name string
	var startingCredits int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team, optionally with a starting credit balance",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			team := &store.TeamData{ID: store.GenNewID(), Name: name}
			if err := rt.store.Teams.Create(ctx, team); err != nil {
				fatal("create team: %s", err)
			}
			if startingCredits > 0 {
				if _, err := rt.meter.Topup(ctx, team.ID, startingCredits, "initial balance"); err != nil {
					fatal("grant starting credits: %s", err)
				}
			}
			fmt.Println(team.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "team name (required)")
	cmd.Flags().Int64Var(&startingCredits, "credits", 0, "starting credit balance")
	cmd.MarkFlagRequired("name")
	return cmd
}
