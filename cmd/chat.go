package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crewd/internal/agent"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <agent-id> <message>",
		Short: "Send one message to an agent and print its response",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfig()
			rt, err := buildRuntime(ctx, cfg, true)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			id := mustUUID(args[0], "agent id")
			a, err := rt.store.Agents.Get(ctx, id)
			if err != nil {
				fatal("load agent: %s", err)
			}

			backend, err := rt.router.Resolve(ctx, a.Model)
			if err != nil {
				fatal("%s", err)
			}
			req := agent.RunRequest{
				AgentID:      a.ID,
				TeamID:       a.TeamID,
				UserMessage:  args[1],
				Backend:      backend,
				ModelID:      a.Model,
				SystemPrompt: a.SystemPrompt,
				Tools:        rt.toolDefs(),
				Workspace:    cfg.Workspace,
			}
			if cfg.FallbackModel != "" && cfg.FallbackModel != a.Model {
				if fb, err := rt.router.Resolve(ctx, cfg.FallbackModel); err == nil {
					req.Fallback = &fb
				}
			}

			res, err := rt.loop.RunTurn(ctx, req)
			if err != nil {
				fatal("run turn: %s", err)
			}
			fmt.Println(res.Response)
			if len(res.ToolCalls) > 0 {
				fmt.Printf("\n(%d iterations, %d tool calls)\n", res.Iterations, len(res.ToolCalls))
			}
		},
	}
	return cmd
}
