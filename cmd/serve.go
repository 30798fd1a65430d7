package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mcpx "github.com/nextlevelbuilder/crewd/internal/mcp"
)

func serveCmd() *cobra.Command {
	var mcpServers []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent runtime: schedule heartbeats for all running agents",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ctx := context.Background()

			rt, err := buildRuntime(ctx, cfg, true)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			if err := attachMCPServers(ctx, rt, mcpServers); err != nil {
				fatal("%s", err)
			}

			if err := rt.scheduler.StartAll(ctx); err != nil {
				fatal("start scheduler: %s", err)
			}
			slog.Info("crewd running", "mode", cfg.Mode)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			slog.Info("shutting down")
			rt.scheduler.StopAll()
		},
	}
	cmd.Flags().StringArrayVar(&mcpServers, "mcp", nil,
		"MCP server to attach, as name=command[,arg...] (repeatable)")
	return cmd
}

// attachMCPServers connects every --mcp server concurrently. A server
// the operator explicitly listed failing to come up is fatal to serve.
func attachMCPServers(ctx context.Context, rt *runtime, specs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		scfg, err := parseMCPServerSpec(spec)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := rt.mcp.Connect(gctx, scfg); err != nil {
				return fmt.Errorf("mcp server %s: %w", scfg.Name, err)
			}
			slog.Info("mcp server attached", "server", scfg.Name)
			return nil
		})
	}
	return g.Wait()
}

// parseMCPServerSpec parses "name=command,arg1,arg2".
func parseMCPServerSpec(spec string) (mcpx.ServerConfig, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok || name == "" || rest == "" {
		return mcpx.ServerConfig{}, fmt.Errorf("invalid --mcp value %q, want name=command[,arg...]", spec)
	}
	parts := strings.Split(rest, ",")
	return mcpx.ServerConfig{Name: name, Command: parts[0], Args: parts[1:]}, nil
}
