package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crewd/internal/models"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List logical models and their backend routes",
	}
	cmd.AddCommand(modelsListCmd())
	cmd.AddCommand(modelsResolveCmd())
	return cmd
}

type routeEntry struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Backend  string `json:"backend"`
	Priority int    `json:"priority"`
}

func modelsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the model catalog",
		Run: func(cmd *cobra.Command, args []string) {
			catalog := models.DefaultCatalog()
			ids := catalog.ModelIDs()
			sort.Strings(ids)
			var entries []routeEntry
			for _, id := range ids {
				m, _ := catalog.Model(id)
				for _, r := range m.Routes {
					entries = append(entries, routeEntry{
						Model:    m.ID,
						Provider: r.Provider,
						Backend:  r.ModelID,
						Priority: r.Priority,
					})
				}
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "MODEL\tPROVIDER\tBACKEND\tPRIORITY\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.Model, e.Provider, e.Backend, e.Priority)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func modelsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <logical-model>",
		Short: "Resolve a logical model to the backend that would serve it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			rt, err := buildRuntime(ctx, loadConfig(), false)
			if err != nil {
				fatal("%s", err)
			}
			defer rt.close()

			backend, err := rt.router.Resolve(ctx, args[0])
			if err != nil {
				fatal("%s", err)
			}
			fmt.Printf("endpoint: %s\nmodel:    %s\nauth:     %t\n",
				backend.Endpoint, backend.Model, backend.APIKey != "")
		},
	}
}
