package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"quran-ai/internal/chat"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
)

func newModelsCmd() *cobra.Command {
	var (
		serverURL    string
		providerName string
		best         bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models a relay can reach",
		Long: `List models a relay can reach.

Examples:
  quran-ai models                       # every provider, in preference order
  quran-ai models --provider openrouter # free OpenRouter models only
  quran-ai models --best                # the model a session would pick`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging("warn", "text")
			client := chat.NewClient(serverURL, nil)
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if best {
				sel, err := provider.SelectBest(ctx, client.Sources(), provider.PreferredModelHints)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(out).Encode(sel)
				}
				fmt.Fprintf(out, "%s\t%s\n", sel.Provider, sel.Model)
				return nil
			}

			ids := models.PreferenceOrder
			if providerName != "" {
				id, ok := models.ParseProviderID(providerName)
				if !ok {
					return fmt.Errorf("unknown provider %q", providerName)
				}
				ids = []models.ProviderID{id}
			}

			listing := make(map[models.ProviderID][]string, len(ids))
			for _, id := range ids {
				catalog, err := client.ListModels(ctx, id)
				if err != nil {
					return fmt.Errorf("list %s models: %w", id, err)
				}
				names := make([]string, 0, len(catalog))
				for _, m := range catalog {
					names = append(names, m.ID)
				}
				listing[id] = names
			}

			if asJSON {
				return json.NewEncoder(out).Encode(listing)
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%s (%d)\n", id, len(listing[id]))
				for _, name := range listing[id] {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", defaultServerURL, "Relay base URL")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Only list this provider")
	cmd.Flags().BoolVar(&best, "best", false, "Print the preferred provider and model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
