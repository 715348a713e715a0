package handlers

import (
	"fmt"
	"os"

	"newscollector/internal/config"
	"newscollector/internal/core"
	"newscollector/internal/registry"

	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the sources command group: list and reactivate.
func NewSourcesCmd() *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and manage the source registry",
		Long: `Inspect the sources loaded from the manifest and their health state.

Examples:
  newscollector sources list
  newscollector sources list --tier tier1 --active-only
  newscollector sources reactivate some-source-id`,
	}

	sourcesCmd.AddCommand(newSourcesListCmd())
	sourcesCmd.AddCommand(newSourcesReactivateCmd())
	return sourcesCmd
}

func newSourcesListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		Run: func(cmd *cobra.Command, args []string) {
			reg := loadRegistry()

			var sources []core.Source
			tier, _ := cmd.Flags().GetString("tier")
			if tier != "" {
				sources = reg.ByTier(core.Tier(tier))
			} else {
				sources = reg.All()
			}

			activeOnly, _ := cmd.Flags().GetBool("active-only")
			if len(sources) == 0 {
				fmt.Println("No sources registered. Check source_management.manifest_path in your config.")
				return
			}

			for _, source := range sources {
				if activeOnly && !source.Active {
					continue
				}
				status := "active"
				if !source.Active {
					status = fmt.Sprintf("inactive (%d consecutive failures)", source.ConsecutiveFailures)
				}
				fmt.Printf("%-24s %-10s %-10s cred=%-3d %s\n", source.ID, source.Tier, source.Kind, source.BaseCredibility, status)
				fmt.Printf("  %s | %s\n", source.Name, source.Endpoint)
				if !source.LastSuccess.IsZero() {
					fmt.Printf("  last success: %s\n", source.LastSuccess.Format("2006-01-02 15:04 MST"))
				}
			}
		},
	}
	listCmd.Flags().String("tier", "", "Filter by tier: whitelist, tier1, tier2, tier3, blacklist")
	listCmd.Flags().Bool("active-only", false, "Show only active sources")
	return listCmd
}

func newSourcesReactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate [source-id]",
		Short: "Reactivate a source deactivated by consecutive failures",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			reg := loadRegistry()
			if _, ok := reg.Lookup(args[0]); !ok {
				fmt.Fprintf(os.Stderr, "Source %q not found\n", args[0])
				os.Exit(1)
			}
			if err := reg.Reactivate(args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Source %s reactivated\n", args[0])
		},
	}
}

func loadRegistry() *registry.Registry {
	cfg := config.Get()
	return registry.LoadFromFile(cfg.Sources.ManifestPath, registry.Options{
		MaxConsecutiveFailures: cfg.Sources.MaxConsecutiveFailures,
	})
}
