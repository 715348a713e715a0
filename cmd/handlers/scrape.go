package handlers

import (
	"fmt"
	"os"
	"time"

	"newscollector/internal/config"
	"newscollector/internal/scrape"

	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command: fetch one article's full body.
func NewScrapeCmd() *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Fetch and clean the full body of one article",
		Long: `Fetch the article at the given URL, strip boilerplate and print the
cleaned body. Useful for checking what the content-enrichment step would
feed into scoring.

Example:
  newscollector scrape https://example.com/article`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Get()

			cacheTTL, err := time.ParseDuration(cfg.Scraper.CacheTTL)
			if err != nil {
				cacheTTL = time.Hour
			}
			scraper := scrape.New(scrape.Options{
				RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
				CacheTTL:          cacheTTL,
				MaxRetries:        cfg.Scraper.MaxRetries,
				UserAgent:         cfg.Connectors.UserAgent,
				MinImageWidth:     cfg.Scraper.MinImageWidth,
				MinImageHeight:    cfg.Scraper.MinImageHeight,
			})

			result := scraper.Scrape(cmd.Context(), args[0])
			if !result.Success {
				fmt.Fprintf(os.Stderr, "Scrape failed: %s\n", result.Err)
				os.Exit(1)
			}

			if result.Title != "" {
				fmt.Printf("# %s\n\n", result.Title)
			}
			fmt.Println(result.FullBody)
			if len(result.Images) > 0 {
				fmt.Println()
				for _, img := range result.Images {
					fmt.Printf("image: %s\n", img)
				}
			}
			fmt.Fprintf(os.Stderr, "\nfetched in %s\n", result.Latency.Round(time.Millisecond))
		},
	}
	return scrapeCmd
}
