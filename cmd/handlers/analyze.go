package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"newscollector/internal/config"
	"newscollector/internal/core"
	"newscollector/internal/logger"
	"newscollector/internal/pipeline"
	"newscollector/internal/registry"

	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command: one full pipeline run.
func NewAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch, score and rank news matching the given filters",
		Long: `Run the full analysis pipeline once and print the ranked articles.

Examples:
  newscollector analyze --keywords ai --preset quality
  newscollector analyze --categories economy,it --limit 10
  newscollector analyze --from 2025-06-01 --to 2025-06-02 --json
  newscollector analyze --exclude-keywords rumor --group-by source`,
		Run: analyzeRunFunc,
	}

	analyzeCmd.Flags().StringSlice("keywords", nil, "Include keywords (max 10)")
	analyzeCmd.Flags().StringSlice("exclude-keywords", nil, "Keywords that disqualify an article")
	analyzeCmd.Flags().StringSlice("categories", nil, "Category filter: politics, economy, society, it, science, culture, sports, international, entertainment")
	analyzeCmd.Flags().String("preset", "", "Ranking preset: quality, trending, credible, latest")
	analyzeCmd.Flags().String("group-by", "", "Group results by: none, day, source")
	analyzeCmd.Flags().String("language", "", "ISO 639-1 language code")
	analyzeCmd.Flags().String("country", "", "ISO 3166-1 country code")
	analyzeCmd.Flags().String("from", "", "Window start, YYYY-MM-DD or RFC 3339")
	analyzeCmd.Flags().String("to", "", "Window end, YYYY-MM-DD or RFC 3339")
	analyzeCmd.Flags().IntP("limit", "n", 0, "Number of articles to return (1-100)")
	analyzeCmd.Flags().Int("offset", 0, "Articles to skip from the top")
	analyzeCmd.Flags().Bool("verified-only", false, "Restrict to whitelist and tier1 sources")
	analyzeCmd.Flags().Bool("no-diversity", false, "Disable the per-source diversity cap")
	analyzeCmd.Flags().Duration("timeout", 60*time.Second, "Overall pipeline deadline")
	analyzeCmd.Flags().Bool("json", false, "Print the full result as JSON")

	return analyzeCmd
}

func analyzeRunFunc(cmd *cobra.Command, args []string) {
	req, err := requestFromFlags(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()
	if noDiversity, _ := cmd.Flags().GetBool("no-diversity"); noDiversity {
		disabled := *cfg
		disabled.Defaults.Diversity = false
		cfg = &disabled
	}
	reg := registry.LoadFromFile(cfg.Sources.ManifestPath, registry.Options{
		MaxConsecutiveFailures: cfg.Sources.MaxConsecutiveFailures,
	})

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	p := pipeline.New(pipeline.Options{Config: cfg, Registry: reg})
	analysis, err := p.Analyze(ctx, req)
	if err != nil {
		logger.Error("Analysis failed", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(analysis); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printAnalysis(analysis)
}

func requestFromFlags(cmd *cobra.Command) (core.Request, error) {
	req := core.Request{}

	req.Keywords, _ = cmd.Flags().GetStringSlice("keywords")
	req.ExcludeKeywords, _ = cmd.Flags().GetStringSlice("exclude-keywords")
	req.Categories, _ = cmd.Flags().GetStringSlice("categories")
	req.Language, _ = cmd.Flags().GetString("language")
	req.Country, _ = cmd.Flags().GetString("country")
	req.Limit, _ = cmd.Flags().GetInt("limit")
	req.Offset, _ = cmd.Flags().GetInt("offset")
	req.VerifiedOnly, _ = cmd.Flags().GetBool("verified-only")

	preset, _ := cmd.Flags().GetString("preset")
	req.Preset = core.Preset(preset)
	groupBy, _ := cmd.Flags().GetString("group-by")
	req.GroupBy = core.Grouping(groupBy)

	if raw, _ := cmd.Flags().GetString("from"); raw != "" {
		t, err := parseFlagTime(raw, false)
		if err != nil {
			return req, fmt.Errorf("invalid --from value %q: %w", raw, err)
		}
		req.From = &t
	}
	if raw, _ := cmd.Flags().GetString("to"); raw != "" {
		t, err := parseFlagTime(raw, true)
		if err != nil {
			return req, fmt.Errorf("invalid --to value %q: %w", raw, err)
		}
		req.To = &t
	}
	return req, nil
}

// parseFlagTime accepts RFC 3339 or a bare date. A bare date used as the
// window end is pushed to the end of that day so the window is inclusive.
func parseFlagTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.UTC(), nil
}

func printAnalysis(analysis *pipeline.Analysis) {
	if len(analysis.Articles) == 0 {
		fmt.Println("No articles matched the request.")
		printStats(analysis.Stats)
		return
	}

	if len(analysis.Groups) > 0 {
		for _, group := range analysis.Groups {
			fmt.Printf("\n== %s ==\n", group.Key)
			for _, article := range group.Articles {
				printArticle(article)
			}
		}
	} else {
		for _, article := range analysis.Articles {
			printArticle(article)
		}
	}

	printStats(analysis.Stats)
}

func printArticle(a core.ScoredArticle) {
	fmt.Printf("%3d. [%5.1f] %s\n", a.RankPosition, a.FinalScore, a.Title)
	fmt.Printf("     %s | %s | %s\n", a.SourceName, a.PublishedAt.Format("2006-01-02 15:04 MST"), a.URL)
	if len(a.PolicyFlags) > 0 {
		fmt.Printf("     flags: %s\n", strings.Join(a.PolicyFlags, ", "))
	}
}

func printStats(stats pipeline.Stats) {
	fmt.Printf("\n%d sources | %d raw | %d normalized | %d deduped clusters | %d ranked | %s\n",
		stats.SourcesSelected, stats.RawRecords, stats.Normalized, stats.Clusters, stats.Ranked,
		stats.Elapsed.Round(time.Millisecond))
}
