package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"floatchat/internal/app"
	"floatchat/internal/config"
	"floatchat/internal/logger"
	"floatchat/internal/model"
	"floatchat/internal/service"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
	verbose    bool
	warmLimit  int
)

var demoQuestions = []string{
	"Show me temperature profiles in the Indian Ocean",
	"Find ARGO floats near the Arabian Sea",
	"What are the latest salinity measurements?",
	"Compare temperature data from different regions",
	"Show me the trajectory of float 2902116",
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "floatchat",
		Short: "Ask questions about ARGO ocean float data",
		Long: `floatchat turns natural-language questions about ARGO floats into
structured queries, runs them against the profile database and answers
with supporting context.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
	rootCmd.PersistentFlags().IntVar(&warmLimit, "warm-limit", -1, "Records indexed before asking when the memory index is used (default index.warm_limit)")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("floatchat %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// ask command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), true, func(ctx context.Context, a *app.App) error {
				env := a.Orchestrator.Process(ctx, strings.Join(args, " "))
				printEnvelope(env)
				if !env.Success {
					return fmt.Errorf("query failed: %s", env.Error)
				}
				return nil
			})
		},
	})

	// demo command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Run the demo questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), true, func(ctx context.Context, a *app.App) error {
				results := make([]model.QueryResponse, 0, len(demoQuestions))
				for i, q := range demoQuestions {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					env := a.Orchestrator.Process(ctx, q)
					if jsonOutput {
						results = append(results, model.QueryResponse{QueryResultEnvelope: env, Suggestions: suggestions(env)})
						continue
					}
					fmt.Printf("\n%d. %s\n%s\n", i+1, q, strings.Repeat("-", 60))
					printEnvelope(env)
				}
				if jsonOutput {
					printJSON(results)
				}
				return nil
			})
		},
	})

	// reindex command
	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the context collections from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				results, err := a.Indexer.Reindex(ctx, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(results)
					return nil
				}
				for _, r := range results {
					fmt.Printf("%-16s indexed %d, failed %d\n", r.Collection, r.Success, r.Failed)
					for _, e := range r.Errors {
						fmt.Printf("  %s\n", e)
					}
				}
				return nil
			})
		},
	}
	reindexCmd.Flags().Int("limit", 0, "Maximum records per collection (0 = all)")
	rootCmd.AddCommand(reindexCmd)

	// summary command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show what the database holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(ctx context.Context, a *app.App) error {
				s, err := a.Summarizer.Summary(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(s)
					return nil
				}
				printSummary(s)
				return nil
			})
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withApp loads configuration, builds the pipeline and runs fn. warm fills
// an in-memory index from the database first so answers carry context.
func withApp(ctx context.Context, warm bool, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewNoOpLogger()
	if verbose {
		log = logger.NewStructured(cfg.Logging.Level, "console")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if warm {
		limit := cfg.Index.WarmLimit
		if warmLimit >= 0 {
			limit = warmLimit
		}
		if err := a.WarmMemoryIndex(ctx, limit); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return fn(ctx, a)
}

func suggestions(env model.QueryResultEnvelope) []string {
	if !env.Success {
		return []string{}
	}
	return service.SuggestFollowUps(env)
}

func printEnvelope(env model.QueryResultEnvelope) {
	if jsonOutput {
		printJSON(model.QueryResponse{QueryResultEnvelope: env, Suggestions: suggestions(env)})
		return
	}

	fmt.Println(env.ResponseText)
	if !env.Success {
		return
	}
	if env.Intent != nil {
		fmt.Printf("\nintent: %s (confidence %.2f)", env.Intent.Intent, env.Intent.Confidence)
		if len(env.Intent.Parameters) > 0 {
			fmt.Printf(", parameters: %s", strings.Join(env.Intent.Parameters, ", "))
		}
		fmt.Println()
	}
	fmt.Printf("rows: %d, context documents: %d, %d ms\n", env.Metadata.RowCount, len(env.Context), env.Metadata.ElapsedMs)

	if s := suggestions(env); len(s) > 0 {
		fmt.Println("\nYou might also ask:")
		for _, q := range s {
			fmt.Printf("  - %s\n", q)
		}
	}
}

func printSummary(s *model.DataSummary) {
	fmt.Printf("Floats:       %d\n", s.TotalFloats)
	fmt.Printf("Profiles:     %d\n", s.TotalProfiles)
	fmt.Printf("Measurements: %d\n", s.TotalMeasurements)
	if b := s.GeographicBounds; b != nil {
		fmt.Printf("Latitude:     %.2f to %.2f\n", b.MinLat, b.MaxLat)
		fmt.Printf("Longitude:    %.2f to %.2f\n", b.MinLon, b.MaxLon)
	}
	if d := s.DateRange; d != nil {
		fmt.Printf("Date range:   %s to %s\n", d.Start.Format("2006-01-02"), d.End.Format("2006-01-02"))
	}
	for c, n := range s.IndexedDocuments {
		fmt.Printf("Indexed %-14s %d\n", c+":", n)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
