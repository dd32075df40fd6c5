package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/scrypster/paceline/internal/activity"
	"github.com/scrypster/paceline/internal/config"
	"github.com/scrypster/paceline/internal/ingest"
	"github.com/scrypster/paceline/internal/llm"
	"github.com/scrypster/paceline/internal/query"
	"github.com/scrypster/paceline/internal/storage"
	"github.com/scrypster/paceline/internal/storage/postgres"
	"github.com/scrypster/paceline/internal/storage/sqlite"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "paceline",
		Usage:   "Ask questions about your Garmin training history",
		Version: Version,
		Commands: []*cli.Command{
			ingestCmd(),
			askCmd(),
			resetCmd(),
		},
	}
}

// ingestCmd embeds CSV exports into the vector store, or previews the
// generated summaries without touching any external service.
func ingestCmd() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Summarize and embed Garmin Connect CSV exports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Aliases: []string{"d"}, Usage: "Directory containing CSV files to ingest"},
			&cli.BoolFlag{Name: "preview", Usage: "Print generated summaries without embedding or storing"},
			&cli.IntFlag{Name: "preview-limit", Value: 5, Usage: "Maximum summaries to show in preview mode"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir := c.String("data-dir"); dir != "" {
				cfg.Ingest.DataDir = dir
			}

			rows, err := activity.LoadCSVDir(cfg.Ingest.DataDir)
			if err != nil {
				return err
			}

			if c.Bool("preview") {
				// Preview is fully offline: no credentials, no store.
				pipeline := ingest.New(nil, nil, cfg.Storage.Collection, cfg.Ingest)
				report, err := pipeline.Run(c.Context, rows, ingest.Options{
					DryRun:       true,
					PreviewLimit: c.Int("preview-limit"),
				})
				if err != nil {
					return err
				}
				printPreview(report)
				return nil
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pipeline := ingest.New(store, embedder, cfg.Storage.Collection, cfg.Ingest)
			report, err := pipeline.Run(c.Context, rows, ingest.Options{})
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
}

// askCmd answers a natural-language question from the ingested summaries.
func askCmd() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question about your training history",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"n"}, Value: 0, Usage: "Number of summaries to retrieve (default from config: 5)"},
			&cli.BoolFlag{Name: "show-context", Usage: "Print the retrieved summaries and metadata before the answer"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("usage: paceline ask \"<question>\"")
			}
			question := c.Args().First()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			topK := c.Int("top-k")
			if topK == 0 {
				topK = cfg.Query.TopK
			}

			embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
			if err != nil {
				return err
			}
			generator, err := llm.NewTextGenerator(cfg.LLM)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			retriever := query.NewRetriever(store, embedder, cfg.Storage.Collection)
			results, err := retriever.Retrieve(c.Context, question, topK)
			if err != nil {
				return err
			}

			composer := query.NewComposer(generator)
			answer, answerCtx, err := composer.Answer(c.Context, question, results)
			if err != nil {
				return err
			}

			if c.Bool("show-context") {
				printContext(answerCtx)
				fmt.Println("\nAnswer:")
			}
			fmt.Println(answer)
			return nil
		},
	}
}

// resetCmd deletes the collection, forgetting everything derived from
// ingestion. The raw CSV exports are untouched.
func resetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete the stored collection and all embedded summaries",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCollection(c.Context, cfg.Storage.Collection); err != nil {
				return err
			}
			fmt.Printf("Deleted collection %q\n", cfg.Storage.Collection)
			return nil
		},
	}
}

// openStore opens the configured vector store backend.
func openStore(cfg *config.Config) (storage.VectorStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.Open(cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		return sqlite.Open(filepath.Join(cfg.Storage.DataPath, "paceline.db"))
	}
}

// printPreview dumps the generated summaries and metadata for inspection.
func printPreview(report *ingest.Report) {
	fmt.Printf("Previewing %d of %d summaries (%d rows failed normalization)\n",
		len(report.Previews), report.Skipped, report.Failed)
	for _, doc := range report.Previews {
		fmt.Println("------------------------------------------------------------")
		fmt.Printf("%s\n", doc.Text)
		fmt.Println("Metadata:")
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, doc.Metadata[k])
		}
	}
	printRowErrors(report)
}

// printReport prints the ingest counts and any per-row failures.
func printReport(report *ingest.Report) {
	fmt.Printf("Ingest run %s: %d succeeded, %d failed, %d skipped\n",
		report.RunID, report.Succeeded, report.Failed, report.Skipped)
	printRowErrors(report)
}

func printRowErrors(report *ingest.Report) {
	for _, re := range report.Errors {
		if re.ID != "" {
			fmt.Printf("  row %d (activity %s): %v\n", re.Index, re.ID, re.Err)
		} else {
			fmt.Printf("  row %d: %v\n", re.Index, re.Err)
		}
	}
}

// printContext prints the retrieved summaries with their metadata and
// similarity scores, numbered to match the prompt's [n] markers.
func printContext(answerCtx *query.AnswerContext) {
	fmt.Println("Retrieved context:")
	for i, r := range answerCtx.Results {
		fmt.Printf("\n[%d] (score %.4f) %s\n", i+1, r.Score, r.Entry.Document)
		keys := make([]string, 0, len(r.Entry.Metadata))
		for k := range r.Entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s: %s\n", k, r.Entry.Metadata[k])
		}
	}
}
