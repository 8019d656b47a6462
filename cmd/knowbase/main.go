// Copyright 2026 Civintel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	knowbase "github.com/civintel/knowbase"
	"github.com/civintel/knowbase/ai"
	"github.com/civintel/knowbase/core"
	"github.com/civintel/knowbase/kb"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "knowbase",
		Usage: "Economic development knowledge base with hybrid retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the knowledge base data directory",
				Value:   "./knowbase-data",
				EnvVars: []string{"KNOWBASE_DATA"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"KNOWBASE_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"KNOWBASE_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "summarizer-host",
				Usage:   "Summarization service host URL (defaults to embedding-host)",
				EnvVars: []string{"KNOWBASE_SUMMARIZER_HOST"},
			},
			&cli.StringFlag{
				Name:    "summarizer-model",
				Usage:   "Summarization model name",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"KNOWBASE_SUMMARIZER_MODEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a document file into the knowledge base",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Document title (derived when omitted)"},
					&cli.StringFlag{Name: "jurisdiction", Usage: "Jurisdiction the document covers"},
					&cli.StringFlag{Name: "industry", Usage: "Industry the document covers"},
					&cli.StringFlag{Name: "doc-type", Usage: "Document type (report, survey, statute, ...)"},
					&cli.StringFlag{Name: "source-url", Usage: "Where the document came from"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the knowledge base",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of hits", Value: 10},
					&cli.StringFlag{Name: "jurisdiction", Usage: "Restrict hits to a jurisdiction"},
					&cli.StringFlag{Name: "industry", Usage: "Restrict hits to an industry"},
					&cli.StringFlag{Name: "doc-type", Usage: "Restrict hits to a document type"},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show corpus statistics and service availability",
				Action: statsCommand,
			},
			{
				Name:   "backfill",
				Usage:  "Re-attempt embedding for pending and failed chunks",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "batch-size", Usage: "Number of chunks to embed per batch", Value: 64},
					&cli.IntFlag{Name: "max-retries", Usage: "Maximum retry attempts for embedding calls", Value: 3},
					&cli.DurationFlag{Name: "retry-delay", Usage: "Base delay for exponential backoff", Value: 1 * time.Second},
				},
			},
			{
				Name:   "list",
				Usage:  "List documents, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of documents", Value: 20},
					&cli.StringFlag{Name: "jurisdiction", Usage: "Restrict to a jurisdiction"},
					&cli.StringFlag{Name: "industry", Usage: "Restrict to an industry"},
					&cli.StringFlag{Name: "doc-type", Usage: "Restrict to a document type"},
				},
			},
			{
				Name:   "read",
				Usage:  "Print a document's reconstructed text",
				Action: readCommand,
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Document ID"},
					&cli.StringFlag{Name: "path", Usage: "Original file path of the document"},
					&cli.StringFlag{Name: "root", Usage: "Root directory path lookups must stay inside", Value: "."},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document, its chunks, and its vectors",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openKnowledgeBase builds the knowledge base from the global flags.
func openKnowledgeBase(c *cli.Context) (*knowbase.KnowledgeBase, error) {
	summarizerHost := c.String("summarizer-host")
	if summarizerHost == "" {
		summarizerHost = c.String("embedding-host")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummarizerHost(summarizerHost),
		ai.WithSummarizerModel(c.String("summarizer-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	k, err := knowbase.Open(c.String("data"), knowbase.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return k, nil
}

func filterFromFlags(c *cli.Context) core.Filter {
	return core.Filter{
		Jurisdiction: c.String("jurisdiction"),
		Industry:     c.String("industry"),
		DocType:      c.String("doc-type"),
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file argument is required")
	}
	path := c.Args().First()

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	result, err := k.Service().Ingest(context.Background(), kb.IngestRequest{
		Title:        c.String("title"),
		Text:         string(text),
		Jurisdiction: c.String("jurisdiction"),
		Industry:     c.String("industry"),
		DocType:      c.String("doc-type"),
		SourceURL:    c.String("source-url"),
		FilePath:     path,
	})
	if err != nil {
		return err
	}

	if result.Duplicate {
		fmt.Printf("Already ingested as document %d\n", result.DocID)
	} else {
		fmt.Printf("Ingested document %d\n", result.DocID)
	}
	fmt.Printf("Chunks: %d, indexed: %d (coverage %.0f%%), state: %s\n",
		result.ChunkCount, result.IndexedChunks, result.EmbeddingCoverage*100, result.State)
	if result.SecurityFindings > 0 {
		fmt.Printf("Redacted %d suspicious spans\n", result.SecurityFindings)
	}
	if result.Quality != nil && !result.Quality.Passed {
		fmt.Printf("Quality assessment failed (score %d):\n", result.Quality.Score)
		for _, issue := range result.Quality.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}

	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	response, err := k.Service().Search(context.Background(), kb.SearchRequest{
		Query:  c.Args().First(),
		Limit:  c.Int("limit"),
		Filter: filterFromFlags(c),
	})
	if err != nil {
		return err
	}

	switch {
	case response.Blocked:
		fmt.Println("The query could not be processed.")
		return nil
	case response.OutOfScope:
		fmt.Println("No relevant documents: the query is outside the scope of this knowledge base.")
		return nil
	}

	if response.Degraded {
		fmt.Println("(vector search unavailable, showing lexical matches only)")
	}
	if len(response.Hits) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, hit := range response.Hits {
		fmt.Printf("%d. %s (score %.3f, doc %d)\n", i+1, hit.Title, hit.Score, hit.DocID)
		if hit.Jurisdiction != "" || hit.Industry != "" || hit.DocType != "" {
			fmt.Printf("   %s | %s | %s\n", hit.Jurisdiction, hit.Industry, hit.DocType)
		}
		fmt.Printf("   %s\n\n", hit.Text)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	stats, err := k.Service().Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Documents:          %d\n", stats.Documents)
	fmt.Printf("Chunks:             %d\n", stats.Chunks)
	fmt.Printf("Indexed chunks:     %d\n", stats.IndexedChunks)
	fmt.Printf("Embedding coverage: %.1f%%\n", stats.EmbeddingCoverage*100)
	fmt.Printf("Vector index:       available=%t entries=%d\n",
		stats.Services.VectorIndexAvailable, stats.Services.VectorEntries)
	fmt.Printf("Embeddings:         available=%t\n", stats.Services.EmbeddingsAvailable)
	return nil
}

func backfillCommand(c *cli.Context) error {
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	serviceConfig := kb.DefaultConfig()
	serviceConfig.BatchSize = c.Int("batch-size")
	serviceConfig.MaxRetries = c.Int("max-retries")
	serviceConfig.RetryDelay = c.Duration("retry-delay")

	summarizerHost := c.String("summarizer-host")
	if summarizerHost == "" {
		summarizerHost = c.String("embedding-host")
	}
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummarizerHost(summarizerHost),
		ai.WithSummarizerModel(c.String("summarizer-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	k, err := knowbase.Open(c.String("data"),
		knowbase.WithAIConfig(aiConfig),
		knowbase.WithServiceConfig(serviceConfig))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer k.Close()

	report, err := k.Service().Backfill(context.Background(), os.Stderr)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	fmt.Printf("Scanned %d chunks: %d indexed, %d failed\n",
		report.Scanned, report.Indexed, report.Failed)
	return nil
}

func listCommand(c *cli.Context) error {
	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	docs, err := k.Store().ListDocuments(context.Background(), filterFromFlags(c), c.Int("limit"))
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents.")
		return nil
	}
	for _, doc := range docs {
		fmt.Printf("%d\t%s\t%s/%s/%s\t%s\n",
			doc.ID, doc.Title, doc.Jurisdiction, doc.Industry, doc.DocType,
			doc.CreatedAt.Format(time.DateOnly))
	}
	return nil
}

func readCommand(c *cli.Context) error {
	id := c.Int64("id")
	path := c.String("path")
	if (id == 0) == (path == "") {
		return fmt.Errorf("exactly one of --id or --path is required")
	}

	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	reader, err := k.NewAgent(c.String("root"))
	if err != nil {
		return err
	}

	var content string
	var title string
	if id != 0 {
		doc, readErr := reader.ReadByID(context.Background(), id)
		if readErr != nil {
			return readErr
		}
		content, title = doc.Text, doc.Doc.Title
	} else {
		doc, readErr := reader.ReadByPath(context.Background(), path)
		if readErr != nil {
			return readErr
		}
		content, title = doc.Text, doc.Doc.Title
	}

	fmt.Printf("# %s\n\n%s\n", title, content)
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document ID argument is required")
	}
	var id int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return fmt.Errorf("invalid document ID %q", c.Args().First())
	}

	k, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.Service().Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted document %d\n", id)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
