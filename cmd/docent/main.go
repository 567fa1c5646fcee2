// Copyright 2025 Poiesic Systems
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
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docent",
		Usage: "Hybrid retrieval over your documents: semantic search plus an entity graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index one or more text files",
				ArgsUsage: "FILE...",
				Action:    indexCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Document display name (single file only; defaults to the file name)",
					},
				),
			},
			{
				Name:      "remove",
				Usage:     "Remove a document and its graph neighborhood",
				ArgsUsage: "DOCUMENT_ID",
				Action:    removeCommand,
				Flags:     engineFlags(),
			},
			{
				Name:      "query",
				Usage:     "Run a hybrid search and print the ranked chunks",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "context",
						Usage: "Print the assembled context instead of the result list",
					},
				),
			},
			{
				Name:      "answer",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    answerCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "language",
						Usage: "Response language (defaults to the question's language)",
					},
				),
			},
			{
				Name:   "list",
				Usage:  "List indexed documents",
				Action: listCommand,
				Flags:  engineFlags(),
			},
			{
				Name:      "related",
				Usage:     "List documents sharing entities with the given one",
				ArgsUsage: "DOCUMENT_ID",
				Action:    relatedCommand,
				Flags:     engineFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// engineFlags are shared by every command that opens the engine.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embeddings and chat",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for extraction and answering",
			Value: "qwen2.5:3b",
		},
	}
}

func openEngine(c *cli.Context) (*docent.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	engine, err := docent.Open(c.String("db"), docent.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	if c.String("name") != "" && c.NArg() > 1 {
		return fmt.Errorf("--name applies to a single file only")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	for _, path := range c.Args().Slice() {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := c.String("name")
		if name == "" {
			name = filepath.Base(path)
		}
		doc := &core.Document{
			Id:   documentID(path),
			Name: name,
			Text: string(text),
		}

		stats, err := engine.Index(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks, %d entities (id %s)\n",
			name, stats.ChunksCreated, stats.EntitiesExtracted, doc.Id)
	}
	return nil
}

// documentID derives a stable id from the file name, so re-indexing the
// same file replaces the previous version.
func documentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func removeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document id is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	documentID := c.Args().First()
	if err := engine.RemoveDocument(context.Background(), documentID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", documentID, err)
	}
	fmt.Printf("removed %s\n", documentID)
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Query(context.Background(), question, c.Int("top-k"))
	if err != nil {
		return err
	}

	if c.Bool("context") {
		fmt.Println(result.FormattedContext)
		return nil
	}

	for i, chunk := range result.Chunks {
		fmt.Printf("%d. [%s] %s #%d (%.0f%%)\n",
			i+1, chunk.Source, chunk.Chunk.DocumentName, chunk.Chunk.ChunkIndex, chunk.Score*100)
		if len(chunk.Entities) > 0 {
			fmt.Printf("   entities: %s\n", strings.Join(chunk.Entities, ", "))
		}
		fmt.Printf("   %s\n", firstLine(chunk.Chunk.Text))
	}
	fmt.Printf("\naverage relevance: %.0f%%\n", result.AverageScore*100)
	return nil
}

func answerCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Answer(context.Background(), question, nil, c.String("language"))
	if err != nil {
		return err
	}

	fmt.Println(result.Text)
	fmt.Fprintf(os.Stderr, "\nsources: %d vector, %d graph",
		result.Sources.VectorCount, result.Sources.GraphCount)
	if len(result.Sources.Entities) > 0 {
		fmt.Fprintf(os.Stderr, "; entities: %s", strings.Join(result.Sources.Entities, ", "))
	}
	fmt.Fprintf(os.Stderr, " (%s)\n", result.ProcessingTime.Round(time.Millisecond))
	return nil
}

func listCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	infos, err := engine.Documents(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no documents indexed")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s\t%s\t%d chunks\t%s\n",
			info.Id, info.Name, info.ChunkCount, firstLine(info.Preview))
	}
	return nil
}

func relatedCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document id is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	relations, err := engine.RelatedDocuments(context.Background(), c.Args().First())
	if err != nil {
		return err
	}
	if len(relations) == 0 {
		fmt.Println("no related documents")
		return nil
	}
	for _, rel := range relations {
		fmt.Printf("%s\t%s\t%d shared entities\n", rel.DocumentID, rel.Name, rel.SharedEntities)
	}
	return nil
}

// firstLine truncates multi-line text for one-line listings.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func setupLogger(c *cli.Context) error {
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
