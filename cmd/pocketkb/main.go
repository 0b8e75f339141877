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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/repair"
	"github.com/urfave/cli/v2"
)

const (
	defaultEnvFile = ".dev.vars"
	defaultDBPath  = "./pocketkb_db"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pocketkb",
		Usage: "Deduplicated knowledge base built from chat and issue exports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file when it exists",
				Value: defaultEnvFile,
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   defaultDBPath,
				EnvVars: []string{"POCKETKB_DB"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnvFile(c.String("env-file")); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Embed and store issue and chat exports",
				Action: ingestCommand,
				Flags: append(embeddingFlags(),
					&cli.StringSliceFlag{
						Name:  "github",
						Usage: "Issue export file; each file is one batch",
					},
					&cli.IntFlag{
						Name:  "github-sample",
						Usage: "Only ingest the N most recent issues of each file (0 = all)",
					},
					&cli.StringSliceFlag{
						Name:  "discord",
						Usage: "Chat export file; all files form one batch",
					},
					&cli.StringFlag{
						Name:  "discord-mode",
						Usage: "How chat messages become records (threads, messages)",
						Value: "threads",
					},
					&cli.StringFlag{
						Name:  "discord-batch",
						Usage: "Batch key for the chat stage (default discord-<mode>)",
					},
					&cli.StringSliceFlag{
						Name:  "processed",
						Usage: "Batch keys to treat as already processed",
					},
					&cli.BoolFlag{
						Name:  "remember-batches",
						Usage: "Persist completed batches and skip them on later runs",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Records processed concurrently",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding or store call",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "call-timeout",
						Usage: "Timeout for a single embedding call (0 = none)",
						Value: 30 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print per-batch progress to stderr",
					},
				),
			},
			{
				Name:      "threads",
				Usage:     "Reconstruct threads from chat exports and print diagnostics",
				ArgsUsage: "EXPORT...",
				Action:    threadsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dedupe-messages",
						Usage: "Collapse repeated message ids before reconstruction",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "List childless roots and orphans",
					},
				},
			},
			{
				Name:   "dedupe",
				Usage:  "Delete all but the longest record of every link",
				Action: dedupeCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report intended deletions without deleting",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find stored records similar to a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(embeddingFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Similarity floor",
						Value: 0.4,
					},
					&cli.StringSliceFlag{
						Name:  "kind",
						Usage: "Only return records of this source kind (github, discord, docs)",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored records with new embeddings",
				Action: reembedCommand,
				Flags: append(embeddingFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.StringSliceFlag{
						Name:  "kind",
						Usage: "Only reembed records of this source kind",
					},
				),
			},
			{
				Name:  "repair",
				Usage: "Maintenance passes over stored records",
				Subcommands: []*cli.Command{
					{
						Name:   "source-ids",
						Usage:  "Set missing source ids from the last segment of the link",
						Action: repairSourceIDsCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "kind", Usage: "Source kind to repair", Value: string(core.SourceKindDiscord)},
							&cli.BoolFlag{Name: "dry-run", Usage: "Count without writing"},
						},
					},
					{
						Name:   "content",
						Usage:  "Strip a trailing artefact from record content",
						Action: repairContentCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "kind", Usage: "Source kind to repair", Value: string(core.SourceKindDiscord)},
							&cli.StringFlag{Name: "suffix", Usage: "Suffix to strip", Value: repair.DefaultContentSuffix},
							&cli.BoolFlag{Name: "dry-run", Usage: "Count without writing"},
						},
					},
				},
			},
		},
	}
}

// embeddingFlags returns fresh flag values for every command using the
// embedding service.
func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "OpenAI-compatible embedding service URL",
			Value:   ai.DefaultEmbeddingHost,
			EnvVars: []string{"EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   ai.DefaultEmbeddingModel,
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.DurationFlag{
			Name:  "embedding-timeout",
			Usage: "HTTP timeout for embedding requests",
			Value: ai.DefaultTimeout,
		},
	}
}

// aiConfig builds and validates the embedding configuration from flags.
func aiConfig(c *cli.Context) (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithTimeout(c.Duration("embedding-timeout")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

// loadEnvFile loads path into the environment if it exists.
// Variables already set are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
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
