package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/pocketkb"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/dedup"
	"github.com/poiesic/pocketkb/export"
	"github.com/poiesic/pocketkb/reembed"
	"github.com/poiesic/pocketkb/repair"
	"github.com/poiesic/pocketkb/search"
	"github.com/poiesic/pocketkb/storage"
	"github.com/poiesic/pocketkb/storage/badger"
	"github.com/poiesic/pocketkb/thread"
	"github.com/urfave/cli/v2"
)

func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// openStore opens the knowledge repository without an embedding provider.
func openStore(c *cli.Context) (storage.KnowledgeRepository, func(), error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return repo, func() {
		repo.Close()
		backend.Close()
	}, nil
}

// parseKinds parses every value as a SourceKind.
func parseKinds(values []string) ([]core.SourceKind, error) {
	kinds := make([]core.SourceKind, 0, len(values))
	for _, v := range values {
		kind, err := core.ParseSourceKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func threadsCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one chat export file is required")
	}

	msgs, err := export.LoadChatExportFiles(c.Args().Slice()...)
	if err != nil {
		return err
	}
	if c.Bool("dedupe-messages") {
		msgs = thread.DedupeMessages(msgs)
	}

	classes := thread.Classify(msgs)
	forest := thread.Reconstruct(msgs)
	childless := forest.Childless()

	w := c.App.Writer
	fmt.Fprintf(w, "messages:  %d\n", len(msgs))
	fmt.Fprintf(w, "roots:     %d\n", len(classes.Roots))
	fmt.Fprintf(w, "replies:   %d\n", len(classes.Replies))
	fmt.Fprintf(w, "other:     %d\n", len(classes.Others))
	fmt.Fprintf(w, "threads:   %d\n", len(forest.Order))
	fmt.Fprintf(w, "attached:  %d\n", forest.ReplyCount())
	fmt.Fprintf(w, "childless: %d\n", len(childless))
	fmt.Fprintf(w, "orphans:   %d\n", len(forest.Orphans))

	if c.Bool("verbose") {
		for _, node := range childless {
			fmt.Fprintf(w, "childless %s\n", node.Root.ID)
		}
		for _, orphan := range forest.Orphans {
			parent := orphan.ParentID()
			if parent == "" {
				parent = "-"
			}
			fmt.Fprintf(w, "orphan %s -> %s\n", orphan.ID, parent)
		}
	}
	return nil
}

func dedupeCommand(c *cli.Context) error {
	repo, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, err := dedup.NewResolver(repo, dedup.WithDryRun(c.Bool("dry-run")))
	if err != nil {
		return err
	}

	report, err := resolver.Run(commandContext(c))
	if report != nil {
		w := c.App.Writer
		verb := "deleted"
		if report.DryRun {
			verb = "would delete"
		}
		for _, result := range report.Results {
			if result.Err != nil {
				fmt.Fprintf(w, "%s: failed: %v\n", result.Link, result.Err)
				continue
			}
			fmt.Fprintf(w, "%s: kept %d, %s %d\n", result.Link, result.Canonical, verb, len(result.Deleted))
		}
		fmt.Fprintf(w, "%d links, %d duplicated, %s %d records\n",
			report.Groups, report.Duplicated, verb, report.Deleted)
	}
	return err
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	kinds, err := parseKinds(c.StringSlice("kind"))
	if err != nil {
		return err
	}
	cfg, err := aiConfig(c)
	if err != nil {
		return err
	}

	kb, err := pocketkb.Open(c.String("db"), pocketkb.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	searcher, err := kb.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.FindSimilar(commandContext(c), query, &search.Options{
		MinSimilarity: float32(c.Float64("min-similarity")),
		Limit:         c.Int("limit"),
		Kinds:         kinds,
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		title, _, _ := strings.Cut(hit.Record.Content, "\n")
		fmt.Fprintf(w, "%d: [%0.3f] %s %s\n   %s\n", i, hit.Score, hit.Record.Kind, hit.Record.Link, title)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	kinds, err := parseKinds(c.StringSlice("kind"))
	if err != nil {
		return err
	}
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Kinds:          kinds,
	}
	if err := config.Validate(); err != nil {
		return err
	}

	cfg, err := aiConfig(c)
	if err != nil {
		return err
	}

	kb, err := pocketkb.Open(c.String("db"), pocketkb.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if err := kb.NewReembedder(config, os.Stderr).Run(commandContext(c)); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func repairSourceIDsCommand(c *cli.Context) error {
	kind, err := core.ParseSourceKind(c.String("kind"))
	if err != nil {
		return err
	}
	repo, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := repair.BackfillSourceIDs(commandContext(c), repo, kind, c.Bool("dry-run"))
	if err != nil {
		return err
	}
	printRepair(c, result)
	return nil
}

func repairContentCommand(c *cli.Context) error {
	kind, err := core.ParseSourceKind(c.String("kind"))
	if err != nil {
		return err
	}
	repo, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := repair.StripContentSuffix(commandContext(c), repo, kind, c.String("suffix"), c.Bool("dry-run"))
	if err != nil {
		return err
	}
	printRepair(c, result)
	return nil
}

func printRepair(c *cli.Context, result *repair.Result) {
	verb := "changed"
	if c.Bool("dry-run") {
		verb = "would change"
	}
	fmt.Fprintf(c.App.Writer, "scanned %d records, %s %d\n", result.Scanned, verb, result.Changed)
}
