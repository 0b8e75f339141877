package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/reembed"
	"github.com/poiesic/pocketkb/storage"
)

const (
	// DefaultMinSimilarity is the similarity floor used when Options leaves it unset.
	DefaultMinSimilarity float32 = 0.4
	// DefaultLimit is the number of results returned when Options leaves it unset.
	DefaultLimit = 10
)

// Options narrows a search. The zero value uses the defaults.
type Options struct {
	MinSimilarity float32
	Limit         int
	Kinds         []core.SourceKind // Empty means every kind
	Monitor       SearchMonitor
}

// Searcher provides semantic search over knowledge records.
type Searcher struct {
	repository storage.KnowledgeRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	repository storage.KnowledgeRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if repository == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository: repository,
		embedder:   provider.Embedder(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// FindSimilar returns the records most similar to query, best first.
// opts may be nil.
func (s *Searcher) FindSimilar(ctx context.Context, query string, opts *Options) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	o := resolve(opts)
	o.Monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// The kind filter runs after the similarity scan, so fetch everything above
	// the floor and truncate afterwards.
	limit := o.Limit
	if len(o.Kinds) > 0 {
		limit = 0
	}
	matches, err := s.repository.FindSimilar(ctx, reembed.NormalizeVector(embedding), o.MinSimilarity, limit)
	if err != nil {
		s.logger.Error("error querying for similar records", "err", err)
		return nil, err
	}
	o.Monitor.AfterSemanticSearch(matches)

	if len(o.Kinds) > 0 {
		kept := make([]*core.SearchResult, 0, len(matches))
		for _, match := range matches {
			if slices.Contains(o.Kinds, match.Record.Kind) {
				kept = append(kept, match)
			}
		}
		o.Monitor.AfterKindFilter(len(kept), len(matches)-len(kept))
		matches = kept
	}

	queryTerms := terms(query)
	for _, match := range matches {
		if containsAllTerms(match.Record.Content, queryTerms) {
			match.Score += VerbatimBoost
			o.Monitor.VerbatimHit(match.Record)
		}
	}

	// Stable so equal scores keep the repository's id order
	slices.SortStableFunc(matches, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > o.Limit {
		matches = matches[:o.Limit]
	}
	o.Monitor.Finish(matches)

	s.logger.Debug("search finished", "query", query, "hits", len(matches))
	return matches, nil
}

func resolve(opts *Options) Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Monitor == nil {
		o.Monitor = &noopMonitor{}
	}
	return o
}
