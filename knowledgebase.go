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

// Package pocketkb wires the knowledge store, the embedding provider and the
// passes that operate on them.
package pocketkb

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/ai/openai"
	"github.com/poiesic/pocketkb/dedup"
	"github.com/poiesic/pocketkb/ingestion"
	"github.com/poiesic/pocketkb/reembed"
	"github.com/poiesic/pocketkb/search"
	"github.com/poiesic/pocketkb/storage"
	"github.com/poiesic/pocketkb/storage/badger"
)

// Knowledgebase owns an open store and an embedding provider.
type Knowledgebase struct {
	backend       *badger.Backend
	knowledgeRepo storage.KnowledgeRepository
	batchRepo     storage.BatchRepository
	provider      ai.AIProvider
	logger        *slog.Logger
}

// Option configures a Knowledgebase.
type Option func(*options)

type options struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the embedding configuration used to build the provider.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Knowledgebase closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithInMemory keeps the store in memory; the path is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// Open opens the store at filePath and connects the embedding provider.
// The AI configuration is validated before the store is touched, so a
// missing API key fails without side effects.
func Open(filePath string, opts ...Option) (*Knowledgebase, error) {
	o := &options{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(filePath, o.inMemory)
	if err != nil {
		provider.Close()
		return nil, err
	}

	knowledgeRepo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	return &Knowledgebase{
		backend:       backend,
		knowledgeRepo: knowledgeRepo,
		batchRepo:     badger.NewBatchRepository(backend),
		provider:      provider,
		logger:        slog.Default().With("component", "knowledgebase"),
	}, nil
}

// Close releases the provider, the repositories and the store.
func (kb *Knowledgebase) Close() error {
	var errs []error
	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := kb.knowledgeRepo.Close(); err != nil {
		kb.logger.Error("error closing knowledge repository", "err", err)
		errs = append(errs, err)
	}
	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (kb *Knowledgebase) KnowledgeRepository() storage.KnowledgeRepository {
	return kb.knowledgeRepo
}

func (kb *Knowledgebase) BatchRepository() storage.BatchRepository {
	return kb.batchRepo
}

func (kb *Knowledgebase) Provider() ai.AIProvider {
	return kb.provider
}

// NewIngestionPipeline creates a pipeline writing to this store.
func (kb *Knowledgebase) NewIngestionPipeline(tracker *ingestion.Tracker, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(kb.knowledgeRepo, kb.provider, tracker, opts...)
}

func (kb *Knowledgebase) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(kb.knowledgeRepo, kb.provider, opts...)
}

func (kb *Knowledgebase) NewResolver(opts ...dedup.Option) (*dedup.Resolver, error) {
	return dedup.NewResolver(kb.knowledgeRepo, opts...)
}

func (kb *Knowledgebase) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(kb.knowledgeRepo, kb.provider.Embedder(), config, progress)
}
