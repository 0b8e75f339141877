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

package openai

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/pocketkb/ai"
)

// ErrEmptyEmbedding indicates the service answered without a vector.
var ErrEmptyEmbedding = errors.New("embedding service returned no vector")

// Provider is the ai.AIProvider backed by one OpenAI-compatible endpoint.
type Provider struct {
	embedder *Embedder
	closed   atomic.Bool
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates and normalizes config, then builds the embedding
// client. A missing API key fails here with ai.ErrMissingAPIKey, before any
// request is made.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider", "host", config.EmbeddingHost)
	logger.Debug("embedding provider ready", "model", config.EmbeddingModel)
	return &Provider{
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is idempotent. The HTTP client holds no resources beyond idle
// connections, which the transport reclaims on its own.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("embedding provider closed")
	return nil
}
