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

package ai

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEmbeddingHost  = "https://api.openai.com/v1"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTimeout        = 30 * time.Second
)

// Config describes the embedding endpoint. Only APIKey has no usable default.
type Config struct {
	// EmbeddingHost is the API base URL, for example
	// "http://localhost:11434/v1" for a local server. Normalize adds the /v1.
	EmbeddingHost string

	EmbeddingModel string

	// APIKey is sent as a bearer token. Servers without authentication still
	// need a placeholder such as "none"; an empty key is a startup error.
	APIKey string

	// Timeout bounds one HTTP request. Zero means no client timeout.
	Timeout time.Duration
}

// ConfigOption mutates a Config built by NewConfig.
type ConfigOption func(*Config)

func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) { c.EmbeddingHost = host }
}

func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) { c.EmbeddingModel = model }
}

func WithAPIKey(key string) ConfigOption {
	return func(c *Config) { c.APIKey = key }
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) { c.Timeout = timeout }
}

// DefaultConfig targets the OpenAI embeddings API without a key.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultEmbeddingHost,
		EmbeddingModel: DefaultEmbeddingModel,
		Timeout:        DefaultTimeout,
	}
}

// NewConfig applies opts over DefaultConfig:
//
//	cfg := NewConfig(WithAPIKey(os.Getenv("OPENAI_API_KEY")))
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the host into the "<base>/v1" form OpenAI-compatible
// servers expect and trims whitespace around the key.
func (c *Config) Normalize() {
	if host := strings.TrimRight(c.EmbeddingHost, "/"); host != "" && !strings.HasSuffix(host, "/v1") {
		c.EmbeddingHost = host + "/v1"
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
}

// Validate normalizes c and then checks it. The key is checked last and
// reported as ErrMissingAPIKey; everything else wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	c.Normalize()

	switch {
	case c.EmbeddingHost == "":
		return fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig)
	case c.EmbeddingModel == "":
		return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: Timeout must not be negative", ErrInvalidConfig)
	}
	if u, err := url.Parse(c.EmbeddingHost); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: EmbeddingHost %q is not an http(s) URL", ErrInvalidConfig, c.EmbeddingHost)
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
