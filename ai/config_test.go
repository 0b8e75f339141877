package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.APIKey)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultEmbeddingHost, cfg.EmbeddingHost)
		assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://custom:8080/v1"),
			WithEmbeddingModel("custom-embed"),
			WithAPIKey("sk-test"),
			WithTimeout(5*time.Second),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "custom-embed", cfg.EmbeddingModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			APIKey:         "none",
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingHost = ""

		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingModel = ""

		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("host without scheme", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingHost = "localhost:11434"

		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "http(s)")
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Timeout = -time.Second

		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := valid()
		cfg.APIKey = ""

		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("blank api key", func(t *testing.T) {
		cfg := valid()
		cfg.APIKey = "  \n"

		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})
}

func TestConfigValidate_Defaults(t *testing.T) {
	// Defaults are complete except for the key
	assert.ErrorIs(t, DefaultConfig().Validate(), ErrMissingAPIKey)
	assert.NoError(t, NewConfig(WithAPIKey("sk-test")).Validate())
}
