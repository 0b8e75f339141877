package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"

	"github.com/poiesic/pocketkb/ai"
)

// ErrInjected is returned for texts registered with FailOn.
var ErrInjected = errors.New("mock embedder: injected failure")

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and is safe for
// concurrent use once configured.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions of the default vectors. Defaults to 384.
	Dimensions int

	mu        sync.Mutex
	callCount int
	texts     []string
	failOn    map[string]int // remaining failures per text, -1 = always
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// The concrete type is returned so tests can inject failures and count calls.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Dimensions: 384,
		failOn:     make(map[string]int),
	}
}

// FailOn makes every call embedding text fail with ErrInjected.
func (m *MockEmbedder) FailOn(text string) *MockEmbedder {
	return m.FailTimes(text, -1)
}

// FailTimes makes the next n calls embedding text fail with ErrInjected.
// A negative n fails forever.
func (m *MockEmbedder) FailTimes(text string, n int) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[text] = n
	return m
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := m.record(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return generateDeterministicVector(text, m.dimensions()), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if err := m.record(text); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = generateDeterministicVector(text, m.dimensions())
	}
	return embeddings, nil
}

// CallCount returns the number of texts embedded, including failed attempts.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns every text seen so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears call history, injected failures and custom functions.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.failOn = make(map[string]int)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) record(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.texts = append(m.texts, text)

	remaining, ok := m.failOn[text]
	if !ok || remaining == 0 {
		return nil
	}
	if remaining > 0 {
		m.failOn[text] = remaining - 1
	}
	return ErrInjected
}

func (m *MockEmbedder) dimensions() int {
	if m.Dimensions <= 0 {
		return 384
	}
	return m.Dimensions
}

// generateDeterministicVector creates a deterministic unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
