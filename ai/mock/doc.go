// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without an embedding service and give
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	mockEmbedder := mock.NewMockEmbedder().FailOn("broken record")
//	provider := mock.NewMockProviderWithEmbedder(mockEmbedder)
//
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockProvider: Owns a MockEmbedder
package mock
