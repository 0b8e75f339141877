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

// Package openai embeds text through any service speaking the OpenAI
// embeddings API: OpenAI itself, or a local server such as Ollama or vLLM.
//
// The HTTP client comes from langchaingo. Config validation runs in the
// constructors, so a knowledge base without an API key never gets as far as
// opening its database:
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	))
//	if errors.Is(err, ai.ErrMissingAPIKey) {
//	    // fatal configuration error
//	}
package openai
