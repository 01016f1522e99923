// Package embed defines the text embedding boundary of the matcher.
//
// An Embedder turns text into the dense float32 vectors that matcha
// spaces store. The store itself never embeds anything; only text-query
// matching and ingestion call an Embedder, and the declared dimension of
// a space must equal the embedder's Dimension.
//
// The openaiembed subpackage talks to OpenAI-compatible embedding APIs;
// Fixed is a deterministic in-process embedder for tests.
package embed

import (
	"context"
	"errors"
)

// Embedder converts text into dense float32 vectors.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embedding vectors for multiple texts, aligned
	// 1:1 with the input. Implementations may split large batches into
	// smaller API calls transparently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

// ErrEmptyInput is returned for an empty text or an empty batch.
var ErrEmptyInput = errors.New("embed: empty input")
