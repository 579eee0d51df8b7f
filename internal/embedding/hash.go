package embedding

import (
	"context"
	"math"
)

// DefaultHashDimensions is the dimension of the hashing embedder when none is configured.
const DefaultHashDimensions = 384

// HashEmbedder is a dependency-free embedder based on feature hashing of words
// and word bigrams. Texts sharing vocabulary get similar vectors, which is
// enough for lexical-semantic retrieval without a model file.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder of the given dimension.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns a unit-length vector for text; blank text gives the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimensions)
	words := Words(text)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	NormalizeL2Slice(vec)
	return vec, nil
}

// add accumulates a signed hashed feature; the sign bit comes from the hash
// so that collisions cancel out on average.
func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := hashWord(feature)
	idx := int(h % uint32(e.dimensions))
	if h&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

// NormalizeL2Slice normalizes the slice in place to unit L2 norm.
func NormalizeL2Slice(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
