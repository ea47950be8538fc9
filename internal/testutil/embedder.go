package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// FakeEmbedder is a deterministic ai.Embedder for tests that need real
// similarity structure without network calls.
//
// It hashes each whitespace-separated token into a bucket of the output
// vector and normalizes the result, so texts sharing words land closer in
// cosine distance than unrelated texts, and identical text always produces
// the identical vector.
type FakeEmbedder struct {
	dims int
}

// NewFakeEmbedder creates a FakeEmbedder producing vectors of the given width.
func NewFakeEmbedder(dims int) *FakeEmbedder {
	return &FakeEmbedder{dims: dims}
}

func (f *FakeEmbedder) Name() string { return "testutil/fake-embedder" }

func (f *FakeEmbedder) Register(r api.Registry) {}

// Embed embeds each input document independently.
func (f *FakeEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text strings.Builder
		for _, part := range doc.Content {
			text.WriteString(part.Text)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: f.embedText(text.String()),
		})
	}
	return resp, nil
}

func (f *FakeEmbedder) embedText(text string) []float32 {
	vec := make([]float32, f.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%f.dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Empty text maps to a fixed unit vector instead of the zero
		// vector, which has no cosine distance to anything.
		vec[0] = 1
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
