// Package embedding turns sentences into fixed-width vectors. The encoder is
// treated as frozen: the classifier never updates it.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingFailed wraps every failure reported by an embedder.
var ErrEmbeddingFailed = errors.New("embedding failed")

// Embedder maps each input text to one vector of Dimensions() values.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Fitter is implemented by embedders that must see the training corpus
// before they can embed (TF-IDF).
type Fitter interface {
	Fit(corpus []string) error
}

// Encode embeds texts and checks that exactly one vector of constant width
// comes back per text.
func Encode(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", ErrEmbeddingFailed)
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", ErrEmbeddingFailed, e.Name(), len(vecs), len(texts))
	}
	dim := len(vecs[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: %s returned empty vectors", ErrEmbeddingFailed, e.Name())
	}
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has width %d, expected %d", ErrEmbeddingFailed, i, len(v), dim)
		}
	}
	return vecs, nil
}
