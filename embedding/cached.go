package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps an Embedder with an LRU cache keyed by text. Only texts that
// miss the cache are sent to the inner embedder, each at most once per call.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with a cache of size entries. If size <= 0 the inner
// embedder is returned directly.
func NewCached(inner Embedder, size int) (Embedder, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed implements Embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	pending := make(map[string][]int)
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		if _, queued := pending[text]; !queued {
			missing = append(missing, text)
		}
		pending[text] = append(pending[text], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts", ErrEmbeddingFailed, c.inner.Name(), len(vecs), len(missing))
	}
	for k, text := range missing {
		c.cache.Add(text, vecs[k])
		for _, i := range pending[text] {
			out[i] = vecs[k]
		}
	}
	return out, nil
}

// Dimensions implements Embedder.
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// Name implements Embedder.
func (c *Cached) Name() string { return c.inner.Name() }

// Fit forwards to the inner embedder when it needs fitting and drops cached
// vectors, which were computed against the previous fit.
func (c *Cached) Fit(corpus []string) error {
	f, ok := c.inner.(Fitter)
	if !ok {
		return nil
	}
	c.cache.Purge()
	return f.Fit(corpus)
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

var (
	_ Embedder = (*Cached)(nil)
	_ Fitter   = (*Cached)(nil)
)
