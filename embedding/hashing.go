package embedding

import (
	"context"
	"hash/fnv"
)

// DefaultHashingDimensions matches the width of common MiniLM sentence encoders.
const DefaultHashingDimensions = 384

// Hashing is a deterministic offline encoder: unigrams and bigrams are hashed
// into signed buckets and the result is L2 normalized. It needs no fitting
// and produces the same vector for the same text on every run.
type Hashing struct {
	dims int
}

// NewHashing returns a Hashing embedder; dims <= 0 uses DefaultHashingDimensions.
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &Hashing{dims: dims}
}

// Name implements Embedder.
func (h *Hashing) Name() string { return "hashing" }

// Dimensions implements Embedder.
func (h *Hashing) Dimensions() int { return h.dims }

// Embed implements Embedder.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	vec := make([]float64, h.dims)
	tokens := words(text)
	for _, tok := range tokens {
		h.add(vec, tok, 1)
	}
	for _, bg := range bigrams(tokens) {
		h.add(vec, bg, 0.5)
	}
	return normalizeL2(vec)
}

func (h *Hashing) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dims))
	// the top bit picks the sign so collisions tend to cancel
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

var _ Embedder = (*Hashing)(nil)
