package embedding

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// TFIDF is a corpus-fitted bag-of-words encoder. Features are content words,
// optionally with their bigrams; a text's vector is term count times smoothed
// inverse document frequency, L2 normalized. Its width is the vocabulary
// size found by Fit.
type TFIDF struct {
	minDocFreq int
	useBigrams bool

	terms []string
	index map[string]int
	idf   []float64
}

// TFIDFOption configures a TFIDF embedder.
type TFIDFOption func(*TFIDF)

// WithMinDocFreq drops terms found in fewer than n documents of the fit corpus.
func WithMinDocFreq(n int) TFIDFOption {
	return func(e *TFIDF) {
		if n > 1 {
			e.minDocFreq = n
		}
	}
}

// WithBigrams adds adjacent word pairs to the vocabulary.
func WithBigrams(on bool) TFIDFOption {
	return func(e *TFIDF) { e.useBigrams = on }
}

// NewTFIDF creates an unfitted TF-IDF embedder.
func NewTFIDF(opts ...TFIDFOption) *TFIDF {
	e := &TFIDF{minDocFreq: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Embedder.
func (e *TFIDF) Name() string { return "tfidf" }

// Dimensions implements Embedder.
func (e *TFIDF) Dimensions() int { return len(e.terms) }

func (e *TFIDF) features(text string) []string {
	toks := contentWords(text)
	if e.useBigrams {
		toks = append(toks, bigrams(toks)...)
	}
	return toks
}

// Fit builds the vocabulary and idf = ln((1+n)/(1+df)) + 1 from corpus.
func (e *TFIDF) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return fmt.Errorf("%w: empty corpus for TF-IDF fit", ErrEmbeddingFailed)
	}
	docFreq := make(map[string]int)
	for _, text := range corpus {
		feats := e.features(text)
		slices.Sort(feats)
		for _, f := range slices.Compact(feats) {
			docFreq[f]++
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= e.minDocFreq {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return fmt.Errorf("%w: no terms in corpus reach document frequency %d", ErrEmbeddingFailed, e.minDocFreq)
	}
	slices.Sort(terms)

	n := float64(len(corpus))
	e.terms = terms
	e.index = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	for i, term := range terms {
		e.index[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return nil
}

// Embed implements Embedder. Texts with no known term map to the zero vector.
func (e *TFIDF) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.terms == nil {
		return nil, fmt.Errorf("%w: tfidf embedder not fitted", ErrEmbeddingFailed)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float64, len(e.terms))
		for _, f := range e.features(text) {
			if j, ok := e.index[f]; ok {
				vec[j] += e.idf[j]
			}
		}
		out[i] = normalizeL2(vec)
	}
	return out, nil
}

var (
	_ Embedder = (*TFIDF)(nil)
	_ Fitter   = (*TFIDF)(nil)
)
