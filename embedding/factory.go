package embedding

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Noofbiz/textClassifier/config"
)

// New builds the embedder selected by cfg, wrapped in an LRU cache when
// cfg.CacheSize > 0.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Type {
	case "", "hashing":
		e = NewHashing(cfg.Dimensions)
	case "tfidf":
		e = NewTFIDF(WithMinDocFreq(cfg.MinDocFreq), WithBigrams(cfg.Bigrams))
	case "remote":
		e, err = newRemoteFromConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embedder type %q", ErrEmbeddingFailed, cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return NewCached(e, cfg.CacheSize)
}

func newRemoteFromConfig(cfg config.EmbedderConfig) (*Remote, error) {
	rc := cfg.Remote
	if rc == nil {
		return nil, fmt.Errorf("%w: remote embedder needs a remote section", ErrEmbeddingFailed)
	}
	opts := []RemoteOption{
		WithAPI(rc.API),
		WithModel(rc.Model),
		WithBatchSize(rc.BatchSize),
		WithConcurrency(rc.Concurrency),
		WithRateLimit(rc.RateLimit),
		WithDimensions(rc.Dimensions),
	}
	if rc.BaseURL != "" {
		opts = append(opts, WithBaseURL(rc.BaseURL))
	}
	if rc.APIKeyEnv != "" {
		opts = append(opts, WithAPIKey(os.Getenv(rc.APIKeyEnv)))
	}
	if rc.TimeoutSecs > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: time.Duration(rc.TimeoutSecs) * time.Second}))
	}
	return NewRemote(opts...)
}
