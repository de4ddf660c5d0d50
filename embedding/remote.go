package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Supported wire formats of Remote.
const (
	APIOpenAI = "openai"
	APIOllama = "ollama"
)

// RemoteOption configures a Remote embedder.
type RemoteOption func(*Remote)

// WithAPI selects the wire format: APIOpenAI (POST /embeddings) or
// APIOllama (POST /api/embed).
func WithAPI(api string) RemoteOption {
	return func(r *Remote) { r.api = strings.ToLower(api) }
}

// WithModel sets the encoder model identifier.
func WithModel(model string) RemoteOption {
	return func(r *Remote) { r.model = model }
}

// WithBaseURL sets the server base URL.
func WithBaseURL(url string) RemoteOption {
	return func(r *Remote) { r.baseURL = strings.TrimRight(url, "/") }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) RemoteOption {
	return func(r *Remote) { r.apiKey = key }
}

// WithDimensions declares the vector width; when zero it is learned from the
// first response.
func WithDimensions(dims int) RemoteOption {
	return func(r *Remote) { r.dims = dims }
}

// WithBatchSize sets how many texts go into one request.
func WithBatchSize(n int) RemoteOption {
	return func(r *Remote) { r.batchSize = n }
}

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) RemoteOption {
	return func(r *Remote) { r.concurrency = n }
}

// WithRateLimit caps requests per second; zero disables the limiter.
func WithRateLimit(rps float64) RemoteOption {
	return func(r *Remote) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			r.limiter = nil
		}
	}
}

// WithRetry sets how many attempts a batch gets and the first backoff delay.
// Only transport errors, 429 and 5xx responses are retried.
func WithRetry(maxTries uint, initial time.Duration) RemoteOption {
	return func(r *Remote) {
		r.maxTries = maxTries
		r.initialBackoff = initial
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *Remote) { r.client = client }
}

// Remote calls an embedding server over HTTP. Texts are split into batches
// that are sent concurrently; the output order always matches the input.
type Remote struct {
	api         string
	model       string
	baseURL     string
	apiKey      string
	dims        int
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	client      *http.Client

	maxTries       uint
	initialBackoff time.Duration
}

// NewRemote creates a Remote embedder. Defaults target a local Ollama server.
func NewRemote(opts ...RemoteOption) (*Remote, error) {
	r := &Remote{
		api:         APIOllama,
		model:       "nomic-embed-text",
		baseURL:     "http://localhost:11434",
		batchSize:   32,
		concurrency: 4,
		client:      &http.Client{Timeout: 60 * time.Second},

		maxTries:       3,
		initialBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.api != APIOpenAI && r.api != APIOllama {
		return nil, fmt.Errorf("%w: unknown remote API %q", ErrEmbeddingFailed, r.api)
	}
	if r.batchSize < 1 {
		r.batchSize = 1
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.maxTries < 1 {
		r.maxTries = 1
	}
	return r, nil
}

// Name implements Embedder.
func (r *Remote) Name() string { return r.api + ":" + r.model }

// Dimensions implements Embedder. It is zero until the width is known.
func (r *Remote) Dimensions() int { return r.dims }

// --- wire types ---

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type ollamaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Embedder.
func (r *Remote) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for start := 0; start < len(texts); start += r.batchSize {
		end := min(start+r.batchSize, len(texts))
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			vecs, err := r.requestWithRetry(ctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.dims == 0 {
		r.dims = len(out[0])
	}
	return out, nil
}

func (r *Remote) requestWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialBackoff
	bo.MaxInterval = 10 * time.Second
	return backoff.Retry(ctx, func() ([][]float32, error) {
		return r.request(ctx, texts)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(r.maxTries))
}

// request sends one batch. Errors that a retry cannot fix are marked
// permanent.
func (r *Remote) request(ctx context.Context, texts []string) ([][]float32, error) {
	var (
		url  string
		body any
	)
	switch r.api {
	case APIOpenAI:
		url = r.baseURL + "/embeddings"
		body = openAIRequest{Model: r.model, Input: texts}
	default:
		url = r.baseURL + "/api/embed"
		body = ollamaRequest{Model: r.model, Input: texts}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: marshal request: %v", ErrEmbeddingFailed, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: create request: %v", ErrEmbeddingFailed, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrEmbeddingFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("%w: API error %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}

	var vecs [][]float32
	switch r.api {
	case APIOpenAI:
		var parsed openAIResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: unmarshal response: %v", ErrEmbeddingFailed, err))
		}
		sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
		for _, d := range parsed.Data {
			vecs = append(vecs, d.Embedding)
		}
	default:
		var parsed ollamaResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: unmarshal response: %v", ErrEmbeddingFailed, err))
		}
		vecs = parsed.Embeddings
	}

	if len(vecs) != len(texts) {
		return nil, backoff.Permanent(fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(vecs), len(texts)))
	}
	return vecs, nil
}

var _ Embedder = (*Remote)(nil)
