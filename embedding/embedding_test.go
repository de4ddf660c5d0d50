package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/textClassifier/config"
)

func l2(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingDeterministic(t *testing.T) {
	h := NewHashing(64)
	texts := []string{"Win a FREE prize now", "see you at lunch", ""}

	a, err := h.Embed(context.Background(), texts)
	require.NoError(t, err)
	b, err := NewHashing(64).Embed(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a, 3)
	for _, v := range a {
		assert.Len(t, v, 64)
	}
	assert.InDelta(t, 1.0, l2(a[0]), 1e-5)
	assert.InDelta(t, 0.0, l2(a[2]), 1e-9, "empty text is the zero vector")
	assert.NotEqual(t, a[0], a[1])
}

func TestHashingCaseInsensitive(t *testing.T) {
	vecs, err := NewHashing(0).Embed(context.Background(), []string{"Hello World", "hello world"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], DefaultHashingDimensions)
	assert.Equal(t, vecs[0], vecs[1])
}

func TestHashingHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashing(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTFIDF(t *testing.T) {
	e := NewTFIDF()
	_, err := e.Embed(context.Background(), []string{"free"})
	require.ErrorIs(t, err, ErrEmbeddingFailed, "unfitted")

	corpus := []string{"free prize money", "lunch at noon", "free lunch"}
	require.NoError(t, e.Fit(corpus))
	// free, lunch, money, noon, prize ("at" is a stopword)
	assert.Equal(t, 5, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{"free money", "quantum"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, l2(vecs[0]), 1e-5)
	assert.InDelta(t, 0.0, l2(vecs[1]), 1e-9, "out of vocabulary")

	// "money" is rarer than "free" so it carries more weight
	idx := e.index
	assert.Greater(t, vecs[0][idx["money"]], vecs[0][idx["free"]])

	assert.ErrorIs(t, NewTFIDF().Fit(nil), ErrEmbeddingFailed)
}

func TestTFIDFOptions(t *testing.T) {
	corpus := []string{"free prize money", "lunch at noon", "free lunch"}

	bi := NewTFIDF(WithBigrams(true))
	require.NoError(t, bi.Fit(corpus))
	// five words plus "free prize", "prize money", "lunch noon", "free lunch"
	assert.Equal(t, 9, bi.Dimensions())
	assert.Contains(t, bi.index, "lunch noon", "function words are dropped before pairing")

	frequent := NewTFIDF(WithMinDocFreq(2))
	require.NoError(t, frequent.Fit(corpus))
	assert.Equal(t, []string{"free", "lunch"}, frequent.terms)

	assert.ErrorIs(t, NewTFIDF(WithMinDocFreq(5)).Fit(corpus), ErrEmbeddingFailed)
}

func TestTokenHelpers(t *testing.T) {
	assert.Equal(t, []string{"win", "a", "prize", "2day"}, words("WIN a prize, 2day!"))
	assert.Equal(t, []string{"win", "prize"}, contentWords("Win a prize"))
	assert.Equal(t, []string{"a b", "b c"}, bigrams([]string{"a", "b", "c"}))
	assert.Nil(t, bigrams([]string{"a"}))
	assert.Equal(t, []float32{0.6, 0.8}, normalizeL2([]float64{3, 4}))
	assert.Equal(t, []float32{0, 0}, normalizeL2([]float64{0, 0}))
}

type countingEmbedder struct {
	calls atomic.Int32
	seen  [][]string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.seen = append(c.seen, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = []float32{float32(len(s)), 1}
	}
	return out, nil
}
func (c *countingEmbedder) Dimensions() int { return 2 }
func (c *countingEmbedder) Name() string    { return "counting" }

func TestCachedHitsAndDedup(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := NewCached(inner, 10)
	require.NoError(t, err)
	c := e.(*Cached)

	out, err := c.Embed(context.Background(), []string{"aa", "b", "aa"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {1, 1}, {2, 1}}, out)
	assert.Equal(t, []string{"aa", "b"}, inner.seen[0], "duplicates sent once")
	assert.Equal(t, 2, c.Len())

	out, err = c.Embed(context.Background(), []string{"b", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, out)
	assert.Equal(t, []string{"ccc"}, inner.seen[1], "only misses reach the inner embedder")

	_, err = c.Embed(context.Background(), []string{"aa", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "counting", c.Name())
	assert.Equal(t, 2, c.Dimensions())
}

func TestCachedDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := NewCached(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, e)
}

func TestEncodeValidates(t *testing.T) {
	_, err := Encode(context.Background(), NewHashing(4), nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	vecs, err := Encode(context.Background(), NewHashing(4), []string{"a b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestRemoteOllama(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mini", req.Model)
		resp := ollamaResponse{}
		for _, s := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(len(s)), 0, 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r, err := NewRemote(WithAPI(APIOllama), WithBaseURL(srv.URL+"/"), WithModel("mini"),
		WithBatchSize(2), WithConcurrency(3), WithRateLimit(1000))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Dimensions())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := r.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0], "order preserved")
	}
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, 3, r.Dimensions())
	assert.Equal(t, "ollama:mini", r.Name())
}

func TestRemoteOpenAISortsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[2,2]},
			{"index":0,"embedding":[1,1]}]}`))
	}))
	defer srv.Close()

	r, err := NewRemote(WithAPI("OpenAI"), WithBaseURL(srv.URL), WithAPIKey("sk-test"))
	require.NoError(t, err)
	vecs, err := r.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, vecs)
}

func TestRemoteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := NewRemote(WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = r.Embed(context.Background(), []string{"x"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "404")

	_, err = NewRemote(WithAPI("grpc"))
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestRemoteRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	r, err := NewRemote(WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	vecs, err := r.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}}, vecs)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRemoteDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	r, err := NewRemote(WithBaseURL(srv.URL), WithRetry(5, time.Millisecond))
	require.NoError(t, err)
	_, err = r.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRemoteCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	r, err := NewRemote(WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = r.Embed(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestNewFromConfig(t *testing.T) {
	e, err := New(config.EmbedderConfig{Type: "hashing", Dimensions: 16, CacheSize: 8})
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, e)
	assert.Equal(t, 16, e.Dimensions())

	e, err = New(config.EmbedderConfig{Type: "tfidf", MinDocFreq: 2, Bigrams: true})
	require.NoError(t, err)
	tf, ok := e.(*TFIDF)
	require.True(t, ok)
	assert.Equal(t, 2, tf.minDocFreq)
	assert.True(t, tf.useBigrams)

	t.Setenv("TEXTCLF_EMBED_KEY", "k")
	e, err = New(config.EmbedderConfig{Type: "remote", Remote: &config.RemoteEmbedderConfig{
		API: "openai", Model: "m", APIKeyEnv: "TEXTCLF_EMBED_KEY", TimeoutSecs: 5,
	}})
	require.NoError(t, err)
	require.IsType(t, &Remote{}, e)
	assert.Equal(t, "k", e.(*Remote).apiKey)

	_, err = New(config.EmbedderConfig{Type: "remote"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	_, err = New(config.EmbedderConfig{Type: "word2vec"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
