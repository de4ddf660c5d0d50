package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/textClassifier/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	dir := t.TempDir()
	cmd.SetArgs(append(args, "--env-file="+filepath.Join(dir, "none.env")))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootHelpListsSubcommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"train", "toy", "inspect", "config"} {
		assert.Contains(t, out, sub)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "nonexistent-command")
	assert.Error(t, err)
}

func TestToyCommand(t *testing.T) {
	out, err := execute(t, "toy", "--steps", "3", "--dropout", "0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// encoding time, three losses, predictions
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "The encoding time:"))
	assert.True(t, strings.HasPrefix(lines[4], "["))
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "spam.csv")
	var sb strings.Builder
	sb.WriteString("Category,Message\n")
	for i := range 10 {
		fmt.Fprintf(&sb, "spam,free cash prize %d\n", i)
		fmt.Fprintf(&sb, "ham,lunch tomorrow %d\n", i)
	}
	require.NoError(t, os.WriteFile(data, []byte(sb.String()), 0o644))

	plot := filepath.Join(dir, "loss.png")
	out, err := execute(t, "train", "--data", data, "--epochs", "2", "--batch-size", "4",
		"--embedder", "tfidf", "--loss-plot", plot)
	require.NoError(t, err)
	assert.Contains(t, out, "Report before training:")
	assert.Contains(t, out, "Report after training:")
	assert.Contains(t, out, "Confusion matrix")
	assert.Contains(t, out, "Accuracy: ")
	_, err = os.Stat(plot)
	assert.NoError(t, err)
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "spam.csv")
	var sb strings.Builder
	sb.WriteString("text,target\n")
	for i := range 10 {
		fmt.Fprintf(&sb, "storm flooding the coast %d,1\n", i)
		fmt.Fprintf(&sb, "lovely sunny afternoon %d,0\n", i)
	}
	require.NoError(t, os.WriteFile(data, []byte(sb.String()), 0o644))

	out, err := execute(t, "inspect", "--data", data, "--batch-size", "4", "--embedder", "hashing")
	require.NoError(t, err)
	assert.Contains(t, out, "Total examples: 20")
	assert.Contains(t, out, "Split: 16 train, 4 test")
	assert.Contains(t, out, "input=[4 384] label=[4]")
}

func TestTrainRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "train", "--epochs", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, "train", "--optimizer", "rmsprop")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "batch_size: 16")
	assert.Contains(t, out, "type: hashing")
}

func TestRemoteEmbedderFlagFillsDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	out, err := execute(t, "config", "show", "--embedder", "remote", "--config", missing)
	require.NoError(t, err)
	assert.Contains(t, out, "type: remote")
	assert.Contains(t, out, "api: ollama")
	assert.Contains(t, out, "base_url: http://localhost:11434")
	assert.Contains(t, out, "model: nomic-embed-text")
}

func TestToyWithRemoteEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var resp struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		for _, s := range req.Input {
			v := make([]float32, 8)
			for i, c := range strings.ToLower(s) {
				v[(i+int(c))%8]++
			}
			resp.Embeddings = append(resp.Embeddings, v)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	// only the base URL is set; the remaining remote settings come from defaults
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("embedder:\n  remote:\n    base_url: "+srv.URL+"\n"), 0o644))

	out, err := execute(t, "toy", "--embedder", "remote", "--config", cfgPath, "--steps", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[3], "["))
}
