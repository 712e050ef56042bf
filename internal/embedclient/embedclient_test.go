package embedclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{}
		for range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{0.1, 0.2}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(Config{Model: "test-model", BaseURL: srv.URL, Path: "/embed"}, nil)
	out, err := c.Embed(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, []float32{0.1, 0.2}, out[0])
}

func TestEmbedTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{Model: "test-model", BaseURL: srv.URL, Path: "/embed"}, &http.Client{Timeout: 10 * time.Millisecond})
	_, err := c.Embed(t.Context(), []string{"a"})
	require.Error(t, err)
}

func TestEmbedRejectsMismatchedCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(embedResponse{}))
	}))
	defer srv.Close()

	c := New(Config{Model: "test-model", BaseURL: srv.URL, Path: "/embed"}, nil)
	_, err := c.Embed(t.Context(), []string{"a"})
	require.Error(t, err)
}
