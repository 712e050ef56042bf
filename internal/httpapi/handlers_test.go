package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"execteam/internal/agentregistry"
	"execteam/internal/bus"
	"execteam/internal/coordinator"
	"execteam/internal/delegation"
	"execteam/internal/llmclient"
	"execteam/internal/retrieval"
	"execteam/internal/retrieval/keywordindex"
	"execteam/internal/retrieval/vectorstore"
	"execteam/internal/tasks"
)

// fakeEmbedder returns a zero vector per input, enough to exercise the kb
// document/search endpoints without a real embedding backend.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry := agentregistry.NewDefaultRegistry(10)
	taskMgr := tasks.NewManager()
	b := bus.New(100, nil)
	engine := delegation.NewEngine(registry, taskMgr, b, nil, 0.4, 3)
	pool := coordinator.NewWorkerPool(2, 2*time.Second, registry)
	t.Cleanup(pool.Close)

	mock := llmclient.NewMock()
	mock.Response = "handled"
	coord := coordinator.New(engine, nil, registry, mock, pool, 0)

	vec := vectorstore.NewMemory()
	kw := retrieval.NewMemoryKeywordStore(keywordindex.New())
	index := retrieval.New(vec, kw, nil, fakeEmbedder{}, 500, 50, filepath.Join(t.TempDir(), "kb"))

	return NewServer(coord, index, registry, taskMgr)
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	require.True(t, env.OK)
}

func TestChatSubmitAndPoll(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"message":"What is the projected cash burn for Q3?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/submit", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	env := decodeEnvelope(t, rec.Body.Bytes())
	require.True(t, env.OK)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	messageID, ok := data["message_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, messageID)

	var pollEnv envelope
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		pollReq := httptest.NewRequest(http.MethodGet, "/api/v1/chat/poll/"+messageID, nil)
		pollRec := httptest.NewRecorder()
		srv.ServeHTTP(pollRec, pollReq)
		require.Equal(t, http.StatusOK, pollRec.Code)
		pollEnv = decodeEnvelope(t, pollRec.Body.Bytes())
		pollData := pollEnv.Data.(map[string]any)
		if pollData["status"] != "Generating" {
			require.Equal(t, "Complete", pollData["status"])
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for chat completion")
}

func TestChatSubmitRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/submit", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	require.False(t, env.OK)
	require.NotEmpty(t, env.Error)
}

func TestChatPollUnknownMessageIDReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/poll/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKBDocumentCreateSearchAndDelete(t *testing.T) {
	srv := newTestServer(t)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/kb/document", strings.NewReader(`{"content":"quarterly budget review"}`))
	createReq.Header.Set("Content-Type", "application/json")
	createRec := httptest.NewRecorder()
	srv.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	env := decodeEnvelope(t, createRec.Body.Bytes())
	data := env.Data.(map[string]any)
	docID := data["id"].(string)
	require.NotEmpty(t, docID)

	searchReq := httptest.NewRequest(http.MethodGet, "/api/v1/kb/search?q=quarterly+budget&semantic_weight=0&keyword_weight=1", nil)
	searchRec := httptest.NewRecorder()
	srv.ServeHTTP(searchRec, searchReq)
	require.Equal(t, http.StatusOK, searchRec.Code)
	searchEnv := decodeEnvelope(t, searchRec.Body.Bytes())
	results := searchEnv.Data.([]any)
	require.NotEmpty(t, results)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/kb/document/"+docID, nil)
	delRec := httptest.NewRecorder()
	srv.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusNoContent, delRec.Code)
}

func TestListAgentsReturnsAllSevenRoles(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec.Body.Bytes())
	agents := env.Data.([]any)
	require.Len(t, agents, len(agentregistry.AllRoles))
}

func TestGetTaskNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
