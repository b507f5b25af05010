package docserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/promptsync/internal/cloud"
	"nathanbeddoewebdev/promptsync/internal/history"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	s := New(opts...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func record(id string, updated time.Time) history.ExecutionRecord {
	return history.ExecutionRecord{
		ID:             id,
		EngineID:       "claude",
		CompiledPrompt: "prompt " + id,
		ExecutedAt:     t0,
		Status:         history.StatusSuccess,
		DeviceID:       "dev-1",
		UpdatedAt:      updated,
	}
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTPStoreRoundTrip(t *testing.T) {
	s, url := newTestServer(t)
	store := cloud.NewHTTPStore(url, "alice")
	ctx := context.Background()

	batch := []history.ExecutionRecord{
		record("a", t0),
		record("b", t0.Add(time.Minute)),
		record("c", t0.Add(2*time.Minute)),
	}
	require.NoError(t, store.BatchUpsert(ctx, batch))

	got, err := store.GetUpdatesSince(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "prompt b", got[0].CompiledPrompt)
	assert.True(t, got[1].UpdatedAt.Equal(t0.Add(2*time.Minute)))

	assert.Equal(t, float64(3), testutil.ToFloat64(s.upserted))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.queries))
}

func TestUpsertIsIdempotent(t *testing.T) {
	_, url := newTestServer(t)
	store := cloud.NewHTTPStore(url, "alice")
	ctx := context.Background()

	batch := []history.ExecutionRecord{record("a", t0)}
	require.NoError(t, store.BatchUpsert(ctx, batch))
	require.NoError(t, store.BatchUpsert(ctx, batch))

	got, err := store.GetUpdatesSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUsersAreIsolated(t *testing.T) {
	_, url := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, cloud.NewHTTPStore(url, "alice").BatchUpsert(ctx, []history.ExecutionRecord{record("a", t0)}))

	got, err := cloud.NewHTTPStore(url, "bob").GetUpdatesSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertMergesFields(t *testing.T) {
	_, url := newTestServer(t)
	endpoint := url + "/v1/collections/execution_history:batchUpsert"

	full := `{"documents":[{"id":"a","engine_id":"claude","compiled_prompt":"first","updated_at":"2026-03-01T12:00:00Z"}]}`
	resp := do(t, http.MethodPost, endpoint, "alice", full)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	partial := `{"documents":[{"id":"a","is_deleted":true,"updated_at":"2026-03-01T13:00:00Z"}]}`
	resp = do(t, http.MethodPost, endpoint, "alice", partial)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, url+"/v1/collections/execution_history", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Documents, 1)

	doc := out.Documents[0]
	assert.Equal(t, "first", doc["compiled_prompt"], "unposted fields survive")
	assert.Equal(t, true, doc["is_deleted"])
	assert.Equal(t, "2026-03-01T13:00:00Z", doc["updated_at"])
}

func TestUpsertRejectsInvalidBatch(t *testing.T) {
	_, url := newTestServer(t)
	endpoint := url + "/v1/collections/execution_history:batchUpsert"

	body := `{"documents":[{"id":"ok","updated_at":"2026-03-01T12:00:00Z"},{"id":"bad"}]}`
	resp := do(t, http.MethodPost, endpoint, "alice", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got, err := cloud.NewHTTPStore(url, "alice").GetUpdatesSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got, "a rejected batch writes nothing")
}

func TestAuthErrors(t *testing.T) {
	_, url := newTestServer(t, WithTokens("alice"))
	ctx := context.Background()

	_, err := cloud.NewHTTPStore(url, "").GetUpdatesSince(ctx, time.Time{})
	assert.True(t, errors.Is(err, cloud.ErrUnauthorized), "missing token: %v", err)

	err = cloud.NewHTTPStore(url, "mallory").BatchUpsert(ctx, []history.ExecutionRecord{record("a", t0)})
	assert.True(t, errors.Is(err, cloud.ErrUnauthorized), "unknown token: %v", err)

	_, err = cloud.NewHTTPStore(url, "alice").GetUpdatesSince(ctx, time.Time{})
	assert.NoError(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	_, url := newTestServer(t)

	resp := do(t, http.MethodGet, url+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, url+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "promptsync_docserver_upserted_documents_total")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
