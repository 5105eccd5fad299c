package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgbridge/internal/database"
	"github.com/koustreak/pgbridge/internal/tools"
)

// stubRunner returns a canned query result.
type stubRunner struct {
	result *database.QueryResult
	err    error
}

func (s *stubRunner) Run(context.Context, string) (*database.QueryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// recordingSink captures stored artifacts.
type recordingSink struct {
	mu   sync.Mutex
	keys []string
	data [][]byte
}

func (r *recordingSink) Put(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.data = append(r.data, payload)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func newTestServer(t *testing.T, runner tools.Runner) (*httptest.Server, *recordingSink) {
	t.Helper()
	pool := database.NewManager(&database.Config{}, nil)
	registry := tools.NewRegistry(runner, nil)
	sink := &recordingSink{}
	ts := httptest.NewServer(New(registry, pool, sink, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, sink
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Catalog(t *testing.T) {
	ts, _ := newTestServer(t, &stubRunner{})

	out := getJSON(t, ts.URL+"/tools")
	list, ok := out["tools"].([]any)
	require.True(t, ok)
	require.Len(t, list, 6)

	first := list[0].(map[string]any)
	assert.Equal(t, "hello_mcp", first["name"])

	// add_integers advertises its typed argument properties.
	var add map[string]any
	for _, item := range list {
		if m := item.(map[string]any); m["name"] == "add_integers" {
			add = m
		}
	}
	require.NotNil(t, add)
	props := add["properties"].([]any)
	require.Len(t, props, 2)
	assert.Equal(t, "num_a", props[0].(map[string]any)["propertyName"])
	assert.Equal(t, "integer", props[0].(map[string]any)["propertyType"])
}

func TestServer_InvokeAddIntegers(t *testing.T) {
	ts, sink := newTestServer(t, &stubRunner{})

	status, out := postJSON(t, ts.URL+"/tools/add_integers",
		`{"arguments": {"num_a": "5", "num_b": "10"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(15), out["sum"])

	// The envelope was also persisted as an artifact.
	require.Len(t, sink.keys, 1)
	assert.True(t, strings.HasPrefix(sink.keys[0], "add_integers/"))
	assert.True(t, strings.HasSuffix(sink.keys[0], ".json"))
	assert.JSONEq(t, `{"sum": 15}`, string(sink.data[0]))
}

func TestServer_InvokeUnknownTool(t *testing.T) {
	ts, _ := newTestServer(t, &stubRunner{})

	status, out := postJSON(t, ts.URL+"/tools/nope", `{}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tool not found: nope", out["error"])
}

func TestServer_InvokeQueryTool(t *testing.T) {
	ts, _ := newTestServer(t, &stubRunner{result: &database.QueryResult{
		Columns: []string{"datname"},
		Rows:    []map[string]any{{"datname": "postgres"}},
	}})

	status, out := postJSON(t, ts.URL+"/tools/get_databases", ``)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"datname"}, out["columns"])
}

func TestServer_Healthz(t *testing.T) {
	ts, _ := newTestServer(t, &stubRunner{})

	out := getJSON(t, ts.URL+"/healthz")
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["pool_initialized"])

	pool, ok := out["pool"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), pool["acquired"])
}

// TestServer_UnconfiguredPoolKeepsServing drives a query tool against a
// gateway whose connection string was never set: the caller gets a clear
// error envelope, and the process keeps answering subsequent requests.
func TestServer_UnconfiguredPoolKeepsServing(t *testing.T) {
	pool := database.NewManager(&database.Config{}, nil)
	exec := database.NewExecutor(pool, nil, 0)
	registry := tools.NewRegistry(exec, nil)
	ts := httptest.NewServer(New(registry, pool, &recordingSink{}, nil).Handler())
	t.Cleanup(ts.Close)

	status, out := postJSON(t, ts.URL+"/tools/get_databases", ``)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t,
		"database pool is not initialized. Check environment variables and logs",
		out["error"])

	// Still serving.
	status, out = postJSON(t, ts.URL+"/tools/hello_mcp", ``)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hello I am MCPTool!", out["result"])
}

func TestServer_QueryDataRejectsWrites(t *testing.T) {
	ts, _ := newTestServer(t, &stubRunner{})

	status, out := postJSON(t, ts.URL+"/tools/query_data",
		`{"arguments": {"sql_query": "DELETE FROM t"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t,
		"This tool is for SELECT queries only. Use appropriate tools for modifications.",
		out["error"])
}
