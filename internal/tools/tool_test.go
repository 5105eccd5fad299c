package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgbridge/internal/database"
	"github.com/koustreak/pgbridge/internal/errs"
)

// fakeRunner records the SQL it receives and returns a canned outcome.
type fakeRunner struct {
	lastSQL string
	calls   int
	result  *database.QueryResult
	err     error
}

func (f *fakeRunner) Run(_ context.Context, sql string) (*database.QueryResult, error) {
	f.lastSQL = sql
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func decodeEnvelope(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRegistry_Catalog(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)

	defs := r.List()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"hello_mcp", "add_integers", "get_databases",
		"get_schemas", "get_all_keys", "query_data",
	}, names)

	// Catalog order is stable across calls.
	again := r.List()
	for i := range defs {
		assert.Equal(t, defs[i].Name, again[i].Name)
	}

	add, ok := r.Get("add_integers")
	require.True(t, ok)
	assert.Equal(t, []string{"num_a", "num_b"}, add.Required())
}

func TestDispatch_UnknownTool(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)

	env := decodeEnvelope(t, r.Dispatch(context.Background(), "no_such_tool", nil))
	assert.Equal(t, "Tool not found: no_such_tool", env["error"])
}

func TestDispatch_AddIntegers(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)

	tests := []struct {
		name    string
		payload string
		wantSum float64
		wantErr string
	}{
		{
			name:    "string inputs are coerced",
			payload: `{"arguments": {"num_a": "5", "num_b": "10"}}`,
			wantSum: 15,
		},
		{
			name:    "numeric inputs",
			payload: `{"arguments": {"num_a": 2, "num_b": 3}}`,
			wantSum: 5,
		},
		{
			name:    "empty arguments names both",
			payload: `{"arguments": {}}`,
			wantErr: "Missing required arguments: 'num_a' and 'num_b'.",
		},
		{
			name:    "non-integer input",
			payload: `{"arguments": {"num_a": "five", "num_b": 1}}`,
			wantErr: "Invalid argument types. 'num_a' and 'num_b' must be integers.",
		},
		{
			name:    "fractional input",
			payload: `{"arguments": {"num_a": 1.5, "num_b": 1}}`,
			wantErr: "Invalid argument types. 'num_a' and 'num_b' must be integers.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeEnvelope(t, r.Dispatch(context.Background(), "add_integers", []byte(tt.payload)))
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, env["error"])
				return
			}
			assert.Equal(t, tt.wantSum, env["sum"])
		})
	}
}

func TestDispatch_QueryData(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		forwards bool
	}{
		{"plain select", "SELECT 1", true},
		{"lowercase select", "select * from users", true},
		{"leading whitespace", "   \n\tSELECT datname FROM pg_database", true},
		{"delete", "DELETE FROM t", false},
		{"update", "update t set x = 1", false},
		{"insert", "INSERT INTO t VALUES (1)", false},
		{"drop", "DROP TABLE t", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: &database.QueryResult{Columns: []string{"x"}, Rows: []map[string]any{}}}
			r := NewRegistry(runner, nil)

			payload, _ := json.Marshal(map[string]any{"arguments": map[string]any{"sql_query": tt.query}})
			env := decodeEnvelope(t, r.Dispatch(context.Background(), "query_data", payload))

			if tt.forwards {
				assert.Equal(t, 1, runner.calls)
				assert.Equal(t, tt.query, runner.lastSQL)
				assert.NotContains(t, env, "error")
			} else {
				assert.Equal(t, 0, runner.calls)
				assert.Equal(t,
					"This tool is for SELECT queries only. Use appropriate tools for modifications.",
					env["error"])
			}
		})
	}
}

func TestDispatch_QueryData_NonStringQuery(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)

	env := decodeEnvelope(t, r.Dispatch(context.Background(), "query_data",
		[]byte(`{"arguments": {"sql_query": 42}}`)))
	assert.Equal(t, "Invalid argument types. 'sql_query' must be a string.", env["error"])
}

func TestDispatch_FixedQueryTools(t *testing.T) {
	runner := &fakeRunner{result: &database.QueryResult{
		Columns: []string{"datname"},
		Rows:    []map[string]any{{"datname": "postgres"}},
	}}
	r := NewRegistry(runner, nil)

	// No-arg tools work with an empty payload; the envelope is not parsed.
	env := decodeEnvelope(t, r.Dispatch(context.Background(), "get_databases", nil))

	assert.Equal(t, []any{"datname"}, env["columns"])
	rows, ok := env["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"datname": "postgres"}, rows[0])
	assert.Contains(t, runner.lastSQL, "pg_database")
}

func TestDispatch_ExecutorErrorsBecomeEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name: "pool unavailable",
			err: errs.Wrap(errs.ErrKindPoolUnavailable,
				"database pool is not initialized. Check environment variables and logs",
				errs.New(errs.ErrKindConfiguration, "database connection string is not configured")),
			wantMsg: "database pool is not initialized. Check environment variables and logs",
		},
		{
			name:    "execution failure",
			err:     errs.New(errs.ErrKindExecution, `query failed: relation "nope" does not exist`),
			wantMsg: `query failed: relation "nope" does not exist`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(&fakeRunner{err: tt.err}, nil)
			env := decodeEnvelope(t, r.Dispatch(context.Background(), "get_schemas", nil))
			assert.Equal(t, tt.wantMsg, env["error"])
		})
	}
}

func TestDispatch_RecoversHandlerPanic(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)
	r.register(Definition{
		Name:        "explode",
		Description: "always panics",
		Handler: func(context.Context, map[string]any) (any, *errs.Error) {
			panic("boom")
		},
	})

	env := decodeEnvelope(t, r.Dispatch(context.Background(), "explode", nil))
	assert.Equal(t, "An unexpected error occurred: boom", env["error"])
}

func TestDispatch_HelloMCP(t *testing.T) {
	r := NewRegistry(&fakeRunner{}, nil)

	env := decodeEnvelope(t, r.Dispatch(context.Background(), "hello_mcp", nil))
	assert.Equal(t, "Hello I am MCPTool!", env["result"])
}
