package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/koustreak/pgbridge/internal/errs"
)

// Fixed SQL for the catalog tools. These run against Postgres system
// catalogs and information_schema only.
const (
	sqlGetDatabases = `SELECT datname FROM pg_database WHERE datistemplate = false;`

	sqlGetSchemas = `
    SELECT
        table_name,
        column_name,
        ordinal_position AS position,
        data_type
    FROM
        information_schema.columns
    WHERE
        table_schema = 'public'
    ORDER BY
        table_schema,
        table_name,
        ordinal_position;
    `

	sqlGetAllKeys = `
    SELECT
        tc.table_name,
        tc.constraint_name,
        CASE tc.constraint_type
            WHEN 'PRIMARY KEY' THEN 'Primary Key'
            WHEN 'FOREIGN KEY' THEN 'Foreign Key'
            WHEN 'UNIQUE' THEN 'Unique Constraint'
            ELSE tc.constraint_type
        END AS constraint_type,

        array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns,

        -- Only for foreign keys
        ccu.table_name AS foreign_table_name,
        array_agg(ccu.column_name ORDER BY kcu.position_in_unique_constraint) AS foreign_columns

    FROM
        information_schema.table_constraints tc
    JOIN
        information_schema.key_column_usage kcu
        ON tc.constraint_catalog = kcu.constraint_catalog
        AND tc.constraint_schema = kcu.constraint_schema
        AND tc.constraint_name = kcu.constraint_name
    LEFT JOIN
        information_schema.constraint_column_usage ccu
        ON tc.constraint_catalog = ccu.constraint_catalog
        AND tc.constraint_schema = ccu.constraint_schema
        AND tc.constraint_name = ccu.constraint_name
    WHERE
        tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY', 'UNIQUE')
        AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'cron')
    GROUP BY
        tc.table_name,
        tc.constraint_name,
        tc.constraint_type,
        ccu.table_name
    ORDER BY
        tc.table_name,
        tc.constraint_name;
    `
)

// registerBuiltins wires every builtin tool into the registry.
func (r *Registry) registerBuiltins() {
	r.register(Definition{
		Name:        "hello_mcp",
		Description: "Hello world.",
		Handler: func(_ context.Context, _ map[string]any) (any, *errs.Error) {
			return map[string]string{"result": "Hello I am MCPTool!"}, nil
		},
	})

	r.register(Definition{
		Name:        "add_integers",
		Description: "Adds two integers and returns the sum.",
		Properties: []Property{
			{Name: "num_a", Type: "integer", Description: "The first integer to add."},
			{Name: "num_b", Type: "integer", Description: "The second integer to add."},
		},
		Handler: r.addIntegers,
	})

	r.register(Definition{
		Name:        "get_databases",
		Description: "Gets the list of all databases in the configured PostgreSQL server instance.",
		Handler:     r.fixedQuery(sqlGetDatabases),
	})

	r.register(Definition{
		Name:        "get_schemas",
		Description: "Gets schemas of all tables in the 'public' schema of the configured database.",
		Handler:     r.fixedQuery(sqlGetSchemas),
	})

	r.register(Definition{
		Name:        "get_all_keys",
		Description: "Gets all keys and constraints of all tables in the 'public' schema of the configured database.",
		Handler:     r.fixedQuery(sqlGetAllKeys),
	})

	r.register(Definition{
		Name:        "query_data",
		Description: "Runs read-only SQL queries (SELECT statements) on the configured database.",
		Properties: []Property{
			{Name: "sql_query", Type: "string", Description: "The SQL SELECT query to execute."},
		},
		Handler: r.queryData,
	})
}

// addIntegers coerces both arguments to integers and returns their sum.
func (r *Registry) addIntegers(_ context.Context, args map[string]any) (any, *errs.Error) {
	a, okA := intArg(args, "num_a")
	b, okB := intArg(args, "num_b")
	if !okA || !okB {
		return nil, errs.New(errs.ErrKindValidation,
			"Invalid argument types. 'num_a' and 'num_b' must be integers.")
	}
	return map[string]int{"sum": a + b}, nil
}

// fixedQuery builds a handler that runs a fixed SQL statement.
func (r *Registry) fixedQuery(sql string) Handler {
	return func(ctx context.Context, _ map[string]any) (any, *errs.Error) {
		return r.runQuery(ctx, sql)
	}
}

// queryData runs a caller-supplied statement, gated by the SELECT prefix
// check. The check is a syntactic allow-list, not a semantic read-only
// guarantee: a statement that begins with SELECT can still smuggle writes
// through CTEs or stacked statements. Known limitation.
func (r *Registry) queryData(ctx context.Context, args map[string]any) (any, *errs.Error) {
	query, ok := stringArg(args, "sql_query")
	if !ok {
		return nil, errs.New(errs.ErrKindValidation,
			"Invalid argument types. 'sql_query' must be a string.")
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		r.log.Warnf("query_data received non-SELECT query")
		return nil, errs.New(errs.ErrKindValidation,
			"This tool is for SELECT queries only. Use appropriate tools for modifications.")
	}

	return r.runQuery(ctx, query)
}

// runQuery executes sql through the executor and normalizes any failure
// into an *errs.Error suitable for the envelope.
func (r *Registry) runQuery(ctx context.Context, sql string) (any, *errs.Error) {
	result, err := r.exec.Run(ctx, sql)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, errs.Wrap(errs.ErrKindUnknown, "An unexpected error occurred", err)
	}
	return result, nil
}
