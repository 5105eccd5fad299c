package database

import "github.com/jackc/pgx/v5"

// QueryResult is the materialized outcome of one query: the ordered column
// names and every row as a column→value map. Every row carries exactly the
// columns listed in Columns.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// scanRows drains rows into a QueryResult. It always closes the result set,
// so callers never need to call Close themselves.
//
// Rows is never nil in the result: zero matching rows yields an empty
// slice, keeping the JSON envelope shape stable ("rows": []).
func scanRows(rows Rows) (*QueryResult, error) {
	defer rows.Close()

	columns := rows.Columns()
	result := &QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = dest[i]
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error during row iteration")
	}

	return result, nil
}

// pgxRows wraps pgx.Rows to satisfy the Rows interface.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

func (r *pgxRows) Columns() []string {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols
}
