package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// testConfig builds a repository config with no pool; stores under test
// run against a stub transaction bound to the context instead.
func testConfig(flags Flags) *RepositoryConfig {
	return NewRepositoryConfig(nil, "wiki", slog.New(slog.NewTextHandler(io.Discard, nil)), flags)
}

// stubTx scripts query results for store tests that exercise SQL
// sequencing without a server. Results match by SQL substring, checked
// in declaration order. Unmatched EXISTS checks answer false and other
// unmatched point queries answer no rows. Every Exec is recorded.
type stubTx struct {
	pgx.Tx
	results []stubResult
	execs   []stubExec
}

type stubResult struct {
	pattern string
	rows    [][]any
}

type stubExec struct {
	sql  string
	args []any
}

func (s *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, stubExec{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (s *stubTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	for _, r := range s.results {
		if strings.Contains(sql, r.pattern) {
			return &stubRows{rows: r.rows}, nil
		}
	}
	return &stubRows{}, nil
}

func (s *stubTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	for _, r := range s.results {
		if strings.Contains(sql, r.pattern) {
			if len(r.rows) == 0 {
				return stubRow{err: pgx.ErrNoRows}
			}
			return stubRow{vals: r.rows[0]}
		}
	}
	if strings.Contains(sql, "SELECT EXISTS") {
		return stubRow{vals: []any{false}}
	}
	return stubRow{err: pgx.ErrNoRows}
}

// execsMatching returns the recorded statements containing pattern.
func (s *stubTx) execsMatching(pattern string) []stubExec {
	var out []stubExec
	for _, e := range s.execs {
		if strings.Contains(e.sql, pattern) {
			out = append(out, e)
		}
	}
	return out
}

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignStub(dest, r.vals)
}

type stubRows struct {
	pgx.Rows
	rows [][]any
	i    int
	cur  []any
}

func (r *stubRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.i]
	r.i++
	return true
}

func (r *stubRows) Scan(dest ...any) error { return assignStub(dest, r.cur) }
func (r *stubRows) Values() ([]any, error) { return r.cur, nil }
func (r *stubRows) Err() error             { return nil }
func (r *stubRows) Close()                 {}

func assignStub(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan %d destinations from %d values", len(dest), len(vals))
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = vals[i].(string)
		case *int:
			*d = vals[i].(int)
		case *int64:
			*d = vals[i].(int64)
		case *bool:
			*d = vals[i].(bool)
		case *[]byte:
			*d = append([]byte(nil), vals[i].([]byte)...)
		case *time.Time:
			*d = vals[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan destination %T", dest[i])
		}
	}
	return nil
}
