package transfer

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

// fakeRows serves fixed rows. Values are string, []byte or nil.
type fakeRows struct {
	rows    [][]any
	next    int
	nexts   int
	scanErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	r.nexts++
	if r.next >= len(r.rows) {
		return false
	}
	r.next++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.next-1]
	if len(row) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *sql.NullString:
			switch v := v.(type) {
			case nil:
				*d = sql.NullString{}
			case string:
				*d = sql.NullString{String: v, Valid: true}
			default:
				return fmt.Errorf("column %d: cannot scan %T into string", i, v)
			}
		case *[]byte:
			switch v := v.(type) {
			case nil:
				*d = nil
			case []byte:
				*d = append([]byte(nil), v...)
			default:
				return fmt.Errorf("column %d: cannot scan %T into bytes", i, v)
			}
		default:
			return fmt.Errorf("column %d: unsupported destination %T", i, dest[i])
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func numberedRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{fmt.Sprint(i + 1), fmt.Sprintf("name %d", i+1)}
	}
	return rows
}

// fakeTarget records everything sent to it.
type fakeTarget struct {
	mu       sync.Mutex
	execs    []string
	copySQL  []string
	copies   []string
	batches  [][]*pgx.QueuedQuery
	copyErr  error
	batchErr error
}

func (f *fakeTarget) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTarget) SendBatch(_ context.Context, batch *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch.QueuedQueries)
	return &fakeBatchResults{err: f.batchErr}
}

func (f *fakeTarget) CopyFrom(_ context.Context, r io.Reader, sql string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return 0, err
	}
	f.copySQL = append(f.copySQL, sql)
	f.copies = append(f.copies, buf.String())
	return int64(bytes.Count(buf.Bytes(), []byte("\n"))), nil
}

func (f *fakeTarget) copiedLines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.copies {
		n += bytes.Count([]byte(c), []byte("\n"))
	}
	return n
}

type fakeBatchResults struct {
	err error
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, r.err }

func (r *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }

func (r *fakeBatchResults) QueryRow() pgx.Row { return nil }

func (r *fakeBatchResults) Close() error { return nil }

// fakeCatalog describes tables with fixed columns.
type fakeCatalog struct {
	tables      []string
	columns     map[string][]schema.Column
	foreignKeys map[string][]schema.ForeignKey
	failColumns map[string]error
}

func (c *fakeCatalog) ListTables(context.Context, string) ([]string, error) {
	return c.tables, nil
}

func (c *fakeCatalog) Columns(_ context.Context, _, table string) ([]schema.Column, error) {
	if err := c.failColumns[table]; err != nil {
		return nil, err
	}
	return c.columns[table], nil
}

func (c *fakeCatalog) TableComment(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *fakeCatalog) ColumnComments(context.Context, string, string) ([]schema.ColumnComment, error) {
	return nil, nil
}

func (c *fakeCatalog) Constraints(context.Context, string, string) ([]schema.Constraint, error) {
	return nil, nil
}

func (c *fakeCatalog) ForeignKeys(_ context.Context, _, table string) ([]schema.ForeignKey, error) {
	return c.foreignKeys[table], nil
}

func (c *fakeCatalog) Indexes(context.Context, string, string) ([]schema.Index, error) {
	return nil, nil
}

func (c *fakeCatalog) ConstraintColumns(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (c *fakeCatalog) ConstraintExists(context.Context, string, string) (bool, error) {
	return false, nil
}

// fakeOpener hands out rows per table.
type fakeOpener struct {
	mu     sync.Mutex
	rows   map[string][][]any
	opened []string
	limits []int
}

func (o *fakeOpener) OpenRows(_ context.Context, spec TableSpec, limit int) (RowSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, spec.Table)
	o.limits = append(o.limits, limit)
	return &fakeRows{rows: o.rows[spec.Table]}, nil
}
