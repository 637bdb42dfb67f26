package transfer

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

// Target is the PostgreSQL side of a transfer.
type Target interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
	CopyFrom(ctx context.Context, r io.Reader, sql string) (int64, error)
}

// NewTarget adapts a pgx connection.
func NewTarget(conn *pgx.Conn) Target {
	return &pgTarget{conn: conn}
}

type pgTarget struct {
	conn *pgx.Conn
}

func (t *pgTarget) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *pgTarget) SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	return t.conn.SendBatch(ctx, batch)
}

func (t *pgTarget) CopyFrom(ctx context.Context, r io.Reader, sql string) (int64, error) {
	tag, err := t.conn.PgConn().CopyFrom(ctx, r, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Limits bound how much data one table transfer reads and buffers.
type Limits struct {
	// SampleRows caps the rows read per table. Zero reads every row.
	SampleRows int
	// ChunkSize is the number of rows sent to the target at once.
	ChunkSize int
	// NullToken marks SQL NULL in COPY records.
	NullToken string
}

func (l Limits) chunk() int {
	if l.ChunkSize < 1 {
		return 1
	}
	return l.ChunkSize
}

func (l Limits) nullToken() string {
	if l.NullToken == "" {
		return "null"
	}
	return l.NullToken
}

type Strategy interface {
	Name() string
	Transfer(ctx context.Context, rows RowSource, dst Target, spec TableSpec) (int64, error)
}

// SelectStrategy picks batched inserts for tables with large object columns
// and COPY for everything else.
func SelectStrategy(columns []schema.Column, limits Limits) Strategy {
	for _, col := range columns {
		if col.SourceType().IsLOB() {
			return &batchInsert{limits: limits}
		}
	}
	return &bulkCopy{limits: limits}
}
