package transfer

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

// batchInsert sends parameterized inserts in pgx batches. Large objects are
// read fully into memory and bound as parameters, so a pending batch holds up
// to chunk_size rows and memory grows with chunk_size times the LOB size.
type batchInsert struct {
	limits Limits
}

func (s *batchInsert) Name() string {
	return "insert"
}

func (s *batchInsert) Transfer(ctx context.Context, rows RowSource, dst Target, spec TableSpec) (int64, error) {
	statement, err := insertStatement(spec)
	if err != nil {
		return 0, err
	}
	chunk := s.limits.chunk()

	fields := make([]insertField, len(spec.Columns))
	dest := make([]any, len(fields))
	for i, col := range spec.Columns {
		fields[i].kind = col.SourceType()
		dest[i] = fields[i].dest()
	}

	var (
		batch  = &pgx.Batch{}
		read   int64
		copied int64
	)

	flush := func() error {
		n := batch.Len()
		if n == 0 {
			return nil
		}
		if err := sendBatch(ctx, dst, batch); err != nil {
			return fmt.Errorf("failed to insert rows into %s: %w", spec.Name(), err)
		}
		copied += int64(n)
		batch = &pgx.Batch{}
		return nil
	}

	for s.limits.SampleRows <= 0 || read < int64(s.limits.SampleRows) {
		if !rows.Next() {
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return copied, fmt.Errorf("failed to read row of %s: %w", spec.Name(), err)
		}
		args := make([]any, len(fields))
		for i := range fields {
			if args[i], err = fields[i].value(); err != nil {
				return copied, fmt.Errorf("column %s of %s: %w", spec.Columns[i].Name, spec.Name(), err)
			}
		}
		batch.Queue(statement, args...)
		read++

		if batch.Len() >= chunk {
			if err := flush(); err != nil {
				return copied, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return copied, fmt.Errorf("failed to read rows of %s: %w", spec.Name(), err)
	}

	if err := flush(); err != nil {
		return copied, err
	}
	return copied, nil
}

func insertStatement(spec TableSpec) (string, error) {
	names := make([]string, len(spec.Columns))
	placeholders := make([]any, len(spec.Columns))
	for i, col := range spec.Columns {
		names[i] = schema.PgIdent(col.Name)
	}

	query, _, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(schema.QualifiedName(spec.Owner, spec.Table)).
		Columns(names...).
		Values(placeholders...).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build insert for %s: %w", spec.Name(), err)
	}
	return query, nil
}

func sendBatch(ctx context.Context, dst Target, batch *pgx.Batch) error {
	results := dst.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

type insertField struct {
	kind  schema.SourceType
	text  sql.NullString
	bytes []byte
}

func (f *insertField) dest() any {
	if f.kind == schema.TypeBLOB || f.kind == schema.TypeLongRaw {
		return &f.bytes
	}
	return &f.text
}

func (f *insertField) value() (any, error) {
	if f.kind == schema.TypeBLOB || f.kind == schema.TypeLongRaw {
		if f.bytes == nil {
			return nil, nil
		}
		return f.bytes, nil
	}
	if !f.text.Valid {
		return nil, nil
	}
	if f.kind == schema.TypeRaw {
		return hex.DecodeString(f.text.String)
	}
	return f.text.String, nil
}
