package transfer

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

type bulkCopy struct {
	limits Limits
}

func (s *bulkCopy) Name() string {
	return "copy"
}

func (s *bulkCopy) Transfer(ctx context.Context, rows RowSource, dst Target, spec TableSpec) (int64, error) {
	encoder := newRecordEncoder(spec.Columns, s.limits.nullToken())
	statement := copyStatement(spec, s.limits.nullToken())
	chunk := s.limits.chunk()

	values := make([]sql.NullString, len(spec.Columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	var (
		buf     bytes.Buffer
		pending int
		read    int64
		copied  int64
	)

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := dst.CopyFrom(ctx, bytes.NewReader(buf.Bytes()), statement); err != nil {
			return fmt.Errorf("failed to copy rows into %s: %w", spec.Name(), err)
		}
		buf.Reset()
		copied += int64(pending)
		pending = 0
		return nil
	}

	for s.limits.SampleRows <= 0 || read < int64(s.limits.SampleRows) {
		if !rows.Next() {
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return copied, fmt.Errorf("failed to read row of %s: %w", spec.Name(), err)
		}
		encoder.append(&buf, values)
		pending++
		read++

		if pending >= chunk {
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

func copyStatement(spec TableSpec, null string) string {
	names := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		names[i] = schema.PgIdent(col.Name)
	}
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, DELIMITER ',', NULL %s)",
		schema.QualifiedName(spec.Owner, spec.Table),
		strings.Join(names, ", "),
		pq.QuoteLiteral(null),
	)
}
