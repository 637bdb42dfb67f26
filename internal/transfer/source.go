package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

// RowSource is the cursor a strategy reads from. *sql.Rows implements it.
type RowSource interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type RowOpener interface {
	OpenRows(ctx context.Context, spec TableSpec, limit int) (RowSource, error)
}

// TableSpec identifies the table being transferred and its columns in
// select order.
type TableSpec struct {
	Owner   string
	Table   string
	Columns []schema.Column
}

func (s TableSpec) Name() string {
	return s.Owner + "." + s.Table
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLRowOpener reads table rows from Oracle. Non large object columns are
// converted to text in Oracle so their format does not depend on NLS settings.
type SQLRowOpener struct {
	db sqlQuerier
}

func NewSQLRowOpener(db sqlQuerier) *SQLRowOpener {
	return &SQLRowOpener{db: db}
}

func (o *SQLRowOpener) OpenRows(ctx context.Context, spec TableSpec, limit int) (RowSource, error) {
	query := selectQuery(spec, limit)
	rows, err := o.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows of %s: %w", spec.Name(), err)
	}
	return rows, nil
}

func selectQuery(spec TableSpec, limit int) string {
	exprs := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		exprs[i] = selectExpression(col)
	}

	query := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(exprs, ", "),
		schema.OracleIdent(spec.Owner),
		schema.OracleIdent(spec.Table),
	)
	if limit > 0 {
		query += fmt.Sprintf(" WHERE ROWNUM <= %d", limit)
	}
	return query
}

const numericChars = `'NLS_NUMERIC_CHARACTERS=''.,'''`

func selectExpression(col schema.Column) string {
	name := schema.OracleIdent(col.Name)
	switch col.SourceType() {
	case schema.TypeNumber, schema.TypeFloat, schema.TypeBinaryFloat, schema.TypeBinaryDouble, schema.TypeBinaryInteger:
		return "TO_CHAR(" + name + ", 'TM9', " + numericChars + ")"
	case schema.TypeDate:
		return "TO_CHAR(" + name + ", 'YYYY-MM-DD HH24:MI:SS')"
	case schema.TypeTimestamp:
		return "TO_CHAR(" + name + ", 'YYYY-MM-DD HH24:MI:SS.FF6')"
	case schema.TypeTimestampTZ:
		return "TO_CHAR(CAST(" + name + " AS TIMESTAMP WITH TIME ZONE), 'YYYY-MM-DD HH24:MI:SS.FF6 TZH:TZM')"
	case schema.TypeRowID:
		return "ROWIDTOCHAR(" + name + ")"
	case schema.TypeRaw:
		return "RAWTOHEX(" + name + ")"
	case schema.TypeXML:
		return "XMLSERIALIZE(CONTENT " + name + " AS CLOB)"
	case schema.TypeBFile:
		return "NULL"
	default:
		return name
	}
}
