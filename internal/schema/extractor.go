package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
)

// Querier is the part of *sql.DB the extractor needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Catalog is the source metadata consumed by the Creator.
type Catalog interface {
	Columns(ctx context.Context, owner, table string) ([]Column, error)
	TableComment(ctx context.Context, owner, table string) (string, error)
	ColumnComments(ctx context.Context, owner, table string) ([]ColumnComment, error)
	Constraints(ctx context.Context, owner, table string) ([]Constraint, error)
	ForeignKeys(ctx context.Context, owner, table string) ([]ForeignKey, error)
	Indexes(ctx context.Context, owner, table string) ([]Index, error)
	ConstraintColumns(ctx context.Context, owner, name string) ([]string, error)
	ConstraintExists(ctx context.Context, owner, name string) (bool, error)
}

// QueryError reports a failed catalog query together with the statement text.
type QueryError struct {
	Intent string
	Query  string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to query %s: %v", e.Intent, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Extractor reads table metadata from the Oracle ALL_* dictionary views.
type Extractor struct {
	db     Querier
	qb     sq.StatementBuilderType
	logger *logger.Logger
}

// NewExtractor builds an extractor. Oracle takes sq.Colon placeholders.
func NewExtractor(db Querier, format sq.PlaceholderFormat, logger *logger.Logger) *Extractor {
	return &Extractor{
		db:     db,
		qb:     sq.StatementBuilder.PlaceholderFormat(format),
		logger: logger,
	}
}

func (e *Extractor) ListTables(ctx context.Context, owner string) ([]string, error) {
	query := e.qb.Select("table_name").
		From("all_tables").
		Where(sq.Eq{"owner": owner}).
		OrderBy("table_name")

	var tables []string
	seen := make(map[string]struct{})
	err := e.each(ctx, "table list", query, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(tables)
	e.logger.Debugf("%d tables found in schema %s", len(tables), owner)
	return tables, nil
}

func (e *Extractor) Columns(ctx context.Context, owner, table string) ([]Column, error) {
	query := e.qb.Select("column_name", "data_type", "data_length", "data_precision", "data_scale", "nullable", "data_default").
		From("all_tab_columns").
		Where("owner = ? AND table_name = ?", owner, table).
		OrderBy("column_id")

	var columns []Column
	err := e.each(ctx, "column metadata", query, func(rows *sql.Rows) error {
		var (
			col          Column
			precision    sql.NullInt64
			scale        sql.NullInt64
			nullable     string
			defaultValue sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.Length, &precision, &scale, &nullable, &defaultValue); err != nil {
			return err
		}
		col.Precision = precision.Int64
		col.Scale = scale.Int64
		col.Nullable = nullable != "N"
		col.Default = defaultValue.String
		columns = append(columns, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (e *Extractor) TableComment(ctx context.Context, owner, table string) (string, error) {
	query := e.qb.Select("comments").
		From("all_tab_comments").
		Where("owner = ? AND table_name = ?", owner, table)

	var comment string
	err := e.each(ctx, "table comment", query, func(rows *sql.Rows) error {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return err
		}
		comment = value.String
		return nil
	})
	return comment, err
}

func (e *Extractor) ColumnComments(ctx context.Context, owner, table string) ([]ColumnComment, error) {
	query := e.qb.Select("c.column_name", "c.comments").
		From("all_col_comments c").
		Join("all_tab_columns t ON t.owner = c.owner AND t.table_name = c.table_name AND t.column_name = c.column_name").
		Where("c.owner = ? AND c.table_name = ? AND c.comments IS NOT NULL", owner, table).
		OrderBy("t.column_id")

	var comments []ColumnComment
	err := e.each(ctx, "column comments", query, func(rows *sql.Rows) error {
		var cc ColumnComment
		if err := rows.Scan(&cc.Column, &cc.Comment); err != nil {
			return err
		}
		comments = append(comments, cc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Constraints returns the primary key, unique and check constraints of a
// table, primary key first.
func (e *Extractor) Constraints(ctx context.Context, owner, table string) ([]Constraint, error) {
	query := e.qb.Select("owner", "constraint_name", "constraint_type", "search_condition").
		From("all_constraints").
		Where("owner = ? AND table_name = ?", owner, table).
		Where(sq.Eq{"constraint_type": []string{"P", "U", "C"}}).
		OrderBy("constraint_name")

	var constraints []Constraint
	err := e.each(ctx, "constraint metadata", query, func(rows *sql.Rows) error {
		var (
			c         Constraint
			code      string
			condition sql.NullString
		)
		if err := rows.Scan(&c.Owner, &c.Name, &code, &condition); err != nil {
			return err
		}
		kind, err := ParseConstraintKind(code)
		if err != nil {
			return err
		}
		c.Kind = kind
		c.SearchCondition = condition.String
		constraints = append(constraints, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(constraints, func(i, j int) bool {
		return constraints[i].Kind < constraints[j].Kind
	})
	return constraints, nil
}

func (e *Extractor) ForeignKeys(ctx context.Context, owner, table string) ([]ForeignKey, error) {
	query := e.qb.Select("owner", "constraint_name", "r_owner", "r_constraint_name", "delete_rule").
		From("all_constraints").
		Where("owner = ? AND table_name = ? AND constraint_type = 'R'", owner, table).
		OrderBy("constraint_name")

	type reference struct {
		fk         ForeignKey
		constraint string
	}

	var refs []reference
	err := e.each(ctx, "foreign key metadata", query, func(rows *sql.Rows) error {
		var (
			ref        reference
			rule       sql.NullString
			refOwner   sql.NullString
			constraint sql.NullString
		)
		if err := rows.Scan(&ref.fk.Owner, &ref.fk.Name, &refOwner, &constraint, &rule); err != nil {
			return err
		}
		ref.fk.RefOwner = refOwner.String
		ref.fk.DeleteRule = rule.String
		ref.constraint = constraint.String
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]ForeignKey, 0, len(refs))
	for _, ref := range refs {
		fk := ref.fk
		if fk.Columns, err = e.ConstraintColumns(ctx, fk.Owner, fk.Name); err != nil {
			return nil, err
		}
		if fk.RefTable, err = e.constraintTable(ctx, fk.RefOwner, ref.constraint); err != nil {
			return nil, err
		}
		if fk.RefColumns, err = e.ConstraintColumns(ctx, fk.RefOwner, ref.constraint); err != nil {
			return nil, err
		}
		keys = append(keys, fk)
	}
	return keys, nil
}

func (e *Extractor) Indexes(ctx context.Context, owner, table string) ([]Index, error) {
	query := e.qb.Select("owner", "index_name", "index_type", "uniqueness").
		From("all_indexes").
		Where("table_owner = ? AND table_name = ?", owner, table).
		OrderBy("index_name")

	var indexes []Index
	err := e.each(ctx, "index metadata", query, func(rows *sql.Rows) error {
		var (
			idx        Index
			uniqueness string
		)
		if err := rows.Scan(&idx.Owner, &idx.Name, &idx.Type, &uniqueness); err != nil {
			return err
		}
		idx.Unique = uniqueness == "UNIQUE"
		indexes = append(indexes, idx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range indexes {
		cols, err := e.IndexColumns(ctx, indexes[i].Owner, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = cols
	}
	return indexes, nil
}

func (e *Extractor) ConstraintColumns(ctx context.Context, owner, name string) ([]string, error) {
	query := e.qb.Select("column_name").
		From("all_cons_columns").
		Where("owner = ? AND constraint_name = ?", owner, name).
		OrderBy("position")
	return e.stringList(ctx, "constraint columns", query)
}

func (e *Extractor) IndexColumns(ctx context.Context, owner, name string) ([]string, error) {
	query := e.qb.Select("column_name").
		From("all_ind_columns").
		Where("index_owner = ? AND index_name = ?", owner, name).
		OrderBy("column_position")
	return e.stringList(ctx, "index columns", query)
}

func (e *Extractor) ConstraintExists(ctx context.Context, owner, name string) (bool, error) {
	query := e.qb.Select("COUNT(*)").
		From("all_constraints").
		Where("owner = ? AND constraint_name = ?", owner, name)

	var count int64
	err := e.each(ctx, "constraint existence", query, func(rows *sql.Rows) error {
		return rows.Scan(&count)
	})
	return count > 0, err
}

func (e *Extractor) constraintTable(ctx context.Context, owner, name string) (string, error) {
	query := e.qb.Select("table_name").
		From("all_constraints").
		Where("owner = ? AND constraint_name = ?", owner, name)

	tables, err := e.stringList(ctx, "referenced table", query)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		sqlText, _, _ := query.ToSql()
		return "", &QueryError{Intent: "referenced table", Query: sqlText, Err: fmt.Errorf("constraint %s.%s not found", owner, name)}
	}
	return tables[0], nil
}

func (e *Extractor) stringList(ctx context.Context, intent string, query sq.SelectBuilder) ([]string, error) {
	var values []string
	err := e.each(ctx, intent, query, func(rows *sql.Rows) error {
		var v string
		if err := rows.Scan(&v); err != nil {
			return err
		}
		values = append(values, v)
		return nil
	})
	return values, err
}

// each runs query and calls fn per row. The rows are closed before it
// returns so callers can issue follow-up queries on a single connection.
func (e *Extractor) each(ctx context.Context, intent string, query sq.SelectBuilder, fn func(*sql.Rows) error) error {
	sqlText, args, err := query.ToSql()
	if err != nil {
		return &QueryError{Intent: intent, Err: err}
	}

	e.logger.Debugf("Catalog query: %s %v", sqlText, args)

	rows, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return &QueryError{Intent: intent, Query: sqlText, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return &QueryError{Intent: intent, Query: sqlText, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &QueryError{Intent: intent, Query: sqlText, Err: err}
	}
	return nil
}
