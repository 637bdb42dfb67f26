package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kadirbelkuyu/oracle2pg/internal/script"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
)

// Execer runs DDL on the target. *pgx.Conn implements it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Status int

const (
	StatusWritten Status = iota
	StatusApplied
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Statement struct {
	Description string
	SQL         string
	Neutralized bool
}

type StatementResult struct {
	Statement
	Status Status
	Err    error
}

// TableReport collects what happened to one table. Err is set when the
// catalog could not be read and the table was abandoned.
type TableReport struct {
	Owner      string
	Table      string
	Columns    []Column
	Statements []StatementResult
	Err        error
}

func (r TableReport) Count(status Status) int {
	n := 0
	for _, s := range r.Statements {
		if s.Status == status {
			n++
		}
	}
	return n
}

type CreatorOptions struct {
	// ApplySchema executes the schema statements on the target.
	ApplySchema bool
	// ApplyTables executes table, constraint and index statements on the target.
	ApplyTables bool
	// Authorization is the role that owns created schemas.
	Authorization string
}

type ddlWriter interface {
	Banner(title string)
	Section(title string)
	Statement(sql string, neutralized bool)
}

// Creator synthesizes PostgreSQL DDL for Oracle tables. Every statement is
// written to the script; statements are executed only when the matching
// apply option is set and an Execer is present.
type Creator struct {
	catalog Catalog
	exec    Execer
	ddl     *script.Script
	logger  *logger.Logger
	options CreatorOptions
}

func NewCreator(catalog Catalog, exec Execer, ddl *script.Script, logger *logger.Logger, options CreatorOptions) *Creator {
	return &Creator{
		catalog: catalog,
		exec:    exec,
		ddl:     ddl,
		logger:  logger,
		options: options,
	}
}

func (c *Creator) SchemaDDL(ctx context.Context, schemaName string) []StatementResult {
	block := c.ddl.Block()
	defer block.Commit()

	name := PgIdent(schemaName)
	block.Banner("Schema " + schemaName)

	statements := []Statement{
		{Description: "Drop schema " + schemaName, SQL: "DROP SCHEMA IF EXISTS " + name + " CASCADE"},
		{Description: "Create schema " + schemaName, SQL: "CREATE SCHEMA " + name + "\n  AUTHORIZATION " + PgIdent(c.options.Authorization)},
		{Description: "Comment on schema " + schemaName, SQL: "COMMENT ON SCHEMA " + name + "\n  IS " + QuoteComment("schema "+schemaName)},
		{Description: "Grant on schema " + schemaName + " to postgres", SQL: "GRANT ALL ON SCHEMA " + name + " TO postgres", Neutralized: true},
		{Description: "Grant on schema " + schemaName + " to public", SQL: "GRANT ALL ON SCHEMA " + name + " TO public", Neutralized: true},
	}

	results := make([]StatementResult, 0, len(statements))
	for _, stmt := range statements {
		results = append(results, c.run(ctx, block, stmt, c.options.ApplySchema))
	}
	return results
}

// TableDDL emits drop, create, comments, constraints and indexes for one
// table, in that order.
func (c *Creator) TableDDL(ctx context.Context, owner, table string) TableReport {
	report := TableReport{Owner: owner, Table: table}

	block := c.ddl.Block()
	defer block.Commit()

	name := owner + "." + table
	qualified := QualifiedName(owner, table)
	block.Banner("Table " + name)

	fail := func(err error) TableReport {
		report.Err = fmt.Errorf("failed to synthesize DDL for %s: %w", name, err)
		c.logger.Errorf("Table %s: %v", name, err)
		block.Section("Aborted: " + strings.ReplaceAll(err.Error(), "\n", " "))
		return report
	}

	columns, err := c.catalog.Columns(ctx, owner, table)
	if err != nil {
		return fail(err)
	}
	if len(columns) == 0 {
		return fail(fmt.Errorf("no columns found"))
	}
	report.Columns = columns

	add := func(stmt Statement) {
		report.Statements = append(report.Statements, c.run(ctx, block, stmt, c.options.ApplyTables))
	}

	add(Statement{Description: "Drop table " + name, SQL: "DROP TABLE IF EXISTS " + qualified + " CASCADE"})
	add(Statement{Description: "Create table " + name, SQL: c.createTable(qualified, name, columns)})

	tableComment, err := c.catalog.TableComment(ctx, owner, table)
	if err != nil {
		return fail(err)
	}
	columnComments, err := c.catalog.ColumnComments(ctx, owner, table)
	if err != nil {
		return fail(err)
	}
	if tableComment != "" || len(columnComments) > 0 {
		block.Section("Comments of Table " + name)
	}
	if tableComment != "" {
		add(Statement{
			Description: "Comment on table " + name,
			SQL:         "COMMENT ON TABLE " + qualified + "\n  IS " + QuoteComment(tableComment),
		})
	}
	for _, cc := range columnComments {
		add(Statement{
			Description: "Comment on column " + name + "." + cc.Column,
			SQL:         "COMMENT ON COLUMN " + qualified + "." + PgIdent(cc.Column) + "\n  IS " + QuoteComment(cc.Comment),
		})
	}

	constraints, err := c.catalog.Constraints(ctx, owner, table)
	if err != nil {
		return fail(err)
	}
	if len(constraints) > 0 {
		block.Section("Constraints of Table " + name)
	}
	notNull := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !col.Nullable {
			notNull[col.Name] = true
		}
	}
	for _, con := range constraints {
		stmt, err := c.constraintStatement(ctx, qualified, con, notNull)
		if err != nil {
			return fail(err)
		}
		add(stmt)
	}

	indexes, err := c.catalog.Indexes(ctx, owner, table)
	if err != nil {
		return fail(err)
	}
	if len(indexes) > 0 {
		block.Section("Indexes of Table " + name)
	}
	for _, idx := range indexes {
		if idx.Type != "NORMAL" {
			c.logger.Infof("Index %s.%s of type %s ... Skip", idx.Owner, idx.Name, idx.Type)
			continue
		}
		exists, err := c.catalog.ConstraintExists(ctx, idx.Owner, idx.Name)
		if err != nil {
			return fail(err)
		}
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		add(Statement{
			Description: "Create index " + idx.Owner + "." + idx.Name,
			SQL:         fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)", unique, PgIdent(idx.Name), qualified, identList(idx.Columns)),
			Neutralized: exists,
		})
	}

	return report
}

// ForeignKeysDDL emits the foreign keys of all tables. It runs after every
// table has been created and loaded.
func (c *Creator) ForeignKeysDDL(ctx context.Context, owner string, tables []string) []TableReport {
	block := c.ddl.Block()
	defer block.Commit()

	block.Banner("Constraints Foreign Key of Schema " + owner)

	reports := make([]TableReport, 0, len(tables))
	for _, table := range tables {
		report := TableReport{Owner: owner, Table: table}
		name := owner + "." + table

		keys, err := c.catalog.ForeignKeys(ctx, owner, table)
		if err != nil {
			report.Err = fmt.Errorf("failed to read foreign keys of %s: %w", name, err)
			c.logger.Errorf("Table %s: %v", name, err)
			reports = append(reports, report)
			continue
		}
		if len(keys) > 0 {
			block.Section("Foreign Keys of Table " + name)
		}

		qualified := QualifiedName(owner, table)
		for _, fk := range keys {
			sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
				qualified, PgIdent(fk.Name), identList(fk.Columns), QualifiedName(fk.RefOwner, fk.RefTable), identList(fk.RefColumns))
			if rule := strings.TrimSpace(fk.DeleteRule); rule != "" && rule != "NO ACTION" {
				sql += " ON DELETE " + rule
			}
			report.Statements = append(report.Statements, c.run(ctx, block, Statement{
				Description: "Create foreign key " + fk.Owner + "." + fk.Name,
				SQL:         sql,
			}, c.options.ApplyTables))
		}
		reports = append(reports, report)
	}
	return reports
}

func (c *Creator) createTable(qualified, name string, columns []Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(qualified)
	b.WriteString(" (\n")
	for i, col := range columns {
		if i == 0 {
			b.WriteString("  ")
		} else {
			b.WriteString("\n, ")
		}
		target := col.TargetType()
		if target == UnknownType {
			c.logger.Warnf("Column %s.%s has unsupported type %s", name, col.Name, col.DataType)
		}
		b.WriteString(PgIdent(col.Name))
		b.WriteByte(' ')
		b.WriteString(target)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if def := RewriteDefault(col.Default); def != "" {
			b.WriteString(" DEFAULT ")
			b.WriteString(def)
		}
	}
	b.WriteString("\n)")
	return b.String()
}

func (c *Creator) constraintStatement(ctx context.Context, qualified string, con Constraint, notNull map[string]bool) (Statement, error) {
	stmt := Statement{Description: "Create constraint " + con.Owner + "." + con.Name}
	prefix := "ALTER TABLE " + qualified + " ADD CONSTRAINT " + PgIdent(con.Name) + " "

	switch con.Kind {
	case PrimaryKey, Unique:
		cols, err := c.catalog.ConstraintColumns(ctx, con.Owner, con.Name)
		if err != nil {
			return stmt, err
		}
		stmt.SQL = prefix + con.Kind.String() + "(" + identList(cols) + ")"
	case Check:
		stmt.SQL = prefix + "CHECK (" + rewriteCondition(con.SearchCondition) + ")"
		if col, ok := notNullColumn(con.SearchCondition); ok && notNull[col] {
			stmt.Neutralized = true
		}
	case ForeignKeyConstraint:
		return stmt, fmt.Errorf("foreign key %s must be emitted after all tables", con.Name)
	}
	return stmt, nil
}

func (c *Creator) run(ctx context.Context, w ddlWriter, stmt Statement, apply bool) StatementResult {
	w.Statement(stmt.SQL, stmt.Neutralized)
	result := StatementResult{Statement: stmt, Status: StatusWritten}

	switch {
	case stmt.Neutralized:
		result.Status = StatusSkipped
		c.logger.Infof("%s ... Skip", stmt.Description)
	case !apply || c.exec == nil:
		c.logger.Debugf("%s ... Written", stmt.Description)
	default:
		if _, err := c.exec.Exec(ctx, stmt.SQL); err != nil {
			result.Status = StatusFailed
			result.Err = err
			c.logger.WithField("sql", stmt.SQL).Errorf("%s ... Failed: %v", stmt.Description, err)
			break
		}
		result.Status = StatusApplied
		c.logger.Infof("%s ... Ok", stmt.Description)
	}
	return result
}
