package schema

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/oracle2pg/internal/script"
	"github.com/kadirbelkuyu/oracle2pg/pkg/logger"
)

type fakeCatalog struct {
	columns        map[string][]Column
	tableComments  map[string]string
	columnComments map[string][]ColumnComment
	constraints    map[string][]Constraint
	foreignKeys    map[string][]ForeignKey
	indexes        map[string][]Index
	consColumns    map[string][]string
	failColumns    map[string]error
}

func (f *fakeCatalog) Columns(_ context.Context, _, table string) ([]Column, error) {
	if err := f.failColumns[table]; err != nil {
		return nil, err
	}
	return f.columns[table], nil
}

func (f *fakeCatalog) TableComment(_ context.Context, _, table string) (string, error) {
	return f.tableComments[table], nil
}

func (f *fakeCatalog) ColumnComments(_ context.Context, _, table string) ([]ColumnComment, error) {
	return f.columnComments[table], nil
}

func (f *fakeCatalog) Constraints(_ context.Context, _, table string) ([]Constraint, error) {
	return f.constraints[table], nil
}

func (f *fakeCatalog) ForeignKeys(_ context.Context, _, table string) ([]ForeignKey, error) {
	return f.foreignKeys[table], nil
}

func (f *fakeCatalog) Indexes(_ context.Context, _, table string) ([]Index, error) {
	return f.indexes[table], nil
}

func (f *fakeCatalog) ConstraintColumns(_ context.Context, _, name string) ([]string, error) {
	return f.consColumns[name], nil
}

func (f *fakeCatalog) ConstraintExists(_ context.Context, _, name string) (bool, error) {
	_, ok := f.consColumns[name]
	return ok, nil
}

type fakeExecer struct {
	mu     sync.Mutex
	sql    []string
	failOn string
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sql = append(f.sql, sql)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("relation already exists")
	}
	return pgconn.CommandTag{}, nil
}

func empCatalog() *fakeCatalog {
	return &fakeCatalog{
		columns: map[string][]Column{
			"EMP": {
				{Name: "EMPNO", DataType: "NUMBER", Length: 22, Precision: 4},
				{Name: "ENAME", DataType: "VARCHAR2", Length: 10, Nullable: true},
				{Name: "HIREDATE", DataType: "DATE", Length: 7, Nullable: true, Default: "SYSDATE "},
				{Name: "SAL", DataType: "NUMBER", Length: 22, Precision: 7, Scale: 2, Nullable: true},
			},
		},
		tableComments: map[string]string{"EMP": "Employee's"},
		columnComments: map[string][]ColumnComment{
			"EMP": {{Column: "ENAME", Comment: "name"}},
		},
		constraints: map[string][]Constraint{
			"EMP": {
				{Owner: "SCOTT", Name: "PK_EMP", Kind: PrimaryKey},
				{Owner: "SCOTT", Name: "SYS_C001", Kind: Check, SearchCondition: `"EMPNO" IS NOT NULL`},
				{Owner: "SCOTT", Name: "CK_SAL", Kind: Check, SearchCondition: `"SAL" > 0`},
			},
		},
		indexes: map[string][]Index{
			"EMP": {
				{Owner: "SCOTT", Name: "EMP_BMP", Type: "BITMAP", Columns: []string{"SAL"}},
				{Owner: "SCOTT", Name: "EMP_ENAME_IX", Type: "NORMAL", Columns: []string{"ENAME"}},
				{Owner: "SCOTT", Name: "PK_EMP", Type: "NORMAL", Unique: true, Columns: []string{"EMPNO"}},
			},
		},
		foreignKeys: map[string][]ForeignKey{
			"EMP": {
				{Owner: "SCOTT", Name: "FK_DEPTNO", Columns: []string{"DEPTNO"}, RefOwner: "SCOTT", RefTable: "DEPT", RefColumns: []string{"DEPTNO"}, DeleteRule: "CASCADE"},
				{Owner: "SCOTT", Name: "FK_MGR", Columns: []string{"MGR"}, RefOwner: "SCOTT", RefTable: "EMP", RefColumns: []string{"EMPNO"}, DeleteRule: "NO ACTION"},
			},
		},
		consColumns: map[string][]string{"PK_EMP": {"EMPNO"}},
	}
}

func newTestCreator(catalog Catalog, exec Execer, options CreatorOptions) (*Creator, *script.Script, *bytes.Buffer) {
	var buf bytes.Buffer
	ddl := script.New(&buf)
	return NewCreator(catalog, exec, ddl, logger.Discard(), options), ddl, &buf
}

const expectedEmpDDL = `
--
-- Table SCOTT.EMP
--
DROP TABLE IF EXISTS SCOTT.EMP CASCADE;
CREATE TABLE SCOTT.EMP (
  EMPNO smallint NOT NULL
, ENAME varchar(10)
, HIREDATE timestamp(0) DEFAULT now()::timestamp
, SAL decimal(7,2)
);

-- Comments of Table SCOTT.EMP
COMMENT ON TABLE SCOTT.EMP
  IS 'Employee''s';
COMMENT ON COLUMN SCOTT.EMP.ENAME
  IS 'name';

-- Constraints of Table SCOTT.EMP
ALTER TABLE SCOTT.EMP ADD CONSTRAINT PK_EMP PRIMARY KEY(EMPNO);
--ALTER TABLE SCOTT.EMP ADD CONSTRAINT SYS_C001 CHECK (EMPNO IS NOT NULL);
ALTER TABLE SCOTT.EMP ADD CONSTRAINT CK_SAL CHECK (SAL > 0);

-- Indexes of Table SCOTT.EMP
CREATE INDEX EMP_ENAME_IX ON SCOTT.EMP(ENAME);
--CREATE UNIQUE INDEX PK_EMP ON SCOTT.EMP(EMPNO);
`

func TestTableDDLWritesStatementsInOrder(t *testing.T) {
	exec := &fakeExecer{}
	creator, _, buf := newTestCreator(empCatalog(), exec, CreatorOptions{ApplyTables: true})

	report := creator.TableDDL(context.Background(), "SCOTT", "EMP")
	require.NoError(t, report.Err)

	assert.Equal(t, expectedEmpDDL, buf.String())
	assert.Len(t, report.Columns, 4)
	assert.Len(t, report.Statements, 9)
	assert.Equal(t, 7, report.Count(StatusApplied))
	assert.Equal(t, 2, report.Count(StatusSkipped))

	require.Len(t, exec.sql, 7)
	assert.True(t, strings.HasPrefix(exec.sql[0], "DROP TABLE"))
	assert.True(t, strings.HasPrefix(exec.sql[1], "CREATE TABLE"))
	for _, sql := range exec.sql {
		assert.NotContains(t, sql, "SYS_C001")
		assert.NotContains(t, sql, "UNIQUE INDEX")
	}
}

func TestTableDDLContinuesAfterFailure(t *testing.T) {
	exec := &fakeExecer{failOn: "CREATE TABLE"}
	creator, _, _ := newTestCreator(empCatalog(), exec, CreatorOptions{ApplyTables: true})

	report := creator.TableDDL(context.Background(), "SCOTT", "EMP")
	require.NoError(t, report.Err)

	assert.Equal(t, 1, report.Count(StatusFailed))
	assert.Equal(t, 6, report.Count(StatusApplied))
	assert.Len(t, exec.sql, 7)

	failed := report.Statements[1]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.EqualError(t, failed.Err, "relation already exists")
}

func TestTableDDLWithoutApplyOnlyWrites(t *testing.T) {
	exec := &fakeExecer{}
	creator, _, buf := newTestCreator(empCatalog(), exec, CreatorOptions{})

	report := creator.TableDDL(context.Background(), "SCOTT", "EMP")
	require.NoError(t, report.Err)

	assert.Empty(t, exec.sql)
	assert.Equal(t, 7, report.Count(StatusWritten))
	assert.Equal(t, 2, report.Count(StatusSkipped))
	assert.Equal(t, expectedEmpDDL, buf.String())
}

func TestTableDDLWithNilExecer(t *testing.T) {
	creator, _, _ := newTestCreator(empCatalog(), nil, CreatorOptions{ApplyTables: true})

	report := creator.TableDDL(context.Background(), "SCOTT", "EMP")
	require.NoError(t, report.Err)
	assert.Equal(t, 7, report.Count(StatusWritten))
}

func TestTableDDLCatalogError(t *testing.T) {
	catalog := empCatalog()
	catalog.failColumns = map[string]error{"EMP": errors.New("ORA-00942: table or view does not exist\nhelp")}
	exec := &fakeExecer{}
	creator, _, buf := newTestCreator(catalog, exec, CreatorOptions{ApplyTables: true})

	report := creator.TableDDL(context.Background(), "SCOTT", "EMP")
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "ORA-00942")
	assert.Empty(t, report.Statements)
	assert.Empty(t, exec.sql)
	assert.Contains(t, buf.String(), "-- Aborted: ORA-00942: table or view does not exist help\n")
}

func TestTableDDLWithoutColumns(t *testing.T) {
	creator, _, _ := newTestCreator(&fakeCatalog{}, nil, CreatorOptions{})

	report := creator.TableDDL(context.Background(), "SCOTT", "GHOST")
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "no columns found")
}

func TestTableDDLWithoutExtras(t *testing.T) {
	catalog := &fakeCatalog{
		columns: map[string][]Column{
			"T": {
				{Name: "ID", DataType: "NUMBER", Length: 22, Precision: 10},
				{Name: "DOC", DataType: "SDO_GEOMETRY", Nullable: true},
			},
		},
	}
	creator, _, buf := newTestCreator(catalog, nil, CreatorOptions{})

	report := creator.TableDDL(context.Background(), "APP", "T")
	require.NoError(t, report.Err)

	expected := `
--
-- Table APP.T
--
DROP TABLE IF EXISTS APP.T CASCADE;
CREATE TABLE APP.T (
  ID bigint NOT NULL
, DOC ???
);
`
	assert.Equal(t, expected, buf.String())
}

func TestForeignKeysDDL(t *testing.T) {
	exec := &fakeExecer{}
	creator, _, buf := newTestCreator(empCatalog(), exec, CreatorOptions{ApplyTables: true})

	reports := creator.ForeignKeysDDL(context.Background(), "SCOTT", []string{"DEPT", "EMP"})
	require.Len(t, reports, 2)
	assert.Empty(t, reports[0].Statements)
	require.Len(t, reports[1].Statements, 2)

	expected := `
--
-- Constraints Foreign Key of Schema SCOTT
--

-- Foreign Keys of Table SCOTT.EMP
ALTER TABLE SCOTT.EMP ADD CONSTRAINT FK_DEPTNO FOREIGN KEY (DEPTNO) REFERENCES SCOTT.DEPT(DEPTNO) ON DELETE CASCADE;
ALTER TABLE SCOTT.EMP ADD CONSTRAINT FK_MGR FOREIGN KEY (MGR) REFERENCES SCOTT.EMP(EMPNO);
`
	assert.Equal(t, expected, buf.String())
	assert.Len(t, exec.sql, 2)
	assert.Equal(t, 2, reports[1].Count(StatusApplied))
}

func TestSchemaDDL(t *testing.T) {
	exec := &fakeExecer{}
	creator, _, buf := newTestCreator(&fakeCatalog{}, exec, CreatorOptions{ApplySchema: true, Authorization: "postgres"})

	results := creator.SchemaDDL(context.Background(), "SCOTT")
	require.Len(t, results, 5)

	expected := `
--
-- Schema SCOTT
--
DROP SCHEMA IF EXISTS SCOTT CASCADE;
CREATE SCHEMA SCOTT
  AUTHORIZATION postgres;
COMMENT ON SCHEMA SCOTT
  IS 'schema SCOTT';
--GRANT ALL ON SCHEMA SCOTT TO postgres;
--GRANT ALL ON SCHEMA SCOTT TO public;
`
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, []string{
		"DROP SCHEMA IF EXISTS SCOTT CASCADE",
		"CREATE SCHEMA SCOTT\n  AUTHORIZATION postgres",
		"COMMENT ON SCHEMA SCOTT\n  IS 'schema SCOTT'",
	}, exec.sql)
	assert.Equal(t, StatusSkipped, results[3].Status)
	assert.Equal(t, StatusSkipped, results[4].Status)
}

func TestSchemaDDLNotAppliedWhenDisabled(t *testing.T) {
	exec := &fakeExecer{}
	creator, _, _ := newTestCreator(&fakeCatalog{}, exec, CreatorOptions{ApplyTables: true, Authorization: "postgres"})

	results := creator.SchemaDDL(context.Background(), "SCOTT")
	assert.Empty(t, exec.sql)
	assert.Equal(t, StatusWritten, results[0].Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "applied", StatusApplied.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestTableDDLIntegerAndDefaultMapping(t *testing.T) {
	catalog := &fakeCatalog{
		columns: map[string][]Column{
			"NOTES": {
				{Name: "ID", DataType: "NUMBER", Length: 22, Precision: 9},
				{Name: "NOTES", DataType: "VARCHAR2", Length: 200, Nullable: true},
				{Name: "CREATED", DataType: "DATE", Length: 7, Default: "sysdate\n"},
			},
		},
	}
	creator, _, buf := newTestCreator(catalog, nil, CreatorOptions{})

	report := creator.TableDDL(context.Background(), "APP", "NOTES")
	require.NoError(t, report.Err)
	assert.Contains(t, buf.String(), "CREATE TABLE APP.NOTES (\n  ID bigint NOT NULL\n, NOTES varchar(200)\n, CREATED timestamp(0) NOT NULL DEFAULT now()::timestamp\n);\n")
}

func TestTableDDLMixedCaseCheckMatchesColumn(t *testing.T) {
	catalog := &fakeCatalog{
		columns: map[string][]Column{
			"T": {
				{Name: "Amount", DataType: "NUMBER", Length: 22, Precision: 5, Nullable: true},
			},
		},
		constraints: map[string][]Constraint{
			"T": {
				{Owner: "APP", Name: "CK_AMOUNT", Kind: Check, SearchCondition: `"Amount" > 0`},
			},
		},
	}
	creator, _, buf := newTestCreator(catalog, nil, CreatorOptions{})

	report := creator.TableDDL(context.Background(), "APP", "T")
	require.NoError(t, report.Err)
	assert.Contains(t, buf.String(), "CREATE TABLE APP.T (\n  Amount int\n);\n")
	assert.Contains(t, buf.String(), "ALTER TABLE APP.T ADD CONSTRAINT CK_AMOUNT CHECK (Amount > 0);\n")
	assert.NotContains(t, buf.String(), `"Amount"`)
}
