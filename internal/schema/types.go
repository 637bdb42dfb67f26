package schema

import "fmt"

type Column struct {
	Name      string
	DataType  string
	Length    int64
	Precision int64
	Scale     int64
	Nullable  bool
	Default   string
}

// SourceType returns the parsed Oracle type of the column.
func (c Column) SourceType() SourceType {
	return ParseSourceType(c.DataType)
}

// TargetType returns the PostgreSQL type the column is created with.
func (c Column) TargetType() string {
	return MapType(c.DataType, c.Length, c.Scale, c.Precision)
}

type ConstraintKind int

const (
	PrimaryKey ConstraintKind = iota
	Unique
	Check
	ForeignKeyConstraint
)

// ParseConstraintKind maps an ALL_CONSTRAINTS.CONSTRAINT_TYPE code.
func ParseConstraintKind(code string) (ConstraintKind, error) {
	switch code {
	case "P":
		return PrimaryKey, nil
	case "U":
		return Unique, nil
	case "C":
		return Check, nil
	case "R":
		return ForeignKeyConstraint, nil
	default:
		return 0, fmt.Errorf("unsupported constraint type %q", code)
	}
}

func (k ConstraintKind) String() string {
	switch k {
	case PrimaryKey:
		return "PRIMARY KEY"
	case Unique:
		return "UNIQUE"
	case Check:
		return "CHECK"
	case ForeignKeyConstraint:
		return "FOREIGN KEY"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

type Constraint struct {
	Owner           string
	Name            string
	Kind            ConstraintKind
	SearchCondition string
}

type ForeignKey struct {
	Owner      string
	Name       string
	Columns    []string
	RefOwner   string
	RefTable   string
	RefColumns []string
	DeleteRule string
}

type Index struct {
	Owner   string
	Name    string
	Type    string
	Unique  bool
	Columns []string
}

type ColumnComment struct {
	Column  string
	Comment string
}
