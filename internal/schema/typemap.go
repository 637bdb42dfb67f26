package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// UnknownType is emitted for Oracle types without a PostgreSQL mapping.
// It makes the CREATE TABLE fail loudly instead of guessing.
const UnknownType = "???"

type SourceType int

const (
	TypeUnknown SourceType = iota
	TypeChar
	TypeVarchar
	TypeNumber
	TypeFloat
	TypeDate
	TypeTimestamp
	TypeTimestampTZ
	TypeRowID
	TypeLong
	TypeCLOB
	TypeRaw
	TypeLongRaw
	TypeBLOB
	TypeBFile
	TypeBinaryInteger
	TypeBinaryFloat
	TypeBinaryDouble
	TypeXML
)

var sourceTypes = map[string]SourceType{
	"CHAR":           TypeChar,
	"NCHAR":          TypeChar,
	"VARCHAR2":       TypeVarchar,
	"VARCHAR":        TypeVarchar,
	"NVARCHAR2":      TypeVarchar,
	"NVARCHAR":       TypeVarchar,
	"NUMBER":         TypeNumber,
	"FLOAT":          TypeFloat,
	"DATE":           TypeDate,
	"TIMESTAMP":      TypeTimestamp,
	"ROWID":          TypeRowID,
	"LONG":           TypeLong,
	"CLOB":           TypeCLOB,
	"NCLOB":          TypeCLOB,
	"RAW":            TypeRaw,
	"LONG RAW":       TypeLongRaw,
	"BLOB":           TypeBLOB,
	"BFILE":          TypeBFile,
	"BINARY_INTEGER": TypeBinaryInteger,
	"BINARY_FLOAT":   TypeBinaryFloat,
	"BINARY_DOUBLE":  TypeBinaryDouble,
	"XMLTYPE":        TypeXML,
}

var (
	timestampPattern   = regexp.MustCompile(`^TIMESTAMP\((\d)\)$`)
	timestampTZPattern = regexp.MustCompile(`^TIMESTAMP(\(\d\))? WITH (LOCAL )?TIME ZONE$`)
)

// ParseSourceType classifies an ALL_TAB_COLUMNS.DATA_TYPE value.
func ParseSourceType(name string) SourceType {
	name = strings.ToUpper(strings.TrimSpace(name))
	if t, ok := sourceTypes[name]; ok {
		return t
	}
	switch {
	case timestampTZPattern.MatchString(name):
		return TypeTimestampTZ
	case timestampPattern.MatchString(name):
		return TypeTimestamp
	case name == "SYS.XMLTYPE":
		return TypeXML
	}
	return TypeUnknown
}

// IsLOB reports whether values of the type must be read as large objects.
func (t SourceType) IsLOB() bool {
	switch t {
	case TypeBLOB, TypeCLOB, TypeLongRaw:
		return true
	}
	return false
}

// IsCharacter reports whether values are quoted in CSV records.
func (t SourceType) IsCharacter() bool {
	switch t {
	case TypeChar, TypeVarchar, TypeLong, TypeCLOB, TypeXML:
		return true
	}
	return false
}

// IsBinary reports whether values are raw bytes.
func (t SourceType) IsBinary() bool {
	switch t {
	case TypeRaw, TypeLongRaw, TypeBLOB:
		return true
	}
	return false
}

// MapType returns the PostgreSQL column type for an Oracle column.
func MapType(typeName string, length, scale, precision int64) string {
	switch ParseSourceType(typeName) {
	case TypeChar:
		return fmt.Sprintf("char(%d)", length)
	case TypeVarchar:
		return fmt.Sprintf("varchar(%d)", length)
	case TypeNumber:
		return mapNumber(scale, precision)
	case TypeFloat, TypeBinaryDouble:
		return "double precision"
	case TypeDate:
		return "timestamp(0)"
	case TypeTimestamp:
		if m := timestampPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(typeName))); m != nil {
			return "timestamp(" + m[1] + ")"
		}
		return fmt.Sprintf("timestamp(%d)", length)
	case TypeTimestampTZ:
		return "timestamp(6) with time zone"
	case TypeRowID:
		return "char(10)"
	case TypeLong, TypeCLOB:
		return "text"
	case TypeRaw, TypeLongRaw, TypeBLOB:
		return "bytea"
	case TypeBFile:
		return "varchar(255)"
	case TypeBinaryInteger:
		return "integer"
	case TypeBinaryFloat:
		return "real"
	case TypeXML:
		return "xml"
	case TypeUnknown:
		return UnknownType
	}
	return UnknownType
}

// maxNumberPrecision is used for NUMBER(*,s), whose precision is NULL in the
// catalog and arrives here as zero.
const maxNumberPrecision = 38

func mapNumber(scale, precision int64) string {
	if scale > 0 {
		if precision < scale {
			precision = maxNumberPrecision
		}
		return fmt.Sprintf("decimal(%d,%d)", precision, scale)
	}
	switch {
	case precision < 5:
		return "smallint"
	case precision < 9:
		return "int"
	case precision < 19:
		return "bigint"
	default:
		return fmt.Sprintf("decimal(%d)", precision)
	}
}
