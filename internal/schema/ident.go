package schema

import (
	"strings"
)

// reservedWords are PostgreSQL reserved key words that cannot be used as
// unquoted identifiers.
var reservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "asymmetric": true, "authorization": true,
	"between": true, "binary": true, "both": true, "case": true, "cast": true,
	"check": true, "collate": true, "column": true, "constraint": true, "create": true,
	"cross": true, "current_catalog": true, "current_date": true, "current_role": true,
	"current_schema": true, "current_time": true, "current_timestamp": true,
	"current_user": true, "default": true, "deferrable": true, "desc": true,
	"distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "freeze": true,
	"from": true, "full": true, "grant": true, "group": true, "having": true,
	"ilike": true, "in": true, "initially": true, "inner": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "lateral": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true, "outer": true,
	"overlaps": true, "placing": true, "primary": true, "references": true,
	"returning": true, "right": true, "select": true, "session_user": true,
	"similar": true, "some": true, "symmetric": true, "system_user": true, "table": true,
	"tablesample": true, "then": true, "to": true, "trailing": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "variadic": true,
	"verbose": true, "when": true, "where": true, "window": true, "with": true,
}

// PgIdent returns an Oracle name as a PostgreSQL identifier. Plain names stay
// unquoted so PostgreSQL folds them to lower case; reserved words and names
// with characters outside [A-Za-z0-9_$] are quoted in their folded form.
func PgIdent(name string) string {
	folded := strings.ToLower(name)
	if reservedWords[folded] || needsQuoting(folded) {
		return `"` + strings.ReplaceAll(folded, `"`, `""`) + `"`
	}
	return name
}

// QualifiedName joins an owner and an object name.
func QualifiedName(owner, name string) string {
	return PgIdent(owner) + "." + PgIdent(name)
}

func identList(names []string) string {
	idents := make([]string, len(names))
	for i, name := range names {
		idents[i] = PgIdent(name)
	}
	return strings.Join(idents, ", ")
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i, r := range name {
		if r >= 'a' && r <= 'z' || r == '_' {
			continue
		}
		if i > 0 && (r >= '0' && r <= '9' || r == '$') {
			continue
		}
		return true
	}
	return false
}

// OracleIdent quotes a name for use in Oracle SQL, preserving its case.
func OracleIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
