package schema

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

const currentTimestamp = "now()::timestamp"

// RewriteDefault translates an Oracle DATA_DEFAULT expression. The result is
// empty when the column has no default. Rewriting an already rewritten
// expression returns it unchanged.
func RewriteDefault(raw string) string {
	value := strings.TrimRight(raw, " \t\r\n")
	switch strings.ToUpper(value) {
	case "SYSDATE", "SYSTIMESTAMP":
		return currentTimestamp
	case "EMPTY_BLOB()", "EMPTY_CLOB()":
		return "''"
	}
	return value
}

// QuoteComment renders a comment as a string literal.
func QuoteComment(comment string) string {
	return pq.QuoteLiteral(comment)
}

var quotedIdent = regexp.MustCompile(`"(?:[^"]|"")+"`)

// rewriteCondition replaces Oracle quoted identifiers in a check condition
// with the spelling the columns were created under. Text inside string
// literals is left alone.
func rewriteCondition(cond string) string {
	var out strings.Builder
	parts := strings.Split(cond, "'")
	for i, part := range parts {
		if i > 0 {
			out.WriteByte('\'')
		}
		if i%2 == 1 {
			out.WriteString(part)
			continue
		}
		out.WriteString(quotedIdent.ReplaceAllStringFunc(part, func(m string) string {
			return PgIdent(strings.ReplaceAll(m[1:len(m)-1], `""`, `"`))
		}))
	}
	return out.String()
}

var notNullCondition = regexp.MustCompile(`^"?([A-Za-z][A-Za-z0-9_$#]*)"? IS NOT NULL$`)

// notNullColumn returns the column an Oracle NOT NULL check constraint
// applies to.
func notNullColumn(cond string) (string, bool) {
	m := notNullCondition.FindStringSubmatch(strings.TrimSpace(cond))
	if m == nil {
		return "", false
	}
	return m[1], true
}
