package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteDefault(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"SYSDATE":          "now()::timestamp",
		"sysdate \n":       "now()::timestamp",
		"SysTimestamp":     "now()::timestamp",
		"EMPTY_BLOB()":     "''",
		"empty_clob() ":    "''",
		"0 ":               "0",
		"'N'":              "'N'",
		"USER":             "USER",
		"now()::timestamp": "now()::timestamp",
	}

	for input, expected := range cases {
		got := RewriteDefault(input)
		assert.Equalf(t, expected, got, "RewriteDefault(%q)", input)
		assert.Equalf(t, got, RewriteDefault(got), "RewriteDefault is not idempotent for %q", input)
	}
}

func TestQuoteComment(t *testing.T) {
	assert.Equal(t, `'Employee''s table'`, QuoteComment("Employee's table"))
	assert.Equal(t, `'plain'`, QuoteComment("plain"))
	assert.Equal(t, ` E'back\\slash'`, QuoteComment(`back\slash`))
}

func TestRewriteCondition(t *testing.T) {
	cases := map[string]string{
		`"SALARY" > 0`:                        `SALARY > 0`,
		`"ORDER" IN (1, 2)`:                   `"order" IN (1, 2)`,
		`STATUS IN ('A', 'I')`:                `STATUS IN ('A', 'I')`,
		`"CODE" <> '"KEEP"'`:                  `CODE <> '"KEEP"'`,
		`"Mixed" IS NOT NULL`:                 `Mixed IS NOT NULL`,
		`"amount" > 0`:                        `amount > 0`,
		`"Net Pay" >= 0`:                      `"net pay" >= 0`,
		`"START_DATE" < "END_DATE" AND 1 = 1`: `START_DATE < END_DATE AND 1 = 1`,
	}

	for input, expected := range cases {
		assert.Equalf(t, expected, rewriteCondition(input), "rewriteCondition(%q)", input)
	}
}

func TestNotNullColumn(t *testing.T) {
	col, ok := notNullColumn(`"EMPNO" IS NOT NULL`)
	assert.True(t, ok)
	assert.Equal(t, "EMPNO", col)

	col, ok = notNullColumn(" ENAME IS NOT NULL ")
	assert.True(t, ok)
	assert.Equal(t, "ENAME", col)

	_, ok = notNullColumn(`"SAL" > 0`)
	assert.False(t, ok)

	_, ok = notNullColumn(`"A" IS NOT NULL AND "B" IS NOT NULL`)
	assert.False(t, ok)
}
