package transfer

import (
	"bytes"
	"database/sql"
	"strings"

	"github.com/kadirbelkuyu/oracle2pg/internal/schema"
)

type fieldKind int

const (
	fieldPlain fieldKind = iota
	fieldQuoted
	fieldBinary
)

// recordEncoder renders rows as CSV records for COPY ... WITH (FORMAT csv).
type recordEncoder struct {
	kinds []fieldKind
	null  string
}

func newRecordEncoder(columns []schema.Column, null string) *recordEncoder {
	kinds := make([]fieldKind, len(columns))
	for i, col := range columns {
		t := col.SourceType()
		switch {
		case t.IsCharacter():
			kinds[i] = fieldQuoted
		case t.IsBinary():
			kinds[i] = fieldBinary
		default:
			kinds[i] = fieldPlain
		}
	}
	return &recordEncoder{kinds: kinds, null: null}
}

// append writes one newline terminated record. SQL NULL becomes the bare
// null token; character values are always quoted so they never collide
// with it.
func (e *recordEncoder) append(buf *bytes.Buffer, values []sql.NullString) {
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !v.Valid {
			buf.WriteString(e.null)
			continue
		}
		switch e.kinds[i] {
		case fieldQuoted:
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(v.String, `"`, `""`))
			buf.WriteByte('"')
		case fieldBinary:
			buf.WriteString(`\x`)
			buf.WriteString(v.String)
		default:
			buf.WriteString(v.String)
		}
	}
	buf.WriteByte('\n')
}
