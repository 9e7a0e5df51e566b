// Package csvimport reads event exports from the old website.
//
// The exports contain unescaped quotes and raw newlines inside HTML cells,
// which encoding/csv rejects or splits differently, so Parse implements the
// lenient scanner the exports were produced for.
package csvimport

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Row maps header names to cell values.
type Row map[string]string

// Parse splits raw CSV text into rows keyed by the header row.
//
// Outside quotes a '"' opens a quoted field, ',' ends a field and "\n" or
// "\r\n" ends a row; a lone '\r' is kept as text. Inside quotes '""' is a
// literal quote and a '"' followed by ',', '\n', '\r' or end of input closes
// the field; any other '"' is kept as text. Rows whose field count differs
// from the header are dropped.
func Parse(raw string) []Row {
	var (
		rows     []Row
		headers  []string
		field    strings.Builder
		fields   []string
		inQuotes bool
	)

	emit := func() {
		if headers == nil {
			headers = fields
			return
		}
		if len(fields) != len(headers) {
			return
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			row[h] = fields[i]
		}
		rows = append(rows, row)
	}

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		var next byte
		hasNext := i+1 < len(raw)
		if hasNext {
			next = raw[i+1]
		}

		if inQuotes {
			switch {
			case ch == '"' && hasNext && next == '"':
				field.WriteByte('"')
				i++
			case ch == '"' && (!hasNext || next == ',' || next == '\n' || next == '\r'):
				inQuotes = false
			default:
				field.WriteByte(ch)
			}
			continue
		}

		switch {
		case ch == '"':
			inQuotes = true
		case ch == ',':
			fields = append(fields, field.String())
			field.Reset()
		case ch == '\n' || (ch == '\r' && hasNext && next == '\n'):
			if ch == '\r' {
				i++
			}
			fields = append(fields, field.String())
			field.Reset()
			emit()
			fields = nil
		default:
			field.WriteByte(ch)
		}
	}

	if field.Len() > 0 || len(fields) > 0 {
		fields = append(fields, field.String())
		if headers != nil {
			emit()
		}
	}

	return rows
}

// TitleIndex maps trimmed Title values to trimmed Content values. Rows with
// an empty title or content are skipped; a later row wins over an earlier one.
func TitleIndex(rows []Row) map[string]string {
	idx := make(map[string]string)
	for _, r := range rows {
		title := strings.TrimSpace(r["Title"])
		html := strings.TrimSpace(r["Content"])
		if title != "" && html != "" {
			idx[title] = html
		}
	}
	return idx
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads a UTF-8 CSV export and parses it.
func ReadFile(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return Parse(string(bytes.TrimPrefix(data, utf8BOM))), nil
}
