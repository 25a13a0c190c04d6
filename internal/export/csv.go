// Package export renders collected wireless rows and delivers the artifact.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// EncodeCSV renders header and records as CSV. Every field is quoted,
// embedded quotes are doubled, and lines are joined with CRLF (no trailing
// line break). Output depends only on the input.
func EncodeCSV(header []string, records [][]string) string {
	var b strings.Builder
	writeLine(&b, header)
	for _, rec := range records {
		b.WriteString("\r\n")
		writeLine(&b, rec)
	}
	return b.String()
}

// EncodeRows renders wireless rows under model.OutputHeader.
func EncodeRows(rows []model.OutputRow) string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Fields()
	}
	return EncodeCSV(model.OutputHeader, records)
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

// FileName returns the artifact name for a run, e.g.
// dealmachine_wireless_2024-05-01_42.csv.
func FileName(at time.Time, count int, ext string) string {
	return fmt.Sprintf("dealmachine_wireless_%s_%d.%s", at.Format("2006-01-02"), count, ext)
}
