// Package structure turns raw recognized text into uniform records when the
// backend itself does not return structured data. It guesses the most
// information-dense shape first: a delimited table, then colon-separated
// key/value pairs, then an enumerated list as the conservative fallback.
package structure

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scansheet/ocr-service/internal/models"
)

// delimiterPriority is checked in order; the first delimiter found on any
// line wins. The ordering is empirically tuned, not derived: tabs and pipes
// almost never appear in prose, commas do.
var delimiterPriority = []string{"\t", "|", ","}

// List rule field names.
const (
	listPositionField = "position"
	listItemField     = "item"
)

// listMarker matches a leading enumeration marker: "1. ", "2) ", "3 ", "-",
// "*" or a bullet.
var listMarker = regexp.MustCompile(`^(?:\d+[.)]?\s+|[-*•]\s*)`)

// Classify converts raw OCR text into records. It returns an empty slice when
// no structure at all could be recovered; callers decide whether that is an
// error (the local engine treats it as one).
func Classify(text string) []*models.Record {
	lines := splitLines(text)
	if len(lines) == 0 {
		return []*models.Record{}
	}

	if delim, ok := detectDelimiter(lines); ok {
		if records, ok := classifyTable(lines, delim); ok {
			return records
		}
		// A "table" with fewer than two usable rows would collapse to a
		// single header record and lose every line; keep them all instead.
		return classifyList(lines)
	}

	if colonMajority(lines) {
		return classifyKeyValue(lines)
	}

	return classifyList(lines)
}

// splitLines breaks text into trimmed, non-empty lines.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// detectDelimiter returns the highest-priority delimiter present on any line.
func detectDelimiter(lines []string) (string, bool) {
	for _, delim := range delimiterPriority {
		for _, line := range lines {
			if strings.Contains(line, delim) {
				return delim, true
			}
		}
	}
	return "", false
}

// classifyTable splits every line on delim, using the first surviving row as
// the header. Ragged rows are tolerated: short rows pad with empty strings,
// extra cells are dropped. Reports !ok when fewer than two rows survive
// cleaning, in which case the caller falls back to the list rule.
func classifyTable(lines []string, delim string) ([]*models.Record, bool) {
	var rows [][]string
	for _, line := range lines {
		var cells []string
		for _, cell := range strings.Split(line, delim) {
			cell = strings.TrimSpace(cell)
			if cell == "" || cell == delim {
				continue
			}
			cells = append(cells, cell)
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(rows) < 2 {
		return nil, false
	}

	header := rows[0]
	records := make([]*models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.NewRecord()
		for i, name := range header {
			if i < len(row) {
				rec.Set(name, row[i])
			} else {
				rec.Set(name, "")
			}
		}
		records = append(records, rec)
	}
	return records, true
}

// colonMajority reports whether a strict majority of lines contain a colon.
func colonMajority(lines []string) bool {
	count := 0
	for _, line := range lines {
		if strings.Contains(line, ":") {
			count++
		}
	}
	return count*2 > len(lines)
}

// classifyKeyValue collapses all colon-separated lines into a single record.
// Lines without a colon, and pairs whose key trims to nothing, are ignored.
// The result is empty when no usable pair was found.
func classifyKeyValue(lines []string) []*models.Record {
	rec := models.NewRecord()
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if key = strings.TrimSpace(key); key == "" {
			continue
		}
		rec.Set(key, strings.TrimSpace(value))
	}
	if rec.Len() == 0 {
		return []*models.Record{}
	}
	return []*models.Record{rec}
}

// classifyList emits one record per line with its 1-based position and the
// line's text, stripping a leading enumeration marker if present.
func classifyList(lines []string) []*models.Record {
	records := make([]*models.Record, 0, len(lines))
	for i, line := range lines {
		item := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		rec := models.NewRecord()
		rec.Set(listPositionField, strconv.Itoa(i+1))
		rec.Set(listItemField, item)
		records = append(records, rec)
	}
	return records
}
