package parse

import (
	"strings"

	"github.com/henri123lemoine/gridmsg/internal/grid"
)

// parseText reads whitespace-separated rows. Rows start after the first line
// mentioning both "x-coordinate" and "y-coordinate"; without such a line,
// every line is a candidate unless requireHeader is set.
func parseText(text string, requireHeader bool, opts Options) ([]grid.Triple, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	headerIndex := -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "x-coordinate") && strings.Contains(lower, "y-coordinate") {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 && requireHeader {
		return nil, nil
	}

	var rows [][]string
	if headerIndex >= 0 {
		rows = append(rows, headerFields(lines[headerIndex]))
	}
	for _, line := range lines[headerIndex+1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	return triplesFromTable(rows, opts)
}

// headerFields splits a header line into column names, keeping only the
// three recognised names in the order they appear.
func headerFields(line string) []string {
	lower := strings.ToLower(line)
	type named struct {
		pos  int
		name string
	}
	var found []named
	for _, name := range []string{"x-coordinate", "character", "y-coordinate"} {
		if pos := strings.Index(lower, name); pos >= 0 {
			found = append(found, named{pos, name})
		}
	}
	// Insertion sort by position; there are at most three names.
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	fields := make([]string, len(found))
	for i, f := range found {
		fields[i] = f.name
	}
	return fields
}
