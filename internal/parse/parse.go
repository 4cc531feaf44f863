// Package parse extracts (x, character, y) rows from fetched documents and
// turns them into grid triples.
//
// Three document formats are understood: HTML tables (a published or
// exported Google Doc), Google Docs API JSON, and whitespace-separated plain
// text following an "x-coordinate ... y-coordinate" header line. Triples are
// returned in document order, which the renderer relies on for
// last-write-wins.
package parse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/henri123lemoine/gridmsg/internal/debug"
	"github.com/henri123lemoine/gridmsg/internal/grid"
)

// Format selects how a document is read.
type Format int

const (
	FormatAuto Format = iota
	FormatHTML
	FormatJSON
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatHTML:
		return "html"
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ErrUnknownFormat is returned for a Format outside the known set.
var ErrUnknownFormat = errors.New("unknown document format")

// Options controls parsing.
type Options struct {
	// Format forces a document format; FormatAuto detects it.
	Format Format

	// Strict fails on data rows whose coordinates are not integers instead
	// of skipping them. The first row of a table is still treated as a
	// header when it does not hold integers.
	Strict bool
}

// DetectFormat picks a format from the content type, then from the body.
func DetectFormat(body []byte, contentType string) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return FormatHTML
	case strings.Contains(ct, "json"):
		return FormatJSON
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatJSON
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FormatHTML
	}
	return FormatText
}

// Parse extracts triples from body.
func Parse(body []byte, contentType string, opts Options) ([]grid.Triple, error) {
	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(body, contentType)
	}
	debug.Log("parsing %d bytes as %s", len(body), format)

	switch format {
	case FormatHTML:
		return parseHTML(body, opts)
	case FormatJSON:
		return parseDocsJSON(body, opts)
	case FormatText:
		return parseText(string(body), false, opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// columns holds the cell index of each field in a table row.
type columns struct {
	x, char, y int
}

// defaultColumns is the x, character, y order used when no header names them.
var defaultColumns = columns{x: 0, char: 1, y: 2}

func (c columns) width() int {
	return max(c.x, c.char, c.y) + 1
}

// headerColumns reads column positions from header cells such as
// "x-coordinate | Character | y-coordinate". ok is false when the cells do
// not name all three columns.
func headerColumns(cells []string) (c columns, ok bool) {
	c = columns{x: -1, char: -1, y: -1}
	for i, cell := range cells {
		s := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.HasPrefix(s, "x-coord") || strings.HasPrefix(s, "x coord") || s == "x":
			c.x = i
		case strings.HasPrefix(s, "y-coord") || strings.HasPrefix(s, "y coord") || s == "y":
			c.y = i
		case strings.Contains(s, "char") || s == "glyph":
			c.char = i
		}
	}
	if c.x < 0 || c.y < 0 || c.char < 0 {
		return defaultColumns, false
	}
	return c, true
}

// triplesFromTable converts table rows to triples. The first row is a header
// when it names the columns or does not hold integer coordinates.
func triplesFromTable(rows [][]string, opts Options) ([]grid.Triple, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cols, named := headerColumns(rows[0])
	start := 0
	if named {
		start = 1
	}

	var triples []grid.Triple
	for i := start; i < len(rows); i++ {
		cells := rows[i]
		if len(cells) < cols.width() {
			continue
		}

		t, err := grid.ParseTriple(cells[cols.x], cells[cols.char], cells[cols.y])
		if err != nil {
			var coordErr *grid.InvalidCoordinateError
			if errors.As(err, &coordErr) && coordErr.NotInteger && (i == 0 || !opts.Strict) {
				debug.Log("skipping row %d: %v", i, err)
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		triples = append(triples, t)
	}
	return triples, nil
}
