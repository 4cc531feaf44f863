package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/henri123lemoine/gridmsg/internal/grid"
)

// Subset of the Google Docs API document resource that holds table text.
type docsDocument struct {
	Body struct {
		Content []docsStructuralElement `json:"content"`
	} `json:"body"`
}

type docsStructuralElement struct {
	Table *docsTable `json:"table"`
}

type docsTable struct {
	TableRows []struct {
		TableCells []docsTableCell `json:"tableCells"`
	} `json:"tableRows"`
}

type docsTableCell struct {
	Content []struct {
		Paragraph *struct {
			Elements []struct {
				TextRun *struct {
					Content string `json:"content"`
				} `json:"textRun"`
			} `json:"elements"`
		} `json:"paragraph"`
	} `json:"content"`
}

func (c docsTableCell) text() string {
	var sb strings.Builder
	for _, content := range c.Content {
		if content.Paragraph == nil {
			continue
		}
		for _, el := range content.Paragraph.Elements {
			if el.TextRun != nil {
				sb.WriteString(el.TextRun.Content)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// parseDocsJSON reads the tables of a Docs API document.
func parseDocsJSON(body []byte, opts Options) ([]grid.Triple, error) {
	var doc docsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing Docs JSON: %w", err)
	}

	var triples []grid.Triple
	for _, el := range doc.Body.Content {
		if el.Table == nil {
			continue
		}
		rows := make([][]string, 0, len(el.Table.TableRows))
		for _, r := range el.Table.TableRows {
			cells := make([]string, len(r.TableCells))
			for i, c := range r.TableCells {
				cells[i] = c.text()
			}
			rows = append(rows, cells)
		}
		t, err := triplesFromTable(rows, opts)
		if err != nil {
			return nil, err
		}
		triples = append(triples, t...)
	}
	return triples, nil
}
