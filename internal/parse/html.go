package parse

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/henri123lemoine/gridmsg/internal/grid"
)

// parseHTML reads every table in the document. When the tables yield no
// triples it falls back to the document's text.
func parseHTML(body []byte, opts Options) ([]grid.Triple, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var triples []grid.Triple
	for _, table := range collectTables(doc) {
		t, err := triplesFromTable(table, opts)
		if err != nil {
			return nil, err
		}
		triples = append(triples, t...)
	}
	if len(triples) > 0 {
		return triples, nil
	}

	var sb strings.Builder
	extractText(doc, &sb)
	return parseText(sb.String(), true, opts)
}

// collectTables returns the rows of each table in document order. Rows of a
// nested table belong to the nested table only.
func collectTables(doc *html.Node) [][][]string {
	var tables [][][]string
	var walk func(n *html.Node, current *[][]string)
	walk = func(n *html.Node, current *[][]string) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				// Reserve the slot first so tables stay in order of appearance
				idx := len(tables)
				tables = append(tables, nil)
				var rows [][]string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, &rows)
				}
				tables[idx] = rows
				return
			case "tr":
				row := rowCells(n)
				if current != nil {
					*current = append(*current, row)
				} else {
					// Stray row outside any table
					tables = append(tables, [][]string{row})
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, nil)
				}
				return
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, current)
		}
	}
	walk(doc, nil)
	return tables
}

// rowCells returns the trimmed text of each td/th directly under tr.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	return cells
}

// nodeText concatenates the text under n, skipping nested tables.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "table" || n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// extractText flattens the document to text with one line per block element.
func extractText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		case "br":
			sb.WriteString("\n")
			return
		case "td", "th":
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "pre":
			sb.WriteString("\n")
		case "td", "th":
			sb.WriteString(" ")
		}
	}
}
