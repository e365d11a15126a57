// Package dashboard implements the heuristic table-extraction primitives used
// by every page extractor: parsing DOM tables into plain row data, matching
// fuzzy header text against logical field synonyms, selecting the "right"
// table among many, and resolving logical fields to physical column indices.
//
// The package is responsible for:
//   - Materializing goquery documents into []Table (cells trimmed, row markers kept)
//   - Header synonym matching with unicode-folded comparison
//   - Two table-selection strategies (first-match and best-score)
//   - Column mapping and the universal safe integer parse
//
// Design constraints:
//   - Selection and mapping are pure over a materialized snapshot; nothing in
//     this package touches the network or retains state between calls.
//   - Not-found conditions are represented by empty results, never errors.
package dashboard

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrWrongPage reports that an extractor was invoked against a page whose URL
// does not belong to the expected dashboard. This is the one loud failure in
// the extraction layer: it signals a caller-side routing mistake, not a
// data-shape surprise.
var ErrWrongPage = errors.New("wrong page for extractor")

// Row is one materialized table row: trimmed cell texts plus the row's class
// attribute. The class attribute is kept because roster dashboards mark
// non-data separator rows with a structural class rather than cell content.
type Row struct {
	Cells []string
	Class string
}

// Cell returns the trimmed text of column i, or "" when the row is shorter
// than i+1 cells. Short rows are a normal condition on these dashboards.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// NonEmptyCells counts cells with meaningful content.
func (r Row) NonEmptyCells() int {
	n := 0
	for _, c := range r.Cells {
		if c != "" {
			n++
		}
	}
	return n
}

// Table is a materialized snapshot of one HTML table in DOM order.
type Table struct {
	Rows []Row
}

// Text returns the concatenated cell text of the whole table, lowercased.
// Used by the best-score selection strategy for body keyword checks.
func (t Table) Text() string {
	var b strings.Builder
	for _, r := range t.Rows {
		for _, c := range r.Cells {
			b.WriteString(c)
			b.WriteByte(' ')
		}
	}
	return strings.ToLower(b.String())
}

// ParseTables materializes every <table> of the document, in DOM order.
//
// Behavior:
//   - Cells are taken from th and td elements and trimmed.
//   - The tr class attribute is preserved on each Row.
//   - Tables with no rows are kept (selection filters them out later); this
//     keeps indices aligned with DOM order for debugging.
func ParseTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var t Table
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			row := Row{Class: strings.TrimSpace(tr.AttrOr("class", ""))}
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				row.Cells = append(row.Cells, strings.TrimSpace(cell.Text()))
			})
			t.Rows = append(t.Rows, row)
		})
		tables = append(tables, t)
	})
	return tables
}

// ParseTablesHTML parses an HTML string and materializes its tables.
//
// Errors:
//   - Returns an error only when the HTML cannot be tokenized at all; a page
//     without tables yields an empty slice and nil error.
func ParseTablesHTML(html string) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return ParseTables(doc), nil
}
