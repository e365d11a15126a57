package dashboard

import "strings"

// Table selection supports two strategies, and both must stay available:
//
//   - First-match-wins (SelectTable): roster, backbrief and risk pages carry a
//     single unambiguous data table, so the first table whose header row
//     qualifies is the right one.
//   - Best-score-wins (SelectTableScored): manifest-style pages render many
//     ambiguous tables; candidates are scored by matched header categories
//     plus content heuristics and the best candidate above a floor wins.
//
// The strategies suit structurally different page shapes and are not unified.

// headerScanRows bounds the header-row search. Dashboards occasionally
// prepend caption/filter rows before the real header, but never more than a
// few of them.
const headerScanRows = 5

// Scoring constants for SelectTableScored. The floor is an empirically chosen
// tunable, kept as data rather than derived.
const (
	minTableScore    = 2
	keywordBonus     = 1
	rowCountBonus    = 1
	rowCountBonusMin = 3
)

// FindHeaderRow locates the header row of a table for the given schema.
//
// A row qualifies iff it is within the first headerScanRows rows, has at
// least schema.MinHeaderCells cells, and contains a matching cell for every
// anchor field. Returns the row, its index, and whether one was found.
func FindHeaderRow(t Table, schema Schema) (Row, int, bool) {
	anchors := schema.Anchors()
	if len(anchors) == 0 {
		return Row{}, -1, false
	}

	limit := len(t.Rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		row := t.Rows[i]
		if len(row.Cells) < schema.MinHeaderCells {
			continue
		}
		if rowHasAllAnchors(row, anchors) {
			return row, i, true
		}
	}
	return Row{}, -1, false
}

func rowHasAllAnchors(row Row, anchors []Field) bool {
	for _, a := range anchors {
		found := false
		for _, cell := range row.Cells {
			if Matches(cell, a.Synonyms) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SelectTable picks the first table (in DOM order) with at least two rows
// whose header row qualifies for the schema.
//
// Not-found is not an error: callers treat a false result as "no data on
// this page" and return an empty extraction.
func SelectTable(tables []Table, schema Schema) (Table, Row, int, bool) {
	for _, t := range tables {
		if len(t.Rows) < 2 {
			continue
		}
		if header, idx, ok := FindHeaderRow(t, schema); ok {
			return t, header, idx, true
		}
	}
	return Table{}, Row{}, -1, false
}

// ScoreOptions tunes the best-score strategy.
type ScoreOptions struct {
	// Keywords are lowercase body-text fragments that earn keywordBonus each
	// when present anywhere in the candidate table's text.
	Keywords []string

	// MinScore is the acceptance floor; if <= 0, minTableScore applies.
	MinScore int
}

// SelectTableScored scores every candidate table and picks the highest score
// at or above the floor. Ties keep the earlier table in DOM order.
//
// Score = number of schema fields whose header matched in the candidate's
// best header row, + keywordBonus per body keyword present, + rowCountBonus
// when the table has more than rowCountBonusMin rows (a caption box rarely
// does).
func SelectTableScored(tables []Table, schema Schema, opts ScoreOptions) (Table, Row, int, bool) {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = minTableScore
	}

	bestScore := 0
	bestIdx := -1
	var bestHeader Row
	var bestHeaderIdx int

	for ti, t := range tables {
		if len(t.Rows) < 2 {
			continue
		}

		header, headerIdx, matched := bestHeaderRow(t, schema)
		if matched == 0 {
			continue
		}

		score := matched
		if len(opts.Keywords) > 0 {
			body := t.Text()
			for _, kw := range opts.Keywords {
				if kw == "" {
					continue
				}
				if containsKeyword(body, kw) {
					score += keywordBonus
				}
			}
		}
		if len(t.Rows) > rowCountBonusMin {
			score += rowCountBonus
		}

		if score > bestScore {
			bestScore = score
			bestIdx = ti
			bestHeader = header
			bestHeaderIdx = headerIdx
		}
	}

	if bestIdx < 0 || bestScore < minScore {
		return Table{}, Row{}, -1, false
	}
	return tables[bestIdx], bestHeader, bestHeaderIdx, true
}

// bestHeaderRow scans the first headerScanRows rows and returns the row that
// matches the most schema fields, with the match count. Unlike FindHeaderRow
// this does not require anchors; the score floor does the gating.
func bestHeaderRow(t Table, schema Schema) (Row, int, int) {
	var best Row
	bestIdx := -1
	bestMatched := 0

	limit := len(t.Rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		row := t.Rows[i]
		if len(row.Cells) < schema.MinHeaderCells {
			continue
		}
		matched := len(BuildHeaderMap(row, schema))
		if matched > bestMatched {
			best = row
			bestIdx = i
			bestMatched = matched
		}
	}
	return best, bestIdx, bestMatched
}

func containsKeyword(body, kw string) bool {
	return kw != "" && strings.Contains(body, kw)
}
