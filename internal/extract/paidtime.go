package extract

import (
	"regexp"
	"strings"

	"rosterwatch/internal/dashboard"
)

const fieldShiftLength = "shiftLength"

func paidTimeSchema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 2,
		Fields: []dashboard.Field{
			{Name: fieldShiftLength, Synonyms: []string{"shift length", "in shift"}, Anchor: true},
		},
	}
}

// shiftMinutesRe matches a bare 2-4 digit cell, the shape of a
// minutes-per-shift value. Used only by the fallback path.
var shiftMinutesRe = regexp.MustCompile(`^\d{2,4}$`)

// PaidTimeFromConstraints infers the paid shift length (minutes) from a
// route-constraints page.
//
// Behavior:
//   - The shift-length column of the constraints table is collected across
//     all data rows; when the column cannot be resolved for a row, the first
//     2-4 digit integer-looking cell in that row is taken instead.
//   - The value is returned only if every collected value is identical. A
//     non-uniform constraints table means the page does not represent one
//     applicable shift length, and 0 is returned as the failure signal.
func PaidTimeFromConstraints(tables []dashboard.Table) int {
	schema := paidTimeSchema()
	t, header, headerIdx, ok := dashboard.SelectTable(tables, schema)
	if !ok {
		return 0
	}
	hm := dashboard.BuildHeaderMap(header, schema)

	collected := 0
	seen := false
	for _, row := range t.Rows[headerIdx+1:] {
		v, found := shiftValue(row, hm)
		if !found {
			continue
		}
		if !seen {
			collected = v
			seen = true
			continue
		}
		if v != collected {
			return 0
		}
	}
	if !seen {
		return 0
	}
	return collected
}

func shiftValue(row dashboard.Row, hm dashboard.HeaderMap) (int, bool) {
	if cell, ok := hm.Cell(row, fieldShiftLength); ok {
		if cell = strings.TrimSpace(cell); cell != "" {
			return dashboard.ParseCount(cell), true
		}
	}
	// Column unresolved or empty for this row: take the first cell shaped
	// like a minutes value.
	for _, cell := range row.Cells {
		if shiftMinutesRe.MatchString(strings.TrimSpace(cell)) {
			return dashboard.ParseCount(cell), true
		}
	}
	return 0, false
}
