package roster

import (
	"strings"

	"rosterwatch/internal/dashboard"
	"rosterwatch/internal/servicetype"
)

// sectionTerminatorClass marks a structural separator row ("service type
// row") on scheduling dashboards. It closes the current section without
// opening a new one.
const sectionTerminatorClass = "service-type-row"

// segState is the segmentation walk state.
type segState int

const (
	outsideTarget segState = iota
	insideTarget
)

// SectionRows walks the rows after headerIdx and returns the data rows that
// belong to the target service-type section.
//
// The walk is an explicit finite-state machine over the row sequence:
//
//   - A row recognized as a section header (short label row whose text maps
//     to a canonical cycle) sets the current section; the walk is
//     inside-target iff that cycle equals target.
//   - A terminator row (class marker) resets the current section; rows after
//     it belong to no section until the next header.
//   - Any other row is collected iff the walk is inside-target and the row
//     looks like DSP data (see IsDataRow); everything else is ignored.
//
// State exists only for the duration of one call and starts fresh every
// time; nothing leaks between extractions.
func SectionRows(t dashboard.Table, headerIdx int, hm dashboard.HeaderMap, target servicetype.Cycle) []dashboard.Row {
	var out []dashboard.Row
	state := outsideTarget

	start := headerIdx + 1
	if start < 0 {
		start = 0
	}

	for i := start; i < len(t.Rows); i++ {
		row := t.Rows[i]

		if IsTerminatorRow(row) {
			state = outsideTarget
			continue
		}

		if label, ok := servicetype.SectionLabel(row); ok {
			if label == target {
				state = insideTarget
			} else {
				state = outsideTarget
			}
			continue
		}

		if state == insideTarget && IsDataRow(row, hm) {
			out = append(out, row)
		}
	}
	return out
}

// IsTerminatorRow recognizes the structural separator row by its class
// marker. Separator rows carry no data and are not section headers.
func IsTerminatorRow(row dashboard.Row) bool {
	return row.Class != "" && strings.Contains(row.Class, sectionTerminatorClass)
}

// IsDataRow is the pure "does this look like a DSP data row" predicate:
// a non-empty provider cell plus at least one populated confirmed or
// rostered cell. Kept free of DOM concerns so it is testable in isolation.
func IsDataRow(row dashboard.Row, hm dashboard.HeaderMap) bool {
	if strings.TrimSpace(hm.Value(row, FieldProvider)) == "" {
		return false
	}
	if strings.TrimSpace(hm.Value(row, FieldConfirmed)) != "" {
		return true
	}
	return strings.TrimSpace(hm.Value(row, FieldRostered)) != ""
}
