// Package roster extracts confirmed-vs-rostered staffing counts from
// scheduling dashboard tables and reconciles them per DSP.
//
// Scheduling pages encode multiple service-type sections inside one table as
// interleaved label/data rows, so extraction is a two-step walk: segment the
// rows of the selected table into the target section, then accumulate counts
// per DSP and derive mismatches.
//
// Everything here is a pure pass over a materialized table snapshot; the
// segmentation state lives in a single synchronous fold and is created fresh
// on every call.
package roster

import (
	"strings"

	"rosterwatch/internal/dashboard"
	"rosterwatch/internal/servicetype"
)

// Logical field names of the roster schema.
const (
	FieldProvider  = "provider"
	FieldConfirmed = "confirmed"
	FieldRostered  = "rostered"
)

// Schema describes the roster table columns. Provider and rostered anchor
// header detection; a lone DSP-like column on an unrelated table must not
// qualify.
func Schema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 3,
		Fields: []dashboard.Field{
			{Name: FieldProvider, Synonyms: []string{"dsp", "provider", "company"}, Anchor: true},
			{Name: FieldConfirmed, Synonyms: []string{"confirmed", "accepted"}},
			{Name: FieldRostered, Synonyms: []string{"rostered", "scheduled"}, Anchor: true},
		},
	}
}

// Entry is the per-DSP reconciliation result for one section.
//
// Invariant: Mismatch == Confirmed - Rostered, and HasMismatch() is true iff
// Mismatch != 0. Counts only ever accumulate; a DSP appearing in several rows
// of one section (multiple shifts) sums across them.
type Entry struct {
	DSP       string
	Confirmed int
	Rostered  int
	Mismatch  int
}

// HasMismatch reports whether confirmed and rostered diverge.
func (e Entry) HasMismatch() bool { return e.Mismatch != 0 }

// Extract runs the full roster pipeline over a page's tables for one target
// service type: select table, resolve columns, segment rows, reconcile.
//
// Not-found conditions (no qualifying table, no section for the target)
// yield an empty map, never an error.
func Extract(tables []dashboard.Table, target servicetype.Cycle) map[string]Entry {
	schema := Schema()
	t, header, headerIdx, ok := dashboard.SelectTable(tables, schema)
	if !ok {
		return map[string]Entry{}
	}
	hm := dashboard.BuildHeaderMap(header, schema)
	rows := SectionRows(t, headerIdx, hm, target)
	return Reconcile(rows, hm)
}

// Reconcile accumulates confirmed/rostered counts per DSP across the given
// data rows and derives the signed mismatch for every entry.
//
// Behavior:
//   - Rows without a provider name are skipped silently.
//   - Missing or non-numeric count cells parse to 0 (safe-parse rule);
//     partial data must not block mismatch detection on present fields.
//   - Entries with a zero mismatch are kept; callers filter for display.
func Reconcile(rows []dashboard.Row, hm dashboard.HeaderMap) map[string]Entry {
	out := make(map[string]Entry)
	for _, row := range rows {
		dsp := strings.TrimSpace(hm.Value(row, FieldProvider))
		if dsp == "" {
			continue
		}
		e := out[dsp]
		e.DSP = dsp
		e.Confirmed += dashboard.ParseCount(hm.Value(row, FieldConfirmed))
		e.Rostered += dashboard.ParseCount(hm.Value(row, FieldRostered))
		out[dsp] = e
	}
	for dsp, e := range out {
		e.Mismatch = e.Confirmed - e.Rostered
		out[dsp] = e
	}
	return out
}
