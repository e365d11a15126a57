package dashboard

import "strings"

// NoTimeWindow is the sentinel returned when a row has neither a direct time
// window nor usable start/end times. Downstream consumers display it as-is.
const NoTimeWindow = "No Time Window"

// HeaderMap maps logical field names to physical column indices within one
// resolved table. Fields whose headers were not found are simply absent;
// consumers must treat a missing entry as "field unavailable", not an error.
type HeaderMap map[string]int

// BuildHeaderMap resolves schema fields against one header row.
//
// Behavior:
//   - Cells are scanned left to right; the first cell matching a field wins
//     that field and later cells cannot re-assign it.
//   - Each cell satisfies at most one field, in schema order.
//   - Fields with no matching header are left out of the map.
func BuildHeaderMap(header Row, schema Schema) HeaderMap {
	hm := make(HeaderMap, len(schema.Fields))
	for i, cell := range header.Cells {
		for _, f := range schema.Fields {
			if _, done := hm[f.Name]; done {
				continue
			}
			if Matches(cell, f.Synonyms) {
				hm[f.Name] = i
				break
			}
		}
	}
	return hm
}

// Cell returns the value of the named field in row, if the field resolved.
func (hm HeaderMap) Cell(row Row, field string) (string, bool) {
	i, ok := hm[field]
	if !ok {
		return "", false
	}
	return row.Cell(i), true
}

// Value is Cell without the presence flag, for callers that treat missing
// and empty identically.
func (hm HeaderMap) Value(row Row, field string) string {
	v, _ := hm.Cell(row, field)
	return v
}

// TimeWindow resolves a delivery time window from a row.
//
// Derivation rule shared by the manifest and sheets extractors: a direct
// timeWindow column wins; otherwise a window is synthesized from startTime
// and endTime as "{start} - {end}". If nothing usable is present the
// NoTimeWindow sentinel is returned.
func (hm HeaderMap) TimeWindow(row Row, windowField, startField, endField string) string {
	if w := strings.TrimSpace(hm.Value(row, windowField)); w != "" {
		return w
	}
	start := strings.TrimSpace(hm.Value(row, startField))
	end := strings.TrimSpace(hm.Value(row, endField))
	if start == "" && end == "" {
		return NoTimeWindow
	}
	return strings.TrimSpace(start + " - " + end)
}
