package servicetype

import (
	"net/url"
	"regexp"

	"rosterwatch/internal/dashboard"
)

// Inference combines three independent weak signals and unions the results.
// Canonical-form comparison dedupes naturally; if every signal comes back
// empty the caller gets the single default type, never an empty set.

// urlSignalParams are query-parameter names whose mere presence suggests a
// scheduling page. This is an intentionally coarse low-confidence fallback:
// a service-area id or date parameter says "all known types may be relevant",
// nothing more precise. Do not strengthen its effect.
var urlSignalParams = []string{"serviceAreaId", "service_area_id", "date"}

// textPatterns are scanned against page text. Order mirrors the alias table:
// the medium-van variant is matched before plain standard parcel so both
// token groups land on the same canonical type deliberately.
var textPatterns = []struct {
	re    *regexp.Regexp
	cycle Cycle
}{
	{regexp.MustCompile(`(?i)standard\s*parcel\s*medium\s*van`), Cycle1},
	{regexp.MustCompile(`(?i)standard\s*parcel`), Cycle1},
	{regexp.MustCompile(`(?i)multi[-\s]*use`), SamedayB},
	{regexp.MustCompile(`(?i)sameday\s*parcel`), SamedayC},
}

// InferFromURL inspects query parameters of a page URL.
//
// Behavior:
//   - Presence of any known signal parameter yields ALL known cycles (coarse
//     fallback, see urlSignalParams).
//   - Unparseable or signal-free URLs yield an empty set.
func InferFromURL(raw string) Set {
	out := NewSet()
	if raw == "" {
		return out
	}
	u, err := url.Parse(raw)
	if err != nil {
		return out
	}
	q := u.Query()
	for _, p := range urlSignalParams {
		if q.Has(p) {
			for _, c := range AllCycles {
				out.Add(c)
			}
			return out
		}
	}
	return out
}

// InferFromText scans free-form page text for canonical alias patterns.
func InferFromText(text string) Set {
	out := NewSet()
	if text == "" {
		return out
	}
	for _, p := range textPatterns {
		if p.re.MatchString(text) {
			out.Add(p.cycle)
		}
	}
	return out
}

// InferFromTables collects the set of section labels present in table
// structure. This reuses the same header-row recognition the roster
// segmenter applies, but only gathers labels; no row data is extracted.
func InferFromTables(tables []dashboard.Table) Set {
	out := NewSet()
	for _, t := range tables {
		for _, row := range t.Rows {
			if label, ok := SectionLabel(row); ok {
				out.Add(label)
			}
		}
	}
	return out
}

// sectionLabelMaxCells bounds how many meaningful cells a section-header row
// may carry. Section headers are short label rows (often a single colspan
// cell); data rows carry many populated cells.
const sectionLabelMaxCells = 2

// SectionLabel recognizes a section-header row and returns its canonical
// cycle. Shared with the roster segmenter so both walks agree on what a
// section boundary is.
func SectionLabel(row dashboard.Row) (Cycle, bool) {
	if row.NonEmptyCells() == 0 || row.NonEmptyCells() > sectionLabelMaxCells {
		return "", false
	}
	for _, cell := range row.Cells {
		if cell == "" {
			continue
		}
		if c, ok := Canonical(cell); ok {
			return c, true
		}
	}
	return "", false
}

// Infer unions all three signal sources for one page.
//
// The fallback contract: when every signal yields nothing, the result is the
// single DefaultCycle so downstream checks stay enabled.
func Infer(pageURL string, tables []dashboard.Table, fullText string) Set {
	out := NewSet()
	out.Union(InferFromURL(pageURL))
	out.Union(InferFromText(fullText))
	out.Union(InferFromTables(tables))
	if len(out) == 0 {
		out.Add(DefaultCycle)
	}
	return out
}
