package dashboard

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Field is one logical column of a schema: a stable name plus the header-text
// synonyms that identify it. Synonyms are lowercase and substring-matched, so
// "dsp" matches both "DSP" and "DSP Name".
//
// Anchor fields gate header-row detection: a row only qualifies as a header
// row when ALL anchor fields match one of its cells. A single anchor produces
// false positives on unrelated tables, so schemas carry at least two.
type Field struct {
	Name     string
	Synonyms []string
	Anchor   bool
}

// Schema is the ordered set of logical fields one extractor looks for.
// Schemas are static data; adding a dashboard variant means adding synonyms,
// not code.
type Schema struct {
	Fields []Field

	// MinHeaderCells is the minimum cell count for a row to be considered a
	// header-row candidate. Dashboards use 3-5 depending on page type.
	MinHeaderCells int
}

// Anchors returns the anchor subset of the schema's fields.
func (s Schema) Anchors() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Anchor {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the named field, if the schema defines it.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NormalizeCell canonicalizes header/cell text for comparison: NFKC so
// full-width and compatibility characters from dashboard exports compare
// equal to their ASCII forms, then case folding, then trim.
func NormalizeCell(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

// Matches reports whether cellText names one of the given synonyms.
//
// Behavior:
//   - Comparison is substring containment over the normalized cell text, not
//     exact match. This is deliberate: it tolerates suffixes like "DSP Name"
//     vs "DSP" without per-dashboard synonym lists.
//   - Empty or whitespace-only cell text never matches.
func Matches(cellText string, synonyms []string) bool {
	cell := NormalizeCell(cellText)
	if cell == "" {
		return false
	}
	for _, syn := range synonyms {
		if syn == "" {
			continue
		}
		if strings.Contains(cell, syn) {
			return true
		}
	}
	return false
}
