// Package servicetype defines the canonical service-type vocabulary and the
// multi-signal inference that decides which types a dashboard page covers.
//
// Two separate enumerations exist and are never merged:
//   - Cycle: the canonical roster identifiers (cycle1/samedayB/samedayC) used
//     for section matching on scheduling pages.
//   - Planning labels: the display strings route-planning pages use
//     ("Standard Parcel", "Multi-Use", "Sameday Parcel"), matched exactly.
//
// All alias knowledge lives in the tables below so a new dashboard label is
// an additive data change, not a new code path.
package servicetype

import (
	"regexp"
	"sort"
)

// Cycle is a canonical roster service type.
type Cycle string

const (
	Cycle1   Cycle = "cycle1"
	SamedayB Cycle = "samedayB"
	SamedayC Cycle = "samedayC"
)

// DefaultCycle is the fallback when no signal identifies any type. Inference
// never produces an empty set; an empty set would silently disable every
// downstream check.
const DefaultCycle = Cycle1

// AllCycles lists every known canonical cycle, in stable order.
var AllCycles = []Cycle{Cycle1, SamedayB, SamedayC}

// Planning labels used by route-planning pages. These are compared exactly
// (not fuzzily) against the service-type column when filtering summary rows.
const (
	LabelStandardParcel = "Standard Parcel"
	LabelMultiUse       = "Multi-Use"
	LabelSamedayParcel  = "Sameday Parcel"
)

// PlanningLabels is the default allow-list for route-planning aggregation.
var PlanningLabels = []string{LabelStandardParcel, LabelMultiUse, LabelSamedayParcel}

// cycleAliases maps dashboard label patterns to canonical cycles. Order
// matters: the "Medium Van" variant must be tested before plain
// "Standard Parcel" so that the medium/van tokens are consumed by the right
// pattern (later dashboard generations added the variant as an alias of the
// same canonical type, not a new type).
var cycleAliases = []struct {
	re    *regexp.Regexp
	cycle Cycle
}{
	{regexp.MustCompile(`(?i)standard\s*parcel\s*medium\s*van`), Cycle1},
	{regexp.MustCompile(`(?i)standard\s*parcel`), Cycle1},
	{regexp.MustCompile(`(?i)multi[-\s]*use`), SamedayB},
	{regexp.MustCompile(`(?i)sameday\s*parcel`), SamedayC},
	{regexp.MustCompile(`(?i)sameday\s*b\b`), SamedayB},
	{regexp.MustCompile(`(?i)sameday\s*c\b`), SamedayC},
	{regexp.MustCompile(`(?i)cycle\s*1`), Cycle1},
}

// Canonical maps a dashboard label to its canonical cycle.
//
// Behavior:
//   - Matching is case-insensitive and whitespace-tolerant.
//   - "Standard Parcel" and "Standard Parcel Medium Van" both map to Cycle1.
//   - Unrecognized labels return ok=false; callers treat the row as noise.
func Canonical(label string) (Cycle, bool) {
	if label == "" {
		return "", false
	}
	for _, a := range cycleAliases {
		if a.re.MatchString(label) {
			return a.cycle, true
		}
	}
	return "", false
}

// Set is a set of canonical cycles.
type Set map[Cycle]struct{}

func NewSet(cycles ...Cycle) Set {
	s := make(Set, len(cycles))
	for _, c := range cycles {
		s.Add(c)
	}
	return s
}

func (s Set) Add(c Cycle)      { s[c] = struct{}{} }
func (s Set) Has(c Cycle) bool { _, ok := s[c]; return ok }

// Union adds every member of other into s.
func (s Set) Union(other Set) {
	for c := range other {
		s.Add(c)
	}
}

// Sorted returns the members in stable order for deterministic output.
func (s Set) Sorted() []Cycle {
	out := make([]Cycle, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
