package servicetype

import "testing"

func TestCanonicalAliases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		want  Cycle
		ok    bool
	}{
		{"Standard Parcel", Cycle1, true},
		{"standard parcel", Cycle1, true},
		{"Standard Parcel Medium Van", Cycle1, true},
		{"StandardParcel", Cycle1, true},
		{"Multi-Use", SamedayB, true},
		{"Multi Use", SamedayB, true},
		{"multiuse", SamedayB, true},
		{"Sameday Parcel", SamedayC, true},
		{"Sameday B", SamedayB, true},
		{"Sameday C", SamedayC, true},
		{"Cycle 1", Cycle1, true},
		{"", "", false},
		{"Fresh Grocery", "", false},
	}

	for _, tc := range cases {
		got, ok := Canonical(tc.label)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Canonical(%q) = (%q, %v), want (%q, %v)", tc.label, got, ok, tc.want, tc.ok)
		}
	}
}

// Alias equivalence: the plain label and the Medium Van variant must
// normalize to the same canonical type used for roster section matching.
func TestCanonicalMediumVanEquivalence(t *testing.T) {
	t.Parallel()

	plain, ok1 := Canonical("Standard Parcel")
	van, ok2 := Canonical("Standard Parcel Medium Van")
	if !ok1 || !ok2 {
		t.Fatal("both labels must be recognized")
	}
	if plain != van {
		t.Errorf("aliases diverged: %q vs %q", plain, van)
	}
}

func TestSetSorted(t *testing.T) {
	t.Parallel()

	s := NewSet(SamedayC, Cycle1, SamedayC)
	got := s.Sorted()
	if len(got) != 2 || got[0] != Cycle1 || got[1] != SamedayC {
		t.Errorf("Sorted() = %v", got)
	}
}
