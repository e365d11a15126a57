package servicetype

import (
	"testing"

	"rosterwatch/internal/dashboard"
)

func TestInferFromURL(t *testing.T) {
	t.Parallel()

	// A service-area id is only a weak signal: it yields the full known set.
	got := InferFromURL("https://logistics.example.com/scheduling?serviceAreaId=A123")
	if len(got) != len(AllCycles) {
		t.Errorf("service-area signal should yield all cycles, got %v", got.Sorted())
	}

	if got := InferFromURL("https://logistics.example.com/scheduling?foo=bar"); len(got) != 0 {
		t.Errorf("unrelated params must yield nothing, got %v", got.Sorted())
	}
	if got := InferFromURL(""); len(got) != 0 {
		t.Errorf("empty URL must yield nothing, got %v", got.Sorted())
	}
}

func TestInferFromText(t *testing.T) {
	t.Parallel()

	got := InferFromText("Roster for Standard Parcel Medium Van and Multi-Use waves")
	if !got.Has(Cycle1) || !got.Has(SamedayB) {
		t.Errorf("expected cycle1 and samedayB, got %v", got.Sorted())
	}
	if got.Has(SamedayC) {
		t.Errorf("samedayC not present in text, got %v", got.Sorted())
	}
}

func TestInferFromTables(t *testing.T) {
	t.Parallel()

	tables := []dashboard.Table{{Rows: []dashboard.Row{
		{Cells: []string{"Standard Parcel"}},
		{Cells: []string{"ABC1", "12", "10"}},
		{Cells: []string{"Sameday Parcel"}},
		{Cells: []string{"XYZ2", "3", "3"}},
	}}}

	got := InferFromTables(tables)
	if !got.Has(Cycle1) || !got.Has(SamedayC) {
		t.Errorf("expected section labels cycle1 and samedayC, got %v", got.Sorted())
	}
	if got.Has(SamedayB) {
		t.Errorf("no Multi-Use section present, got %v", got.Sorted())
	}
}

// A data row that happens to mention a service type in one of many populated
// cells must not be mistaken for a section header.
func TestSectionLabelIgnoresDataRows(t *testing.T) {
	t.Parallel()

	row := dashboard.Row{Cells: []string{"ABC1", "Standard Parcel", "12", "10"}}
	if _, ok := SectionLabel(row); ok {
		t.Error("wide data row must not be recognized as a section header")
	}
}

func TestInferDefaultFallback(t *testing.T) {
	t.Parallel()

	got := Infer("https://logistics.example.com/other", nil, "nothing relevant here")
	if len(got) != 1 || !got.Has(DefaultCycle) {
		t.Errorf("all-empty signals must fall back to the default type, got %v", got.Sorted())
	}
}

func TestInferUnionsSignals(t *testing.T) {
	t.Parallel()

	tables := []dashboard.Table{{Rows: []dashboard.Row{
		{Cells: []string{"Multi-Use"}},
	}}}
	got := Infer("https://x.example.com/p?x=1", tables, "Sameday Parcel summary")
	if !got.Has(SamedayB) || !got.Has(SamedayC) {
		t.Errorf("expected union of table and text signals, got %v", got.Sorted())
	}
	if got.Has(Cycle1) {
		t.Errorf("cycle1 not signaled, got %v", got.Sorted())
	}
}
