package extract

import (
	"strings"
	"testing"

	"rosterwatch/internal/dashboard"
)

func routePlanTables(t *testing.T) []dashboard.Table {
	t.Helper()
	html := `
	<table>
		<tr><th>DSP</th><th>Service Type</th><th>Shift Time</th><th>SPR</th></tr>
		<tr><td>abc1</td><td>Standard Parcel</td><td>480</td><td>160</td></tr>
		<tr><td>ABC1</td><td>Standard Parcel</td><td>465</td><td>150</td></tr>
		<tr><td>ABC1</td><td>Fresh Grocery</td><td>999</td><td>999</td></tr>
		<tr><td>XYZ2</td><td>Multi-Use</td><td>300</td><td>90</td></tr>
	</table>`
	tables, err := dashboard.ParseTablesHTML(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tables
}

func TestRoutePlanningAverages(t *testing.T) {
	t.Parallel()

	got := RoutePlanning(routePlanTables(t), RoutePlanOptions{PaidMinutes: 480})
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 DSPs, got %d", len(got.Items))
	}

	// Sorted by DSP; the Fresh Grocery row is outside the allow-list and
	// must not pollute the averages.
	abc := got.Items[0]
	if abc.DSP != "ABC1" {
		t.Fatalf("items not sorted by DSP: %+v", got.Items)
	}
	if abc.AvgShift != 473 { // round((480+465)/2) = round(472.5)
		t.Errorf("AvgShift = %d, want 473", abc.AvgShift)
	}
	if abc.AvgSPR != 155 {
		t.Errorf("AvgSPR = %d, want 155", abc.AvgSPR)
	}
	if abc.Paid != 480 {
		t.Errorf("Paid = %d, want 480", abc.Paid)
	}
}

func TestRoutePlanningExactLabelMatch(t *testing.T) {
	t.Parallel()

	// The allow-list is exact: a prefix label like "Standard Parcel Medium
	// Van" does not match "Standard Parcel" here, unlike the fuzzy roster
	// path.
	html := `
	<table>
		<tr><th>DSP</th><th>Service Type</th><th>Shift Time</th><th>SPR</th></tr>
		<tr><td>ABC1</td><td>Standard Parcel Medium Van</td><td>480</td><td>160</td></tr>
	</table>`
	tables, err := dashboard.ParseTablesHTML(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := RoutePlanning(tables, RoutePlanOptions{ServiceTypeLabels: []string{"Standard Parcel"}})
	if len(got.Items) != 0 {
		t.Errorf("exact-match filter leaked: %+v", got.Items)
	}
}

func TestRoutePlanningTargetDSPs(t *testing.T) {
	t.Parallel()

	got := RoutePlanning(routePlanTables(t), RoutePlanOptions{TargetDSPs: []string{"xyz2"}})
	if len(got.Items) != 1 || got.Items[0].DSP != "XYZ2" {
		t.Fatalf("target restriction failed: %+v", got.Items)
	}
	if !strings.Contains(got.Text, "XYZ2") {
		t.Errorf("rendered text missing DSP: %q", got.Text)
	}
}

func TestRoutePlanningNoTable(t *testing.T) {
	t.Parallel()

	tables, err := dashboard.ParseTablesHTML(`<div>nothing</div>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := RoutePlanning(tables, RoutePlanOptions{})
	if len(got.Items) != 0 || got.Text != "" {
		t.Errorf("expected empty summary, got %+v", got)
	}
}
