package dashboard

import "testing"

func TestParseTablesHTML(t *testing.T) {
	t.Parallel()

	html := `
		<table>
			<tr class="header-row"><th> DSP </th><th>Confirmed</th></tr>
			<tr><td>ABC1</td><td> 12 </td></tr>
			<tr class="service-type-row"><td colspan="2"></td></tr>
		</table>
		<table><tr><td>second</td></tr></table>
	`

	tables, err := ParseTablesHTML(html)
	if err != nil {
		t.Fatalf("ParseTablesHTML: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}

	first := tables[0]
	if len(first.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(first.Rows))
	}
	if first.Rows[0].Cells[0] != "DSP" {
		t.Errorf("cell text not trimmed: %q", first.Rows[0].Cells[0])
	}
	if first.Rows[1].Cells[1] != "12" {
		t.Errorf("cell text not trimmed: %q", first.Rows[1].Cells[1])
	}
	if first.Rows[2].Class != "service-type-row" {
		t.Errorf("row class not preserved: %q", first.Rows[2].Class)
	}
}

func TestRowCellOutOfRange(t *testing.T) {
	t.Parallel()

	r := Row{Cells: []string{"a"}}
	if got := r.Cell(5); got != "" {
		t.Errorf("out-of-range cell = %q, want empty", got)
	}
	if got := r.Cell(-1); got != "" {
		t.Errorf("negative index cell = %q, want empty", got)
	}
}
