package extract

import (
	"strings"

	"rosterwatch/internal/dashboard"
)

// Ongoing-risk field names.
const (
	fieldRiskType = "riskType"
	fieldStatus   = "status"
)

func risksSchema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 3,
		Fields: []dashboard.Field{
			{Name: fieldDSP, Synonyms: []string{"dsp", "provider"}, Anchor: true},
			{Name: fieldRoute, Synonyms: []string{"route"}, Anchor: true},
			{Name: fieldRiskType, Synonyms: []string{"risk"}},
			{Name: fieldStatus, Synonyms: []string{"status"}},
		},
	}
}

// RiskRecord is one row of the Mercury ongoing-risks dashboard, keyed by
// (DSP, route). Either key alone is informative, so a record is kept when at
// least one of the pair is present.
type RiskRecord struct {
	DSP      string
	Route    string
	RiskType string
	Status   string
}

// OngoingRisks extracts risk records from a risk dashboard page.
// DSP and route codes are uppercased at extraction.
func OngoingRisks(tables []dashboard.Table) []RiskRecord {
	schema := risksSchema()
	t, header, headerIdx, ok := dashboard.SelectTable(tables, schema)
	if !ok {
		return nil
	}
	hm := dashboard.BuildHeaderMap(header, schema)

	var out []RiskRecord
	for _, row := range t.Rows[headerIdx+1:] {
		rec := RiskRecord{
			DSP:      strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldDSP))),
			Route:    strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldRoute))),
			RiskType: strings.TrimSpace(hm.Value(row, fieldRiskType)),
			Status:   strings.TrimSpace(hm.Value(row, fieldStatus)),
		}
		if rec.DSP == "" && rec.Route == "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}
