package extract

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"rosterwatch/internal/dashboard"
	"rosterwatch/internal/servicetype"
)

// Route-planning field names.
const (
	fieldServiceType = "serviceType"
	fieldShiftTime   = "shiftTime"
	fieldSPR         = "spr"
)

func routePlanSchema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 3,
		Fields: []dashboard.Field{
			{Name: fieldDSP, Synonyms: []string{"dsp", "provider"}, Anchor: true},
			{Name: fieldServiceType, Synonyms: []string{"service type"}, Anchor: true},
			{Name: fieldShiftTime, Synonyms: []string{"shift time", "shift"}},
			{Name: fieldSPR, Synonyms: []string{"spr", "stops per route", "stops/route"}},
		},
	}
}

// DSPSummary holds the per-DSP averages of a route-planning page.
type DSPSummary struct {
	DSP      string
	AvgShift int
	AvgSPR   int
	Paid     int
}

// RoutePlanOptions tune aggregation.
type RoutePlanOptions struct {
	// ServiceTypeLabels is the allow-list of planning labels a row must
	// carry, matched exactly (not fuzzily). Defaults to the full known set.
	ServiceTypeLabels []string

	// TargetDSPs, when non-empty, restricts output to these DSP codes
	// (case-insensitive).
	TargetDSPs []string

	// PaidMinutes is the paid shift length carried into every summary.
	PaidMinutes int
}

// RoutePlanSummary is the aggregate result plus its rendered text form.
type RoutePlanSummary struct {
	Items []DSPSummary
	Text  string
}

// RoutePlanning aggregates per-DSP shift-time and SPR averages from a
// route-planning summary page.
//
// Behavior:
//   - Rows are filtered to the service-type allow-list before aggregation.
//   - Averages are running sums divided by row count, rounded to nearest.
//   - Items are sorted by DSP name for deterministic output.
func RoutePlanning(tables []dashboard.Table, opts RoutePlanOptions) RoutePlanSummary {
	schema := routePlanSchema()

	labels := opts.ServiceTypeLabels
	if len(labels) == 0 {
		labels = servicetype.PlanningLabels
	}
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
	}

	targets := make(map[string]struct{}, len(opts.TargetDSPs))
	for _, d := range opts.TargetDSPs {
		d = strings.ToUpper(strings.TrimSpace(d))
		if d != "" {
			targets[d] = struct{}{}
		}
	}

	t, header, headerIdx, ok := dashboard.SelectTable(tables, schema)
	if !ok {
		return RoutePlanSummary{Items: []DSPSummary{}, Text: ""}
	}
	hm := dashboard.BuildHeaderMap(header, schema)

	type acc struct {
		shiftSum int
		sprSum   int
		rows     int
	}
	accs := make(map[string]*acc)

	for _, row := range t.Rows[headerIdx+1:] {
		if _, kept := labelSet[strings.TrimSpace(hm.Value(row, fieldServiceType))]; !kept {
			continue
		}
		dsp := strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldDSP)))
		if dsp == "" {
			continue
		}
		if len(targets) > 0 {
			if _, kept := targets[dsp]; !kept {
				continue
			}
		}
		a := accs[dsp]
		if a == nil {
			a = &acc{}
			accs[dsp] = a
		}
		a.shiftSum += dashboard.ParseCount(hm.Value(row, fieldShiftTime))
		a.sprSum += dashboard.ParseCount(hm.Value(row, fieldSPR))
		a.rows++
	}

	items := make([]DSPSummary, 0, len(accs))
	for dsp, a := range accs {
		items = append(items, DSPSummary{
			DSP:      dsp,
			AvgShift: roundedAvg(a.shiftSum, a.rows),
			AvgSPR:   roundedAvg(a.sprSum, a.rows),
			Paid:     opts.PaidMinutes,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DSP < items[j].DSP })

	return RoutePlanSummary{Items: items, Text: renderRoutePlanText(items)}
}

func roundedAvg(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

func renderRoutePlanText(items []DSPSummary) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Route planning summary:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%s: avg shift %d min, avg SPR %d, paid %d min\n", it.DSP, it.AvgShift, it.AvgSPR, it.Paid)
	}
	return strings.TrimRight(b.String(), "\n")
}
