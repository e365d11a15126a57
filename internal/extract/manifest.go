package extract

import (
	"strings"

	"rosterwatch/internal/dashboard"
)

// Manifest field names.
const (
	fieldAddress    = "address"
	fieldTimeWindow = "timeWindow"
	fieldStartTime  = "startTime"
	fieldEndTime    = "endTime"
)

func manifestSchema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 3,
		Fields: []dashboard.Field{
			{Name: fieldTracking, Synonyms: []string{"tracking", "tba"}, Anchor: true},
			{Name: fieldAddress, Synonyms: []string{"address", "destination"}, Anchor: true},
			{Name: fieldTimeWindow, Synonyms: []string{"time window", "delivery window"}},
			{Name: fieldStartTime, Synonyms: []string{"start"}},
			{Name: fieldEndTime, Synonyms: []string{"end"}},
		},
	}
}

// ManifestEntry is the per-package destination info keyed by tracking ID.
type ManifestEntry struct {
	Address    string
	TimeWindow string
}

// ManifestTrackingMap extracts tracking ID -> {address, time window} from a
// route manifest page.
//
// Manifest pages render many ambiguous tables, so selection is
// best-score-wins. A record needs both a tracking ID (the key, uppercased)
// and an address; the time window falls back to start/end synthesis and the
// NoTimeWindow sentinel.
func ManifestTrackingMap(tables []dashboard.Table) map[string]ManifestEntry {
	return trackingMap(tables, manifestSchema(), true)
}

// SheetsTrackingMap extracts the same map shape from an uploaded
// spreadsheet-export table, where the address column is frequently absent.
// Records are kept on tracking ID alone.
func SheetsTrackingMap(tables []dashboard.Table) map[string]ManifestEntry {
	return trackingMap(tables, manifestSchema(), false)
}

func trackingMap(tables []dashboard.Table, schema dashboard.Schema, requireAddress bool) map[string]ManifestEntry {
	out := make(map[string]ManifestEntry)

	t, header, headerIdx, ok := dashboard.SelectTableScored(tables, schema, dashboard.ScoreOptions{
		Keywords: []string{"tba"},
	})
	if !ok {
		return out
	}
	hm := dashboard.BuildHeaderMap(header, schema)

	for _, row := range t.Rows[headerIdx+1:] {
		tracking := strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldTracking)))
		if tracking == "" {
			continue
		}
		address := strings.TrimSpace(hm.Value(row, fieldAddress))
		if requireAddress && address == "" {
			continue
		}
		out[tracking] = ManifestEntry{
			Address:    address,
			TimeWindow: hm.TimeWindow(row, fieldTimeWindow, fieldStartTime, fieldEndTime),
		}
	}
	return out
}
