// Package extract implements the flat record extractors: backbrief,
// ongoing risks, manifest/sheets tracking maps, route-planning summaries and
// paid-time inference.
//
// Every extractor follows the same template: select a table, resolve columns
// against a schema, loop rows, normalize fields, and keep a record only when
// its minimal required field is present. Not-found conditions resolve to
// empty collections; a malformed row is skipped, never fatal.
package extract

import (
	"strings"

	"rosterwatch/internal/dashboard"
)

// UnableToAccess is the attempt-reason sentinel that backbrief pages emit
// when a driver could not reach the address. When enabled, it substitutes
// for a blank reason so the record still carries a usable failure cause.
const UnableToAccess = "UNABLE_TO_ACCESS"

// Backbrief field names.
const (
	fieldTracking      = "tracking"
	fieldDSP           = "dsp"
	fieldRoute         = "route"
	fieldAttemptReason = "attemptReason"
	fieldReason        = "reason"
)

// backbriefSchema resolves backbrief table columns. attemptReason is listed
// before reason so the "Attempt Reason" header cannot be claimed by the
// plain reason field ("reason" is a substring of "attempt reason").
func backbriefSchema() dashboard.Schema {
	return dashboard.Schema{
		MinHeaderCells: 3,
		Fields: []dashboard.Field{
			{Name: fieldTracking, Synonyms: []string{"tracking", "tba"}, Anchor: true},
			{Name: fieldDSP, Synonyms: []string{"dsp", "provider"}, Anchor: true},
			{Name: fieldRoute, Synonyms: []string{"route"}},
			{Name: fieldAttemptReason, Synonyms: []string{"attempt reason", "attempt"}},
			{Name: fieldReason, Synonyms: []string{"reason"}},
		},
	}
}

// BackbriefRecord is one failed/undelivered shipment report row. TrackingID
// and DSP are uppercased at extraction; all downstream matching relies on
// that invariant.
type BackbriefRecord struct {
	TrackingID    string
	DSP           string
	Route         string
	Reason        string
	AttemptReason string
}

// BackbriefOptions control reason handling and table selection.
type BackbriefOptions struct {
	// IncludeReasons, when non-empty, drops records whose effective reason
	// is not in the list (compared after any substitution).
	IncludeReasons []string

	// MapUnableToAccess substitutes the UNABLE_TO_ACCESS attempt reason for
	// a blank reason field.
	MapUnableToAccess bool

	// Scored switches table selection from first-match-wins to
	// best-score-wins for the newer multi-table backbrief pages.
	Scored bool
}

// Backbrief extracts failed-delivery records from a backbrief page.
//
// Behavior:
//   - Records without a tracking ID are dropped (minimal required field).
//   - Effective reason: the reason cell, unless blank and the attempt reason
//     equals UNABLE_TO_ACCESS with MapUnableToAccess set.
//   - The IncludeReasons allow-list filters on the effective reason.
func Backbrief(tables []dashboard.Table, opts BackbriefOptions) []BackbriefRecord {
	schema := backbriefSchema()

	var (
		t         dashboard.Table
		header    dashboard.Row
		headerIdx int
		ok        bool
	)
	if opts.Scored {
		t, header, headerIdx, ok = dashboard.SelectTableScored(tables, schema, dashboard.ScoreOptions{
			Keywords: []string{"tba", "reason"},
		})
	} else {
		t, header, headerIdx, ok = dashboard.SelectTable(tables, schema)
	}
	if !ok {
		return nil
	}

	hm := dashboard.BuildHeaderMap(header, schema)
	allow := buildAllowList(opts.IncludeReasons)

	var out []BackbriefRecord
	for _, row := range t.Rows[headerIdx+1:] {
		tracking := strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldTracking)))
		if tracking == "" {
			continue
		}

		rec := BackbriefRecord{
			TrackingID:    tracking,
			DSP:           strings.ToUpper(strings.TrimSpace(hm.Value(row, fieldDSP))),
			Route:         strings.TrimSpace(hm.Value(row, fieldRoute)),
			Reason:        strings.TrimSpace(hm.Value(row, fieldReason)),
			AttemptReason: strings.TrimSpace(hm.Value(row, fieldAttemptReason)),
		}

		if rec.Reason == "" && opts.MapUnableToAccess && rec.AttemptReason == UnableToAccess {
			rec.Reason = UnableToAccess
		}

		if len(allow) > 0 {
			if _, kept := allow[rec.Reason]; !kept {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func buildAllowList(reasons []string) map[string]struct{} {
	if len(reasons) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(reasons))
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if r != "" {
			out[r] = struct{}{}
		}
	}
	return out
}
