// Package config loads the JSON job configuration for the rosterwatch CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Job holds everything a scheduled rosterwatch invocation needs: what to
// extract, where to post, and what to record.
type Job struct {
	// Name tags metrics and history rows (e.g. the station code).
	Name string `json:"name"`

	// Target is the roster service type to reconcile ("cycle1", "samedayB",
	// "samedayC"). Empty means the default.
	Target string `json:"target"`

	// TargetDSPs restricts route-planning summaries to these DSP codes.
	TargetDSPs []string `json:"target_dsps"`

	// PaidMinutes is the paid shift length carried into route-planning
	// summaries. 0 means "infer from the constraints page".
	PaidMinutes int `json:"paid_minutes"`

	// AllowedHosts are the dashboard host suffixes extraction may run
	// against. Empty disables the check (stdin/file input).
	AllowedHosts []string `json:"allowed_hosts"`

	// Webhook, when set, receives the run summary.
	Webhook *Webhook `json:"webhook"`

	// History, when set, selects a run-history database.
	History *History `json:"history"`

	// Metrics, when set, enables the Datadog backend.
	Metrics *Metrics `json:"metrics"`
}

// Webhook configures the chat relay.
type Webhook struct {
	URL  string `json:"url"`
	Kind string `json:"kind"` // "chime" or "slack"
}

// History configures the run-history database.
type History struct {
	Kind string `json:"kind"` // "sqlite", "postgres", "mssql"
	DSN  string `json:"dsn"`
}

// Metrics configures the Datadog backend.
type Metrics struct {
	Enabled bool   `json:"enabled"`
	Tags    string `json:"tags"` // comma-separated, e.g. "env:prod,station:DAB7"
}

// Load reads and validates a job configuration file.
func Load(path string) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("parse config json: %w", err)
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate checks cross-field consistency. Zero values are fine for every
// optional section; set sections must be complete.
func (j *Job) Validate() error {
	if j.Webhook != nil {
		if strings.TrimSpace(j.Webhook.URL) == "" {
			return fmt.Errorf("config: webhook.url is empty")
		}
		switch strings.ToLower(strings.TrimSpace(j.Webhook.Kind)) {
		case "chime", "slack":
		default:
			return fmt.Errorf("config: webhook.kind %q (want chime or slack)", j.Webhook.Kind)
		}
	}
	if j.History != nil {
		if strings.TrimSpace(j.History.Kind) == "" {
			return fmt.Errorf("config: history.kind is empty")
		}
		if strings.TrimSpace(j.History.DSN) == "" {
			return fmt.Errorf("config: history.dsn is empty")
		}
	}
	if j.PaidMinutes < 0 {
		return fmt.Errorf("config: paid_minutes must not be negative")
	}
	return nil
}
