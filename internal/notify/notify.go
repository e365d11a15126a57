// Package notify posts extraction summaries to chat webhooks.
//
// Two webhook dialects are supported: Chime rooms take {"Content": ...} and
// Slack incoming webhooks take {"text": ...}. Everything else about the POST
// is identical, so the dialect is just a payload key.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"rosterwatch/internal/roster"
)

// Kind selects the webhook payload dialect.
type Kind string

const (
	KindChime Kind = "chime"
	KindSlack Kind = "slack"
)

// ParseKind validates a configured webhook kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindChime:
		return KindChime, nil
	case KindSlack:
		return KindSlack, nil
	default:
		return "", fmt.Errorf("unknown webhook kind %q (want chime or slack)", s)
	}
}

// Sender posts messages to one webhook URL.
type Sender struct {
	client  *http.Client
	url     string
	kind    Kind
	timeout time.Duration
}

// NewSender creates a Sender. If client is nil, http.DefaultClient is used.
func NewSender(client *http.Client, url string, kind Kind, timeout time.Duration) *Sender {
	if client == nil {
		client = http.DefaultClient
	}
	return &Sender{
		client:  client,
		url:     url,
		kind:    kind,
		timeout: timeout,
	}
}

// Send posts one message to the webhook.
//
// On non-2xx responses the error includes the status code and up to 4KB of
// the response body for debugging.
func (s *Sender) Send(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return nil
	}

	payload := map[string]string{"Content": message}
	if s.kind == KindSlack {
		payload = map[string]string{"text": message}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// FormatRosterSummary renders roster reconciliation results as a chat
// message, one line per DSP with a confirmed/rostered mismatch. DSPs that
// reconcile cleanly are omitted; an all-clean roster yields an empty string,
// which Send treats as nothing to post.
func FormatRosterSummary(target string, entries map[string]roster.Entry) string {
	var lines []string
	for _, dsp := range sortedKeys(entries) {
		e := entries[dsp]
		if !e.HasMismatch() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: confirmed %d vs rostered %d (%+d)",
			dsp, e.Confirmed, e.Rostered, e.Mismatch))
	}
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("Roster mismatches for %s:\n%s", target, strings.Join(lines, "\n"))
}

func sortedKeys(m map[string]roster.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
