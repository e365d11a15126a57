package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const rosterPage = `
<html><body>
<table>
	<tr><th>DSP</th><th>Confirmed</th><th>Rostered</th></tr>
	<tr><td>Standard Parcel</td></tr>
	<tr><td>ABC1</td><td>15</td><td>13</td></tr>
	<tr><td>XYZ2</td><td>8</td><td>8</td></tr>
</table>
</body></html>`

// TestRun_RosterStdin verifies the roster happy path via run() (not main())
// so the test is fast, deterministic, and needs no OS-level subprocess.
func TestRun_RosterStdin(t *testing.T) {
	t.Parallel()

	stdin := bytes.NewBufferString(rosterPage)
	var stdout, stderr bytes.Buffer

	code := run(
		context.Background(),
		[]string{"-page", "roster", "-target", "cycle1"},
		stdin,
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var got map[string]struct {
		Confirmed int
		Rostered  int
		Mismatch  int
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not valid json: %v; out=%s", err, stdout.String())
	}
	if e := got["ABC1"]; e.Confirmed != 15 || e.Rostered != 13 || e.Mismatch != 2 {
		t.Fatalf("unexpected ABC1 entry: %+v", e)
	}
	if e := got["XYZ2"]; e.Mismatch != 0 {
		t.Fatalf("XYZ2 should reconcile cleanly: %+v", e)
	}
}

func TestRun_MissingPageIsUsageError(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, bytes.NewBufferString(""), &stdout, &stderr, http.DefaultClient)
	if code != 2 {
		t.Fatalf("run returned %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "-page") {
		t.Fatalf("stderr should mention -page: %s", stderr.String())
	}
}

func TestRun_WrongHostRejected(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "job.json")
	if err := os.WriteFile(cfgPath, []byte(`{"allowed_hosts": ["example.com"]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "roster", "-config", cfgPath, "-url", "https://evil.test/ops"},
		bytes.NewBufferString(""),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 1 {
		t.Fatalf("run returned %d, want 1; stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "check page") {
		t.Fatalf("stderr should mention the page check: %s", stderr.String())
	}
}

func TestRun_BackbriefFromURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
		<table>
			<tr><th>Tracking ID</th><th>DSP</th><th>Reason</th></tr>
			<tr><td>tba1</td><td>abc1</td><td>BUSINESS_CLOSED</td></tr>
		</table>`))
	}))
	t.Cleanup(srv.Close)

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "backbrief", "-url", srv.URL},
		bytes.NewBufferString(""),
		&stdout,
		&stderr,
		srv.Client(),
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var recs []struct {
		TrackingID string
		DSP        string
		Reason     string
	}
	if err := json.Unmarshal(stdout.Bytes(), &recs); err != nil {
		t.Fatalf("stdout is not valid json: %v; out=%s", err, stdout.String())
	}
	if len(recs) != 1 || recs[0].TrackingID != "TBA1" || recs[0].Reason != "BUSINESS_CLOSED" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

// TestRun_RosterNotifyAndHistory wires a webhook and a sqlite history DB and
// verifies both receive the run.
func TestRun_RosterNotifyAndHistory(t *testing.T) {
	t.Parallel()

	var posted map[string]string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&posted)
	}))
	t.Cleanup(hook.Close)

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "history.db")
	cfgPath := filepath.Join(tmp, "job.json")
	cfg := `{
		"name": "DAB7",
		"webhook": {"url": "` + hook.URL + `", "kind": "chime"},
		"history": {"kind": "sqlite", "dsn": "` + dbPath + `"}
	}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "roster", "-target", "cycle1", "-config", cfgPath, "-notify"},
		bytes.NewBufferString(rosterPage),
		&stdout,
		&stderr,
		hook.Client(),
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	if !strings.Contains(posted["Content"], "ABC1") {
		t.Fatalf("webhook did not receive the mismatch line: %v", posted)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("history database not created: %v", err)
	}
}

func TestRun_RecentReport(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "history.db")
	cfgPath := filepath.Join(tmp, "job.json")
	cfg := `{"history": {"kind": "sqlite", "dsn": "` + dbPath + `"}}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	// First record a run, then read it back in report mode.
	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "roster", "-target", "cycle1", "-config", cfgPath},
		bytes.NewBufferString(rosterPage),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("record run returned %d; stderr=%s", code, stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	code = run(
		context.Background(),
		[]string{"-recent", "5", "-config", cfgPath},
		bytes.NewBufferString(""),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("report returned %d; stderr=%s", code, stderr.String())
	}

	var runs []struct {
		Page       string
		Target     string
		Mismatches int
	}
	if err := json.Unmarshal(stdout.Bytes(), &runs); err != nil {
		t.Fatalf("report is not valid json: %v; out=%s", err, stdout.String())
	}
	if len(runs) != 1 || runs[0].Page != "roster" || runs[0].Mismatches != 1 {
		t.Fatalf("unexpected report: %+v", runs)
	}
}

func TestRun_DirMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page1.html"), []byte(rosterPage), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "roster", "-dir", dir},
		bytes.NewBufferString(""),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ABC1") {
		t.Fatalf("dir mode output missing data: %s", stdout.String())
	}
}

func TestRun_PaidTime(t *testing.T) {
	t.Parallel()

	page := `
	<table>
		<tr><th>Route</th><th>In Shift</th></tr>
		<tr><td>CX1</td><td>480</td></tr>
		<tr><td>CX2</td><td>480</td></tr>
	</table>`

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "paidtime"},
		bytes.NewBufferString(page),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var got map[string]int
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout is not valid json: %v", err)
	}
	if got["paid_minutes"] != 480 {
		t.Fatalf("paid_minutes = %d, want 480", got["paid_minutes"])
	}
}

func TestRun_InferFromText(t *testing.T) {
	t.Parallel()

	page := `<div>Standard Parcel wave one</div><div>Multi-Use routes pending</div>`

	var stdout, stderr bytes.Buffer
	code := run(
		context.Background(),
		[]string{"-page", "infer"},
		bytes.NewBufferString(page),
		&stdout,
		&stderr,
		http.DefaultClient,
	)
	if code != 0 {
		t.Fatalf("run returned %d; stderr=%s", code, stderr.String())
	}

	var cycles []string
	if err := json.Unmarshal(stdout.Bytes(), &cycles); err != nil {
		t.Fatalf("stdout is not valid json: %v", err)
	}
	want := []string{"cycle1", "samedayB"}
	if len(cycles) != len(want) || cycles[0] != want[0] || cycles[1] != want[1] {
		t.Fatalf("inferred cycles = %v, want %v", cycles, want)
	}
}
