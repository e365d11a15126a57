// Command rosterwatch extracts labor and delivery data from saved or fetched
// logistics dashboard pages, reconciles confirmed vs rostered counts, and
// optionally relays a summary to a chat webhook and records the run.
//
// Usage (stdin):
//
//	cat roster.html | rosterwatch -page roster -target cycle1
//
// Usage (fetch URL, waiting for client-side rendering):
//
//	rosterwatch -page backbrief -url "https://mercury.example.com/ops" -wait 30s
//
// Usage (directory of saved pages):
//
//	rosterwatch -page manifest -dir ./pages
//
// With a job config (webhook, history database, metrics):
//
//	cat roster.html | rosterwatch -page roster -config job.json -notify
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"rosterwatch/internal/config"
	"rosterwatch/internal/dashboard"
	"rosterwatch/internal/extract"
	"rosterwatch/internal/history"
	_ "rosterwatch/internal/history/all"
	"rosterwatch/internal/loader"
	"rosterwatch/internal/metrics"
	"rosterwatch/internal/metrics/datadog"
	"rosterwatch/internal/notify"
	"rosterwatch/internal/roster"
	"rosterwatch/internal/servicetype"
)

func main() {
	os.Exit(run(
		context.Background(),
		os.Args[1:],
		os.Stdin,
		os.Stdout,
		os.Stderr,
		http.DefaultClient,
	))
}

// pageNames lists the supported -page values.
var pageNames = []string{"roster", "backbrief", "risks", "manifest", "sheets", "routeplan", "paidtime", "infer"}

// run is split out from main so we can unit test the command without spawning
// an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage/config errors
//   - 1 for operational/runtime errors
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
) int {
	fs := flag.NewFlagSet("rosterwatch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	pageFlag := fs.String("page", "", "Page to extract: "+strings.Join(pageNames, "|"))
	urlFlag := fs.String("url", "", "Optional: fetch HTML from URL instead of stdin")
	dirFlag := fs.String("dir", "", "Optional: directory containing saved HTML pages")
	configPath := fs.String("config", "", "Optional: path to job config JSON")
	targetFlag := fs.String("target", "", "Roster service type (cycle1, samedayB, samedayC)")
	dspsFlag := fs.String("dsps", "", "Comma-separated DSP codes for route-planning summaries")
	paidFlag := fs.Int("paid-minutes", 0, "Paid shift minutes for route-planning summaries")
	notifyFlag := fs.Bool("notify", false, "Post the run summary to the configured webhook")
	scoredFlag := fs.Bool("scored", false, "Use best-score table selection for backbrief pages")
	recentFlag := fs.Int("recent", 0, "Print the N most recent recorded runs and exit (requires -config with history)")
	verbose := fs.Bool("verbose", false, "Log stages to stderr")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for -url fetch")
	wait := fs.Duration("wait", 0, "Re-fetch -url until the page holds the expected table, up to this long")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := log.New(io.Discard, "", log.LstdFlags)
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	job := &config.Job{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "load config: %v\n", err)
			return 2
		}
		job = loaded
	}

	// Report mode: print recorded runs instead of extracting.
	if *recentFlag > 0 {
		return printRecentRuns(ctx, job, *recentFlag, stdout, stderr)
	}

	page := strings.ToLower(strings.TrimSpace(*pageFlag))
	if !validPage(page) {
		fmt.Fprintf(stderr, "missing or unknown -page (want one of %s)\n", strings.Join(pageNames, ", "))
		return 2
	}

	// Flags override config.
	if *targetFlag != "" {
		job.Target = *targetFlag
	}
	if *dspsFlag != "" {
		job.TargetDSPs = splitCSV(*dspsFlag)
	}
	if *paidFlag > 0 {
		job.PaidMinutes = *paidFlag
	}

	// The one loud failure: refusing to extract from the wrong page.
	if err := extract.CheckPage(*urlFlag, job.AllowedHosts); err != nil {
		fmt.Fprintf(stderr, "check page: %v\n", err)
		return 1
	}

	backend := newMetricsBackend(ctx, job, stderr)
	defer func() { _ = backend.Close() }()

	start := time.Now()
	tables, fullText, err := loadTables(ctx, loader.NewLoader(httpClient, *timeout), loader.Input{URL: *urlFlag, Stdin: stdin}, *dirFlag, *wait, page)
	if err != nil {
		fmt.Fprintf(stderr, "load html: %v\n", err)
		backend.IncCounter(metrics.MetricRuns, 1, metrics.Labels{"page": page, "status": "error"})
		return 1
	}
	logger.Printf("stage=load ok page=%s tables=%d duration=%s", page, len(tables), time.Since(start).Truncate(time.Millisecond))

	extractStart := time.Now()
	code := dispatch(ctx, page, tables, fullText, *urlFlag, job, *notifyFlag, *scoredFlag, stdout, stderr, httpClient, backend)

	status := "ok"
	if code != 0 {
		status = "error"
	}
	logger.Printf("stage=extract %s page=%s duration=%s", status, page, time.Since(extractStart).Truncate(time.Millisecond))
	backend.IncCounter(metrics.MetricRuns, 1, metrics.Labels{"page": page, "status": status})
	backend.ObserveHistogram(metrics.MetricExtractDuration, time.Since(extractStart).Seconds(), metrics.Labels{"page": page, "status": status})
	return code
}

// printRecentRuns renders the history report for -recent.
func printRecentRuns(ctx context.Context, job *config.Job, limit int, stdout, stderr io.Writer) int {
	if job.History == nil {
		fmt.Fprintf(stderr, "-recent requires a history section in the job config\n")
		return 2
	}
	repo, err := history.New(ctx, history.Config{Kind: job.History.Kind, DSN: job.History.DSN})
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	defer repo.Close()
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(stderr, "history schema: %v\n", err)
		return 1
	}
	runs, err := repo.RecentRuns(ctx, limit)
	if err != nil {
		fmt.Fprintf(stderr, "history query: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		fmt.Fprintf(stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}

func validPage(page string) bool {
	for _, p := range pageNames {
		if p == page {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newMetricsBackend(ctx context.Context, job *config.Job, stderr io.Writer) metrics.Backend {
	if job.Metrics == nil || !job.Metrics.Enabled {
		return metrics.Noop{}
	}
	b, err := datadog.NewBackend(ctx, datadog.Options{
		JobName: job.Name,
		Tags:    datadog.ParseTagsCSV(job.Metrics.Tags),
	})
	if err != nil {
		fmt.Fprintf(stderr, "metrics init: %v (continuing without metrics)\n", err)
		return metrics.Noop{}
	}
	return b
}

// loadTables fetches/reads HTML and parses every table it holds. Directory
// mode aggregates tables across all saved pages, in filename order.
func loadTables(ctx context.Context, l *loader.Loader, input loader.Input, dir string, wait time.Duration, page string) ([]dashboard.Table, string, error) {
	if dir != "" {
		pages, err := loader.LoadDir(dir)
		if err != nil {
			return nil, "", err
		}
		var tables []dashboard.Table
		var text strings.Builder
		for _, p := range pages {
			parsed, err := dashboard.ParseTablesHTML(p.HTML)
			if err != nil {
				continue
			}
			tables = append(tables, parsed...)
			text.WriteString(p.HTML)
		}
		return tables, text.String(), nil
	}

	var html string
	var err error
	if wait > 0 && strings.TrimSpace(input.URL) != "" {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		html, err = l.WaitForTables(waitCtx, input, time.Second, func(h string) bool {
			parsed, perr := dashboard.ParseTablesHTML(h)
			return perr == nil && pageReady(page, parsed)
		})
		// Deadline expiry still hands back the last fetch; extract what's there.
		if err != nil && waitCtx.Err() == nil {
			return nil, "", err
		}
	} else {
		html, err = l.Load(ctx, input)
		if err != nil {
			return nil, "", err
		}
	}

	tables, err := dashboard.ParseTablesHTML(html)
	if err != nil {
		return nil, "", err
	}
	return tables, html, nil
}

// pageReady reports whether the parsed tables already contain the table the
// requested page needs, so -wait can stop polling early.
func pageReady(page string, tables []dashboard.Table) bool {
	switch page {
	case "roster":
		_, _, _, ok := dashboard.SelectTable(tables, roster.Schema())
		return ok
	default:
		return len(tables) > 0
	}
}

func dispatch(
	ctx context.Context,
	page string,
	tables []dashboard.Table,
	fullText string,
	pageURL string,
	job *config.Job,
	notifyRequested bool,
	scored bool,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
	backend metrics.Backend,
) int {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	switch page {
	case "roster":
		return runRoster(ctx, tables, job, notifyRequested, enc, stderr, httpClient, backend)

	case "backbrief":
		recs := extract.Backbrief(tables, extract.BackbriefOptions{
			MapUnableToAccess: true,
			Scored:            scored,
		})
		backend.IncCounter(metrics.MetricRows, float64(len(recs)), metrics.Labels{"kind": "backbrief"})
		return encodeResult(enc, recs, stderr)

	case "risks":
		recs := extract.OngoingRisks(tables)
		backend.IncCounter(metrics.MetricRows, float64(len(recs)), metrics.Labels{"kind": "risks"})
		return encodeResult(enc, recs, stderr)

	case "manifest":
		m := extract.ManifestTrackingMap(tables)
		backend.IncCounter(metrics.MetricRows, float64(len(m)), metrics.Labels{"kind": "manifest"})
		return encodeResult(enc, m, stderr)

	case "sheets":
		m := extract.SheetsTrackingMap(tables)
		backend.IncCounter(metrics.MetricRows, float64(len(m)), metrics.Labels{"kind": "sheets"})
		return encodeResult(enc, m, stderr)

	case "routeplan":
		summary := extract.RoutePlanning(tables, extract.RoutePlanOptions{
			TargetDSPs:  job.TargetDSPs,
			PaidMinutes: job.PaidMinutes,
		})
		backend.IncCounter(metrics.MetricRows, float64(len(summary.Items)), metrics.Labels{"kind": "routeplan"})
		if notifyRequested {
			if code := sendSummary(ctx, job, summary.Text, stderr, httpClient); code != 0 {
				return code
			}
		}
		return encodeResult(enc, summary, stderr)

	case "paidtime":
		minutes := extract.PaidTimeFromConstraints(tables)
		return encodeResult(enc, map[string]int{"paid_minutes": minutes}, stderr)

	case "infer":
		cycles := servicetype.Infer(pageURL, tables, fullText)
		return encodeResult(enc, cycles.Sorted(), stderr)
	}

	fmt.Fprintf(stderr, "unknown page %q\n", page)
	return 2
}

func runRoster(
	ctx context.Context,
	tables []dashboard.Table,
	job *config.Job,
	notifyRequested bool,
	enc *json.Encoder,
	stderr io.Writer,
	httpClient *http.Client,
	backend metrics.Backend,
) int {
	target := servicetype.DefaultCycle
	if job.Target != "" {
		c, ok := servicetype.Canonical(job.Target)
		if !ok {
			fmt.Fprintf(stderr, "unknown target service type %q\n", job.Target)
			return 2
		}
		target = c
	}

	entries := roster.Extract(tables, target)
	backend.IncCounter(metrics.MetricRows, float64(len(entries)), metrics.Labels{"kind": "roster"})

	var confirmed, rostered, mismatched int
	var mismatches []history.Mismatch
	for _, e := range entries {
		confirmed += e.Confirmed
		rostered += e.Rostered
		if e.HasMismatch() {
			mismatched++
			mismatches = append(mismatches, history.Mismatch{
				DSP: e.DSP, Confirmed: e.Confirmed, Rostered: e.Rostered, Delta: e.Mismatch,
			})
		}
	}
	backend.IncCounter(metrics.MetricMismatches, float64(mismatched), metrics.Labels{"target": string(target)})

	if job.History != nil {
		repo, err := history.New(ctx, history.Config{Kind: job.History.Kind, DSN: job.History.DSN})
		if err != nil {
			fmt.Fprintf(stderr, "history: %v\n", err)
			return 1
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			fmt.Fprintf(stderr, "history schema: %v\n", err)
			return 1
		}
		run := history.Run{
			Page:       "roster",
			Target:     string(target),
			At:         time.Now(),
			Confirmed:  confirmed,
			Rostered:   rostered,
			Mismatches: mismatched,
		}
		if _, err := repo.RecordRun(ctx, run, mismatches); err != nil {
			fmt.Fprintf(stderr, "history record: %v\n", err)
			return 1
		}
	}

	if notifyRequested {
		summary := notify.FormatRosterSummary(string(target), entries)
		if code := sendSummary(ctx, job, summary, stderr, httpClient); code != 0 {
			return code
		}
	}

	return encodeResult(enc, entries, stderr)
}

func sendSummary(ctx context.Context, job *config.Job, message string, stderr io.Writer, httpClient *http.Client) int {
	if job.Webhook == nil {
		fmt.Fprintf(stderr, "-notify requires a webhook in the job config\n")
		return 2
	}
	kind, err := notify.ParseKind(job.Webhook.Kind)
	if err != nil {
		fmt.Fprintf(stderr, "webhook: %v\n", err)
		return 2
	}
	sender := notify.NewSender(httpClient, job.Webhook.URL, kind, 10*time.Second)
	if err := sender.Send(ctx, message); err != nil {
		fmt.Fprintf(stderr, "send summary: %v\n", err)
		return 1
	}
	return 0
}

func encodeResult(enc *json.Encoder, v any, stderr io.Writer) int {
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}
