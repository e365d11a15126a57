// Package loader fetches dashboard HTML from a URL, stdin, or a directory of
// saved pages, with a consistent timeout policy.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Input describes where HTML should come from.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Stdin is used when URL is empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads HTML with a consistent timeout policy.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
	}
}

// Load returns the HTML source for either stdin (when input.URL is empty)
// or a fetched URL.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body for debugging.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.URL) == "" {
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "rosterwatch/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// Page is one saved HTML file read from a directory.
type Page struct {
	Name string
	HTML string
}

// LoadDir reads every regular file in dir as a saved page.
//
// Behavior:
//   - stable ordering by filename
//   - unreadable files are skipped
func LoadDir(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var pages []Page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		pages = append(pages, Page{Name: e.Name(), HTML: string(b)})
	}
	return pages, nil
}

// WaitForTables re-fetches input until ready reports that the page holds the
// table the caller is after, or the context expires.
//
// Dashboards render their tables client-side after the initial document, so a
// single fetch can land on a skeleton page. The first attempt happens
// immediately; further attempts follow at interval.
//
// Errors:
//   - A fetch error ends the wait; a transient error would repeat anyway and
//     callers decide whether to retry the whole run.
//   - Context expiry returns the last fetched HTML along with ctx.Err(), so a
//     caller may still extract whatever the skeleton carried.
func (l *Loader) WaitForTables(ctx context.Context, input Input, interval time.Duration, ready func(html string) bool) (string, error) {
	if interval <= 0 {
		interval = time.Second
	}

	html, err := l.Load(ctx, input)
	if err != nil {
		return "", err
	}
	if ready(html) {
		return html, nil
	}
	// Stdin cannot be re-read; the first attempt is all there is.
	if strings.TrimSpace(input.URL) == "" {
		return html, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return html, ctx.Err()
		case <-ticker.C:
			next, err := l.Load(ctx, input)
			if err != nil {
				// A tick can race context expiry; keep the last good HTML.
				if ctx.Err() != nil {
					return html, ctx.Err()
				}
				return "", err
			}
			html = next
			if ready(html) {
				return html, nil
			}
		}
	}
}
