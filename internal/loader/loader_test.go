package loader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestLoader_Stdin verifies stdin input is read and returned as string.
//
// This is the most common mode when piping a saved dashboard page in.
func TestLoader_Stdin(t *testing.T) {
	t.Parallel()

	l := NewLoader(http.DefaultClient, 1*time.Second)
	html, err := l.Load(context.Background(), Input{
		Stdin: bytes.NewBufferString("<p>x</p>"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if html != "<p>x</p>" {
		t.Fatalf("unexpected html: %q", html)
	}
}

// TestLoader_URL_Non2xx verifies we include status code and a body snippet.
// This dramatically improves debuggability when scraping.
func TestLoader_URL_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(&http.Client{Timeout: 2 * time.Second}, 2*time.Second)
	_, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "http status 403") || !strings.Contains(msg, "nope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.html": "<p>b</p>",
		"a.html": "<p>a</p>",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	pages, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Name != "a.html" || pages[1].Name != "b.html" {
		t.Fatalf("pages not sorted by name: %v, %v", pages[0].Name, pages[1].Name)
	}
	if pages[0].HTML != "<p>a</p>" {
		t.Fatalf("unexpected body: %q", pages[0].HTML)
	}
}

// TestWaitForTables_EventualRender simulates a dashboard that renders its
// table only on the second fetch.
func TestWaitForTables_EventualRender(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			w.Write([]byte("<div>loading</div>"))
			return
		}
		w.Write([]byte("<table><tr><td>ok</td></tr></table>"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(srv.Client(), 2*time.Second)
	html, err := l.WaitForTables(context.Background(), Input{URL: srv.URL}, 10*time.Millisecond,
		func(h string) bool { return strings.Contains(h, "<table>") })
	if err != nil {
		t.Fatalf("WaitForTables: %v", err)
	}
	if !strings.Contains(html, "ok") {
		t.Fatalf("did not reach rendered page: %q", html)
	}
}

// TestWaitForTables_Timeout verifies the last skeleton HTML is still returned
// alongside the context error.
func TestWaitForTables_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<div>loading</div>"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l := NewLoader(srv.Client(), 2*time.Second)
	html, err := l.WaitForTables(ctx, Input{URL: srv.URL}, 10*time.Millisecond,
		func(string) bool { return false })
	if err == nil {
		t.Fatal("expected context error")
	}
	if !strings.Contains(html, "loading") {
		t.Fatalf("skeleton html not returned: %q", html)
	}
}

// TestWaitForTables_StdinSingleShot verifies stdin is never re-read.
func TestWaitForTables_StdinSingleShot(t *testing.T) {
	t.Parallel()

	l := NewLoader(http.DefaultClient, time.Second)
	html, err := l.WaitForTables(context.Background(),
		Input{Stdin: bytes.NewBufferString("<div>skeleton</div>")},
		time.Millisecond, func(string) bool { return false })
	if err != nil {
		t.Fatalf("WaitForTables: %v", err)
	}
	if html != "<div>skeleton</div>" {
		t.Fatalf("unexpected html: %q", html)
	}
}
