package extract

import (
	"fmt"
	"net/url"
	"strings"

	"rosterwatch/internal/dashboard"
)

// CheckPage validates that a page URL belongs to one of the expected
// dashboard hosts before an extractor runs against it.
//
// This is the single loud failure of the extraction layer (see
// dashboard.ErrWrongPage): invoking an extractor against the wrong page is a
// caller-side routing bug, unlike every data-shape surprise, which resolves
// to an empty result.
//
// Behavior:
//   - An empty rawURL is accepted: stdin/file input carries no URL and the
//     caller has already decided what page it holds.
//   - hostSuffixes are matched against the URL host, case-insensitively,
//     as exact host or dot-boundary suffix ("example.com" matches
//     "mercury.example.com" but not "notexample.com").
func CheckPage(rawURL string, hostSuffixes []string) error {
	if strings.TrimSpace(rawURL) == "" || len(hostSuffixes) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: unparseable url %q", dashboard.ErrWrongPage, rawURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range hostSuffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q not in %v", dashboard.ErrWrongPage, host, hostSuffixes)
}
