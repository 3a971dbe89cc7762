// Package fetch retrieves state tax pages over HTTP and FTP, falling back
// through each state's backup URLs until one yields usable content.
package fetch

import (
	"context"
	"fmt"
	"strings"
)

// Page holds the readable text of a fetched tax page with its source.
type Page struct {
	URL     string // the URL that actually served the content
	Content string // extracted plaintext
	Source  string // e.g. "http", "ftp"
}

// Fetcher retrieves a single URL and extracts its readable content.
// contentHints are state-specific CSS selectors tried after the built-ins;
// non-HTML fetchers may ignore them.
type Fetcher interface {
	Fetch(ctx context.Context, url string, contentHints []string) (*Page, error)
	Name() string
	Supports(url string) bool
}

// Attempt records one failed URL try during a chain walk.
type Attempt struct {
	URL    string
	Reason string
}

// FetchFailure reports that every candidate URL for a state failed. It
// carries the per-URL reasons for the reasoning log.
type FetchFailure struct {
	StateCode string
	Attempts  []Attempt
}

func (e *FetchFailure) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.URL, a.Reason))
	}
	return fmt.Sprintf("fetch %s: all candidate urls failed: %s", e.StateCode, strings.Join(parts, "; "))
}
