package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// contentSelectors are tried in order to locate the main tax content area.
// State-specific fallback selectors from the rule file are appended after
// these before falling back to <body>.
var contentSelectors = []string{
	"main",
	"[role='main']",
	".main-content",
	".content",
	"#content",
	".tax-content",
}

// ExtractContent strips chrome from an HTML page and returns the readable
// text of its main content area. Paragraph breaks are preserved so later
// relevance truncation can split on sections.
func ExtractContent(html string, extraSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse html")
	}

	doc.Find("script, style, nav, footer, header").Remove()

	selectors := append(append([]string{}, contentSelectors...), extraSelectors...)
	for _, sel := range selectors {
		s := doc.Find(sel)
		if s.Length() > 0 {
			return normalizeWhitespace(s.First().Text()), nil
		}
	}

	if body := doc.Find("body"); body.Length() > 0 {
		return normalizeWhitespace(body.Text()), nil
	}
	return normalizeWhitespace(doc.Text()), nil
}

var (
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	nlPadRe  = regexp.MustCompile(` ?\n ?`)
	multiNLR = regexp.MustCompile(`\n{3,}`)
)

// normalizeWhitespace collapses space runs and blank-line runs while keeping
// double newlines as paragraph boundaries.
func normalizeWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = nlPadRe.ReplaceAllString(s, "\n")
	s = multiNLR.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// looksLikeHTML reports whether raw bytes are markup rather than plaintext.
func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<body") ||
		strings.Contains(head, "<!doctype") || strings.Contains(head, "<div")
}
