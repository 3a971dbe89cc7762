package fetch

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; TaxBot/2.0; +https://taxautomation.com/bot)"

// minContentChars is the smallest extracted-text size accepted as a usable
// page. Thinner pages count as a failed attempt so the chain moves on.
const minContentChars = 100

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent       string
	Timeout         time.Duration
	MaxBodyBytes    int64
	MinContentChars int
	RateLimiters    map[string]*rate.Limiter
}

// DefaultRateLimiters returns polite per-host limits for known state tax sites.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return PerHostRateLimiters(2)
}

// PerHostRateLimiters builds limits for the known state tax hosts at the
// given requests-per-second rate.
func PerHostRateLimiters(perSec float64) map[string]*rate.Limiter {
	if perSec <= 0 {
		perSec = 2
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	hosts := []string{
		"www.tax.ny.gov",
		"www.ftb.ca.gov",
		"comptroller.texas.gov",
		"floridarevenue.com",
		"tax.illinois.gov",
	}
	limiters := make(map[string]*rate.Limiter, len(hosts))
	for _, h := range hosts {
		limiters[h] = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	return limiters
}

// HTTPFetcher fetches tax pages via net/http. Each call makes exactly one
// attempt; fallback across URLs is the chain's job.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MinContentChars == 0 {
		opts.MinContentChars = minContentChars
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rate.NewLimiter(5, 5)
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return rate.NewLimiter(5, 5)
}

// Fetch retrieves one URL and extracts its readable tax content.
// contentHints are state-specific CSS selectors tried after the built-ins.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, contentHints []string) (*Page, error) {
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "http: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("http: status %d", resp.StatusCode)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	mediaType := responseMediaType(resp)
	var text string
	switch {
	case mediaType == "text/plain" && !looksLikeHTML(body):
		text = normalizeWhitespace(body)
	case mediaType == "" || strings.Contains(mediaType, "html") || looksLikeHTML(body):
		text, err = ExtractContent(body, contentHints)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("http: unsupported content type %q", mediaType)
	}

	if len(text) < f.opts.MinContentChars {
		return nil, eris.New("http: empty page")
	}

	zap.L().Debug("http: page fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("chars", len(text)),
	)

	return &Page{URL: rawURL, Content: text, Source: f.Name()}, nil
}

// readBody reads the capped response body, normalizing declared charsets to
// UTF-8 before extraction.
func (f *HTTPFetcher) readBody(resp *http.Response) (string, error) {
	var r io.Reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes)

	if cs := responseCharset(resp); cs != "" && !strings.EqualFold(cs, "utf-8") {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return "", eris.Wrapf(err, "http: unsupported charset %q", cs)
		}
		r = enc.NewDecoder().Reader(r)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "http: read body")
	}
	return string(body), nil
}

func responseMediaType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediaType
}

func responseCharset(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}
