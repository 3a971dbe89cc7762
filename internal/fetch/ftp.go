package fetch

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// FTPFetcher retrieves tax documents published on state FTP servers. Some
// agencies still distribute rate bulletins this way.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	return &FTPFetcher{opts: opts}
}

func (f *FTPFetcher) Name() string { return "ftp" }

func (f *FTPFetcher) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "ftp"
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("ftp: empty path in url")
	}

	return host, path, nil
}

// Fetch connects anonymously, retrieves the file, and extracts its readable
// content. One attempt per call, like the HTTP fetcher.
func (f *FTPFetcher) Fetch(ctx context.Context, rawURL string, contentHints []string) (*Page, error) {
	host, path, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp: dial")
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, eris.Wrap(err, "ftp: retrieve")
	}
	defer func() { _ = resp.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "ftp: read body")
	}

	raw := string(body)
	var text string
	if looksLikeHTML(raw) {
		text, err = ExtractContent(raw, contentHints)
		if err != nil {
			return nil, err
		}
	} else {
		text = normalizeWhitespace(raw)
	}

	if len(text) < minContentChars {
		return nil, eris.New("ftp: empty page")
	}

	return &Page{URL: rawURL, Content: text, Source: f.Name()}, nil
}
