package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxautomation/taxbot/internal/model"
)

// mockFetcher implements Fetcher with per-URL canned results.
type mockFetcher struct {
	name    string
	schemes []string
	pages   map[string]*Page
	errs    map[string]error
	calls   []string
}

func (m *mockFetcher) Name() string { return m.name }

func (m *mockFetcher) Supports(u string) bool {
	if len(m.schemes) == 0 {
		return true
	}
	for _, s := range m.schemes {
		if strings.HasPrefix(u, s+"://") {
			return true
		}
	}
	return false
}

func (m *mockFetcher) Fetch(_ context.Context, u string, _ []string) (*Page, error) {
	m.calls = append(m.calls, u)
	if err, ok := m.errs[u]; ok {
		return nil, err
	}
	if p, ok := m.pages[u]; ok {
		return p, nil
	}
	return nil, errors.New("no page configured")
}

func nyConfig() *model.StateConfig {
	cfg := &model.StateConfig{
		StateName:         "New York",
		StateCode:         "NY",
		BaseURL:           "https://www.tax.ny.gov",
		TaxDefinitionsURL: "https://www.tax.ny.gov/primary",
		BackupURLs: []string{
			"https://www.tax.ny.gov/backup1",
			"https://www.tax.ny.gov/backup2",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestChain_FetchState_PrimarySucceeds(t *testing.T) {
	f := &mockFetcher{
		name: "http",
		pages: map[string]*Page{
			"https://www.tax.ny.gov/primary": {URL: "https://www.tax.ny.gov/primary", Content: "corporate tax rates", Source: "http"},
		},
	}

	chain := NewChain(f)
	page, err := chain.FetchState(context.Background(), nyConfig())

	require.NoError(t, err)
	assert.Equal(t, "https://www.tax.ny.gov/primary", page.URL)
	assert.Len(t, f.calls, 1)
}

func TestChain_FetchState_BackupWins(t *testing.T) {
	f := &mockFetcher{
		name: "http",
		errs: map[string]error{
			"https://www.tax.ny.gov/primary": errors.New("http: status 503"),
		},
		pages: map[string]*Page{
			"https://www.tax.ny.gov/backup1": {URL: "https://www.tax.ny.gov/backup1", Content: "franchise tax", Source: "http"},
		},
	}

	chain := NewChain(f)
	page, err := chain.FetchState(context.Background(), nyConfig())

	require.NoError(t, err)
	assert.Equal(t, "https://www.tax.ny.gov/backup1", page.URL)
	// First success stops the walk: backup2 never attempted.
	assert.Equal(t, []string{
		"https://www.tax.ny.gov/primary",
		"https://www.tax.ny.gov/backup1",
	}, f.calls)
}

func TestChain_FetchState_AllFail(t *testing.T) {
	f := &mockFetcher{
		name: "http",
		errs: map[string]error{
			"https://www.tax.ny.gov/primary": errors.New("http: status 503"),
			"https://www.tax.ny.gov/backup1": errors.New("http: empty page"),
			"https://www.tax.ny.gov/backup2": errors.New("http: status 404"),
		},
	}

	chain := NewChain(f)
	page, err := chain.FetchState(context.Background(), nyConfig())

	assert.Nil(t, page)
	require.Error(t, err)

	var ff *FetchFailure
	require.True(t, errors.As(err, &ff))
	assert.Equal(t, "NY", ff.StateCode)
	require.Len(t, ff.Attempts, 3)
	assert.Equal(t, "https://www.tax.ny.gov/primary", ff.Attempts[0].URL)
	assert.Contains(t, ff.Attempts[0].Reason, "503")
	assert.Contains(t, ff.Attempts[1].Reason, "empty page")
	// One attempt per configured URL, never more.
	assert.Len(t, f.calls, 3)
}

func TestChain_FetchState_SkipsUnsupportedScheme(t *testing.T) {
	cfg := nyConfig()
	cfg.BackupURLs = []string{"ftp://ftp.tax.ny.gov/pub/rates.txt"}

	httpOnly := &mockFetcher{
		name:    "http",
		schemes: []string{"http", "https"},
		errs: map[string]error{
			"https://www.tax.ny.gov/primary": errors.New("http: status 500"),
		},
	}

	chain := NewChain(httpOnly)
	_, err := chain.FetchState(context.Background(), cfg)

	var ff *FetchFailure
	require.True(t, errors.As(err, &ff))
	require.Len(t, ff.Attempts, 2)
	assert.Contains(t, ff.Attempts[1].Reason, "no fetcher supports")
	assert.Len(t, httpOnly.calls, 1)
}

func TestChain_FetchState_FTPFallback(t *testing.T) {
	cfg := nyConfig()
	cfg.BackupURLs = []string{"ftp://ftp.tax.ny.gov/pub/rates.txt"}

	httpF := &mockFetcher{
		name:    "http",
		schemes: []string{"http", "https"},
		errs: map[string]error{
			"https://www.tax.ny.gov/primary": errors.New("http: status 500"),
		},
	}
	ftpF := &mockFetcher{
		name:    "ftp",
		schemes: []string{"ftp"},
		pages: map[string]*Page{
			"ftp://ftp.tax.ny.gov/pub/rates.txt": {URL: "ftp://ftp.tax.ny.gov/pub/rates.txt", Content: "rate bulletin", Source: "ftp"},
		},
	}

	chain := NewChain(httpF, ftpF)
	page, err := chain.FetchState(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "ftp", page.Source)
	assert.Equal(t, "ftp://ftp.tax.ny.gov/pub/rates.txt", page.URL)
}
