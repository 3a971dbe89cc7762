package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "standard ftp url",
			url:      "ftp://ftp.tax.ny.gov/pub/rates/corp2026.txt",
			wantHost: "ftp.tax.ny.gov:21",
			wantPath: "/pub/rates/corp2026.txt",
		},
		{
			name:     "ftp url with port",
			url:      "ftp://ftp.example.gov:2121/bulletins/rates.html",
			wantHost: "ftp.example.gov:2121",
			wantPath: "/bulletins/rates.html",
		},
		{
			name:    "http scheme rejected",
			url:     "https://www.tax.ny.gov/bus/ct",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.example.gov",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestFTPFetcher_Supports(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})

	assert.True(t, f.Supports("ftp://ftp.tax.ny.gov/pub/rates.txt"))
	assert.False(t, f.Supports("https://www.tax.ny.gov/bus/ct"))
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})

	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, int64(2<<20), f.opts.MaxBodyBytes)
}
