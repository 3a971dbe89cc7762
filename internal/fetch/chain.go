package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/taxautomation/taxbot/internal/model"
)

// Chain walks a state's candidate URLs in order (primary first, then
// backups), handing each to the first fetcher that supports it. Every URL
// gets exactly one attempt; the first usable page wins.
type Chain struct {
	fetchers []Fetcher
}

// NewChain creates a Chain over the given fetchers. Fetchers are consulted
// in order for each URL.
func NewChain(fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

// FetchState returns the first page any candidate URL yields. On exhaustion
// it returns a FetchFailure carrying the per-URL reasons.
func (c *Chain) FetchState(ctx context.Context, cfg *model.StateConfig) (*Page, error) {
	var attempts []Attempt
	for _, u := range cfg.CandidateURLs() {
		if ctx.Err() != nil {
			attempts = append(attempts, Attempt{URL: u, Reason: ctx.Err().Error()})
			break
		}

		f := c.fetcherFor(u)
		if f == nil {
			attempts = append(attempts, Attempt{URL: u, Reason: "no fetcher supports url scheme"})
			continue
		}

		page, err := f.Fetch(ctx, u, cfg.Selectors.ContentArea)
		if err == nil && page != nil {
			zap.L().Info("fetch: page acquired",
				zap.String("state", cfg.StateCode),
				zap.String("url", u),
				zap.String("via", f.Name()),
				zap.Int("chars", len(page.Content)),
			)
			return page, nil
		}

		zap.L().Debug("fetch: url failed, trying next",
			zap.String("state", cfg.StateCode),
			zap.String("url", u),
			zap.String("fetcher", f.Name()),
			zap.Error(err),
		)
		attempts = append(attempts, Attempt{URL: u, Reason: err.Error()})
	}

	return nil, &FetchFailure{StateCode: cfg.StateCode, Attempts: attempts}
}

func (c *Chain) fetcherFor(rawURL string) Fetcher {
	for _, f := range c.fetchers {
		if f.Supports(rawURL) {
			return f
		}
	}
	return nil
}
