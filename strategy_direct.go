package cotacao

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// DirectStrategy loads the converter with the pair and date embedded as
// query parameters. The site does not document them and may ignore any or
// all, so this is strictly best-effort; whatever page comes back is parsed.
type DirectStrategy struct {
	Browser *Browser
	Parser  ParserConfig
	URL     string // defaults to converterURL
}

func (s *DirectStrategy) Name() string { return "direct-url" }

func directURL(base string, pair CurrencyPair, day time.Time) string {
	q := url.Values{}
	q.Set("de", pair.From)
	q.Set("para", pair.To)
	q.Set("data", day.Format(reportDateLayout))
	return base + "?" + q.Encode()
}

func (s *DirectStrategy) Attempt(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, error) {
	b := s.Browser
	ctx, cancel := b.strategyContext(ctx)
	defer cancel()

	entry := s.URL
	if entry == "" {
		entry = converterURL
	}
	if err := b.Navigate(ctx, directURL(entry, pair, day)); err != nil {
		return Quote{}, fmt.Errorf("navigate: %w", err)
	}

	b.DismissOverlays(ctx)

	if err := b.settle(ctx, b.opts.ResultDelay); err != nil {
		return Quote{}, err
	}

	return quoteFromText(resultText(ctx, b), s.Parser, pair, day), nil
}
