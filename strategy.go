package cotacao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// converterURL is the known entry point every browser strategy re-navigates
// from, so one strategy's leftovers never break the next.
const converterURL = "https://www.bcb.gov.br/conversao"

// ConversionStrategy is one alternative way of obtaining a rate for a pair.
// Attempt reports a zero-rate Quote, without error, when the target simply
// had nothing; an error means the procedure itself broke.
type ConversionStrategy interface {
	Name() string
	Attempt(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, error)
}

// strategySet dispatches the browser strategies in fixed priority order and
// the public-data fallback once, last. First rate > 0 wins.
type strategySet struct {
	ordered  []ConversionStrategy
	fallback ConversionStrategy
	log      Logger
}

// resolve runs the dispatch for one pair. It returns the winning quote and
// strategy name. The error is non-nil only when no strategy completed
// cleanly; a clean "nothing found" beats a pile of failures.
func (s *strategySet) resolve(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, string, error) {
	var errs []error
	anyClean := false

	all := s.ordered
	if s.fallback != nil {
		all = append(append([]ConversionStrategy{}, s.ordered...), s.fallback)
	}

	for _, strategy := range all {
		quote, err := strategy.Attempt(ctx, pair, day)
		if err != nil {
			s.log.Printf("CONSULTA - %v - estratégia %v falhou: %v", pair, strategy.Name(), err)
			errs = append(errs, fmt.Errorf("%v: %w", strategy.Name(), err))
			continue
		}
		if quote.Rate > 0 {
			return quote, strategy.Name(), nil
		}
		anyClean = true
		s.log.Printf("CONSULTA - %v - estratégia %v não encontrou valor", pair, strategy.Name())
	}

	if anyClean {
		return Quote{Date: DateOnly(day)}, "", nil
	}
	return Quote{}, "", errors.Join(errs...)
}

// quoteFromText runs the parser over extracted page text with the pair's
// plausibility band.
func quoteFromText(text string, parser ParserConfig, pair CurrencyPair, day time.Time) Quote {
	return Quote{
		Rate: ParseRate(text, parser.BoundsForPair(pair)),
		Date: ParseQuoteDate(text, day, parser.DateTolerance),
	}
}

// resultText pulls the conversion result card's rendered text, falling back
// to the whole page when the card is missing or renamed.
func resultText(ctx context.Context, b *Browser) string {
	var text string
	card, cancel := context.WithTimeout(ctx, probeTimeout)
	err := chromedp.Run(card, chromedp.Text("div.card-body", &text, chromedp.ByQuery))
	cancel()
	if err == nil && text != "" {
		return text
	}

	var html string
	whole, cancel := context.WithTimeout(ctx, probeTimeout)
	err = chromedp.Run(whole, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	cancel()
	if err != nil {
		return ""
	}
	return PageText(html)
}
