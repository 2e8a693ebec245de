package cotacao

import (
	"context"
	"fmt"
	"time"
)

// FormStrategy drives the converter the way a person would: pick both
// currencies from the dropdowns, type the date, press Converter, read the
// result card. It is the most faithful strategy and runs first.
type FormStrategy struct {
	Browser *Browser
	Parser  ParserConfig
	URL     string // defaults to converterURL
}

func (s *FormStrategy) Name() string { return "form" }

func (s *FormStrategy) Attempt(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, error) {
	b := s.Browser
	ctx, cancel := b.strategyContext(ctx)
	defer cancel()

	entry := s.URL
	if entry == "" {
		entry = converterURL
	}
	if err := b.Navigate(ctx, entry); err != nil {
		return Quote{}, fmt.Errorf("navigate: %w", err)
	}
	if err := b.waitReady(ctx, "#button-converter-de"); err != nil {
		return Quote{}, fmt.Errorf("converter page not ready: %w", err)
	}

	b.DismissOverlays(ctx)

	if err := b.SelectDropdownOption(ctx, "button-converter-de", pair.From); err != nil {
		return Quote{}, err
	}
	if err := b.SelectDropdownOption(ctx, "button-converter-para", pair.To); err != nil {
		return Quote{}, err
	}

	// A failed date fill is not fatal: the page then quotes its own default
	// date and the mismatch is flagged downstream.
	if err := b.FillDate(ctx, day); err != nil {
		b.log.Printf("date fill: %v", err)
	}

	if err := b.ClickSubmit(ctx); err != nil {
		return Quote{}, err
	}
	if err := b.settle(ctx, b.opts.ResultDelay); err != nil {
		return Quote{}, err
	}

	b.Screenshot(fmt.Sprintf("resultado_%v_%v", pair.From, pair.To))

	return quoteFromText(resultText(ctx, b), s.Parser, pair, day), nil
}
