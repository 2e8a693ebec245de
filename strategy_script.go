package cotacao

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// resultMarker is the body attribute the injected probe writes its payload
// into, so the Go side can read it back without racing the fetch.
const resultMarker = "data-cotacao-resultado"

// conversionProbeScript tries the backend endpoints the converter UI is
// known (or suspected) to call, in order, and stores the first successful
// response body on the <body> marker attribute. An empty marker means every
// endpoint refused.
const conversionProbeScript = `(function(de, para, data) {
	document.body.removeAttribute('data-cotacao-resultado');
	var urls = [
		'/api/servico/sitebcb/conversao-moeda?moedaDe=' + de + '&moedaPara=' + para + '&data=' + encodeURIComponent(data),
		'/conversao/converter?de=' + de + '&para=' + para + '&data=' + encodeURIComponent(data)
	];
	var next = function(i) {
		if (i >= urls.length) {
			document.body.setAttribute('data-cotacao-resultado', '');
			return;
		}
		fetch(urls[i]).then(function(r) {
			if (!r.ok) { throw new Error('status ' + r.status); }
			return r.text();
		}).then(function(t) {
			document.body.setAttribute('data-cotacao-resultado', t);
		}).catch(function() { next(i + 1); });
	};
	next(0);
})(%q, %q, %q)`

// ScriptStrategy bypasses the UI: it injects a probe that hits likely
// backend endpoints directly and reads the payload back from a page-level
// marker. When the probe finds nothing, the current page is parsed anyway.
type ScriptStrategy struct {
	Browser *Browser
	Parser  ParserConfig
	URL     string // defaults to converterURL
}

func (s *ScriptStrategy) Name() string { return "script" }

func (s *ScriptStrategy) Attempt(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, error) {
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

	script := fmt.Sprintf(conversionProbeScript, pair.From, pair.To, day.Format(reportDateLayout))
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return Quote{}, fmt.Errorf("probe injection: %w", err)
	}

	payload, ok := s.awaitMarker(ctx)
	if ok && payload != "" {
		return quoteFromText(payload, s.Parser, pair, day), nil
	}

	// No endpoint answered; fall back to whatever the page shows.
	return quoteFromText(resultText(ctx, b), s.Parser, pair, day), nil
}

// awaitMarker polls the marker attribute until the probe writes it or the
// element-wait timeout expires.
func (s *ScriptStrategy) awaitMarker(ctx context.Context) (string, bool) {
	b := s.Browser
	deadline := time.Now().Add(b.opts.ElementWaitTimeout)
	for time.Now().Before(deadline) {
		var value string
		var present bool
		attempt, cancel := context.WithTimeout(ctx, probeTimeout)
		err := chromedp.Run(attempt,
			chromedp.AttributeValue("body", resultMarker, &value, &present, chromedp.ByQuery))
		cancel()
		if err == nil && present {
			return value, true
		}
		if err := b.settle(ctx, 200*time.Millisecond); err != nil {
			return "", false
		}
	}
	return "", false
}
