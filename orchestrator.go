package cotacao

import (
	"context"
	"fmt"
	"time"
)

// defaultInterPairDelay spaces consecutive pair lookups so the target never
// sees a burst.
const defaultInterPairDelay = 2 * time.Second

// Extractor runs the whole extraction: one browser session, every requested
// pair in order, one ExchangeRate per pair no matter what happens to it.
type Extractor struct {
	Options        BrowserOptions
	Parser         ParserConfig
	Log            Logger
	InterPairDelay time.Duration
	Session        *Session // PTAX fallback transport; built on demand when nil

	// test seams
	startBrowser    func(BrowserOptions, Logger) (*Browser, error)
	buildStrategies func(*Browser) *strategySet
}

// NewExtractor wires an extractor with the default browser launcher and
// strategy chain.
func NewExtractor(opts BrowserOptions, parser ParserConfig, log Logger) *Extractor {
	if log == nil {
		log = &ConsoleLogger{}
	}
	return &Extractor{
		Options:        opts,
		Parser:         parser,
		Log:            log,
		InterPairDelay: defaultInterPairDelay,
	}
}

func (e *Extractor) launcher() func(BrowserOptions, Logger) (*Browser, error) {
	if e.startBrowser != nil {
		return e.startBrowser
	}
	return NewBrowser
}

func (e *Extractor) strategies(b *Browser) *strategySet {
	if e.buildStrategies != nil {
		return e.buildStrategies(b)
	}
	session := e.Session
	if session == nil {
		session = NewSession("ptax", e.Log)
	}
	return &strategySet{
		ordered: []ConversionStrategy{
			&FormStrategy{Browser: b, Parser: e.Parser},
			&DirectStrategy{Browser: b, Parser: e.Parser},
			&ScriptStrategy{Browser: b, Parser: e.Parser},
		},
		fallback: &PTAXStrategy{Session: session},
		log:      e.Log,
	}
}

// Run resolves every pair against the requested date. The browser is
// released exactly once, whatever happens mid-run. A browser launch failure
// is the only fatal outcome; everything after that degrades per pair.
func (e *Extractor) Run(ctx context.Context, pairs []CurrencyPair, day time.Time) (*Report, error) {
	day = DateOnly(day)
	e.Log.Printf("INÍCIO - Processamento de cotações - data %v - %v pares",
		day.Format(reportDateLayout), len(pairs))

	started := time.Now()
	browser, err := e.launcher()(e.Options, e.Log)
	if err != nil {
		return nil, err
	}
	defer browser.Close()

	set := e.strategies(browser)

	report := &Report{
		RequestedDate: day,
		Rates:         make([]ExchangeRate, 0, len(pairs)),
	}

	for i, pair := range pairs {
		if i > 0 {
			e.pause(ctx)
		}
		if ctx.Err() != nil {
			// Run cancelled: the remaining pairs still get a record.
			for _, left := range pairs[i:] {
				report.Rates = append(report.Rates, erroredRate(left, day, ctx.Err()))
				report.Stats.Errors++
				report.Stats.Total++
			}
			break
		}

		rate := e.resolvePair(ctx, set, pair, day)
		e.Log.Printf("CONSULTA - %v - %v (%v) em %v",
			pair, rate.Status, rate.StatusText(), rate.Elapsed.Round(time.Millisecond))

		report.Rates = append(report.Rates, rate)
		report.Stats.Total++
		switch rate.Status {
		case StatusOK:
			report.Stats.OK++
		case StatusDateMismatch:
			report.Stats.DateMismatch++
		case StatusNotFound:
			report.Stats.NotFound++
		default:
			report.Stats.Errors++
		}
	}

	report.Stats.Elapsed = time.Since(started)
	e.Log.Printf("%v", report.Stats.Summary())
	return report, nil
}

// resolvePair runs the strategy chain for one pair and classifies the
// outcome. A panic anywhere inside a strategy becomes an error record, not
// a dead run.
func (e *Extractor) resolvePair(ctx context.Context, set *strategySet, pair CurrencyPair, day time.Time) (rate ExchangeRate) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.Log.Printf("CONSULTA - %v - pânico recuperado: %v", pair, r)
			rate = erroredRate(pair, day, fmt.Errorf("pânico: %v", r))
			rate.Elapsed = time.Since(start)
		}
	}()

	quote, strategy, err := set.resolve(ctx, pair, day)
	elapsed := time.Since(start)
	if err != nil {
		rate = erroredRate(pair, day, err)
		rate.Elapsed = elapsed
		return rate
	}

	rate = ExchangeRate{
		Pair:    pair,
		Rate:    quote.Rate,
		Date:    quote.Date,
		Elapsed: elapsed,
	}
	switch {
	case quote.Rate <= 0:
		rate.Status = StatusNotFound
		rate.Date = day
	case quote.Date.Equal(day):
		rate.Status = StatusOK
		rate.Detail = strategy
	default:
		rate.Status = StatusDateMismatch
		rate.Detail = strategy
	}
	return rate
}

func erroredRate(pair CurrencyPair, day time.Time, err error) ExchangeRate {
	return ExchangeRate{
		Pair:   pair,
		Date:   day,
		Status: StatusError,
		Detail: err.Error(),
	}
}

// pause waits the inter-pair delay, honoring cancellation.
func (e *Extractor) pause(ctx context.Context) {
	delay := e.InterPairDelay
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
