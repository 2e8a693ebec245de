package cotacao

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const ptaxBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

// ptaxCurrencies lists the currencies the PTAX open-data service publishes
// daily closing rates for. PTAX only quotes against BRL.
var ptaxCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"JPY": true,
	"CHF": true,
	"CAD": true,
	"AUD": true,
	"DKK": true,
	"NOK": true,
	"SEK": true,
}

// PTAXStrategy queries the central bank's open-data API instead of the
// converter page. It is the last resort when every browser strategy came up
// empty, and only covers the published currencies quoted into BRL.
type PTAXStrategy struct {
	Session *Session
	BaseURL string // defaults to ptaxBaseURL
}

func (s *PTAXStrategy) Name() string { return "ptax" }

type ptaxResponse struct {
	Value []struct {
		CotacaoCompra   float64 `json:"cotacaoCompra"`
		CotacaoVenda    float64 `json:"cotacaoVenda"`
		DataHoraCotacao string  `json:"dataHoraCotacao"`
	} `json:"value"`
}

func (s *PTAXStrategy) Attempt(ctx context.Context, pair CurrencyPair, day time.Time) (Quote, error) {
	if pair.To != "BRL" || !ptaxCurrencies[pair.From] {
		return Quote{}, UnsupportedPairError{pair}
	}

	base := s.BaseURL
	if base == "" {
		base = ptaxBaseURL
	}
	query := url.Values{}
	query.Set("@moeda", fmt.Sprintf("'%v'", pair.From))
	query.Set("@dataCotacao", fmt.Sprintf("'%v'", day.Format("01-02-2006")))
	query.Set("$top", "1")
	query.Set("$orderby", "dataHoraCotacao desc")
	query.Set("$format", "json")
	endpoint := fmt.Sprintf("%v/CotacaoMoedaDia(moeda=@moeda,dataCotacao=@dataCotacao)?%v",
		base, query.Encode())

	response, err := s.Session.GetContext(ctx, endpoint)
	if err != nil {
		return Quote{}, err
	}

	var payload ptaxResponse
	if err := response.JSON(&payload); err != nil {
		return Quote{}, fmt.Errorf("ptax payload: %w", err)
	}
	if len(payload.Value) == 0 {
		// No bulletin for the day (weekend or holiday). A clean miss, not
		// an error.
		return Quote{Date: DateOnly(day)}, nil
	}

	entry := payload.Value[0]
	date, err := time.Parse("2006-01-02 15:04:05.999", entry.DataHoraCotacao)
	if err != nil {
		date = day
	}
	return Quote{Rate: entry.CotacaoVenda, Date: DateOnly(date)}, nil
}
