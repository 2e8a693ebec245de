package cotacao

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ptaxTestServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("@moeda"); got != "'USD'" {
			t.Errorf("@moeda = %q, want 'USD'", got)
		}
		if got := r.URL.Query().Get("@dataCotacao"); got != "'05-10-2024'" {
			t.Errorf("@dataCotacao = %q, want '05-10-2024'", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPTAXStrategyQuote(t *testing.T) {
	server := ptaxTestServer(t, `{
		"value": [{
			"cotacaoCompra": 5.1160,
			"cotacaoVenda": 5.1166,
			"dataHoraCotacao": "2024-05-10 13:09:27.279"
		}]
	}`)

	strategy := &PTAXStrategy{
		Session: NewSession("ptax-test", &BufferedLogger{}),
		BaseURL: server.URL,
	}

	quote, err := strategy.Attempt(context.Background(), CurrencyPair{From: "USD", To: "BRL"}, testDay)
	if err != nil {
		t.Fatalf("Attempt error: %v", err)
	}
	if quote.Rate != 5.1166 {
		t.Errorf("rate = %v, want the selling rate 5.1166", quote.Rate)
	}
	want := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if !quote.Date.Equal(want) {
		t.Errorf("date = %v, want %v", quote.Date, want)
	}
}

func TestPTAXStrategyHolidayIsCleanMiss(t *testing.T) {
	server := ptaxTestServer(t, `{"value": []}`)

	strategy := &PTAXStrategy{
		Session: NewSession("ptax-test", &BufferedLogger{}),
		BaseURL: server.URL,
	}

	quote, err := strategy.Attempt(context.Background(), CurrencyPair{From: "USD", To: "BRL"}, testDay)
	if err != nil {
		t.Fatalf("an empty bulletin is not an error, got: %v", err)
	}
	if quote.Rate != 0 {
		t.Errorf("rate = %v, want 0", quote.Rate)
	}
	if !quote.Date.Equal(testDay) {
		t.Errorf("date = %v, want requested %v", quote.Date, testDay)
	}
}

func TestPTAXStrategyUnsupportedPairs(t *testing.T) {
	strategy := &PTAXStrategy{Session: NewSession("ptax-test", &BufferedLogger{})}

	pairs := []CurrencyPair{
		{From: "USD", To: "EUR"}, // PTAX only quotes into BRL
		{From: "XAU", To: "BRL"}, // outside the published table
		{From: "BRL", To: "USD"}, // inverted
	}
	for _, pair := range pairs {
		_, err := strategy.Attempt(context.Background(), pair, testDay)
		var unsupported UnsupportedPairError
		if !errors.As(err, &unsupported) {
			t.Errorf("pair %v: error = %v, want UnsupportedPairError", pair, err)
		}
	}
}

func TestPTAXStrategyServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indisponível", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	strategy := &PTAXStrategy{
		Session: NewSession("ptax-test", &BufferedLogger{}),
		BaseURL: server.URL,
	}

	_, err := strategy.Attempt(context.Background(), CurrencyPair{From: "USD", To: "BRL"}, testDay)
	var responseErr ResponseError
	if !errors.As(err, &responseErr) {
		t.Errorf("error = %v, want ResponseError", err)
	}
}
