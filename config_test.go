package cotacao

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"COTACAO_INPUT", "COTACAO_OUTPUT", "COTACAO_HISTORY", "COTACAO_LOG",
		"COTACAO_HEADLESS", "COTACAO_SCREENSHOTS", "COTACAO_SCHEDULE",
		"COTACAO_DATE", "COTACAO_ATTEMPT_TIMEOUT", "COTACAO_PAIR_DELAY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.InputFile != "moedas.xlsx" || cfg.OutputFile != "cotacoes.xlsx" {
		t.Errorf("default files = %q / %q", cfg.InputFile, cfg.OutputFile)
	}
	if !cfg.Headless {
		t.Error("headless should default to true")
	}
	if cfg.InterPairDelay != defaultInterPairDelay {
		t.Errorf("InterPairDelay = %v", cfg.InterPairDelay)
	}
	if !cfg.Date.IsZero() {
		t.Errorf("Date = %v, want zero", cfg.Date)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("COTACAO_INPUT", "pares.csv")
	t.Setenv("COTACAO_OUTPUT", "saida.json")
	t.Setenv("COTACAO_HEADLESS", "false")
	t.Setenv("COTACAO_DATE", "10/05/2024")
	t.Setenv("COTACAO_PAIR_DELAY", "500ms")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.InputFile != "pares.csv" || cfg.OutputFile != "saida.json" {
		t.Errorf("files = %q / %q", cfg.InputFile, cfg.OutputFile)
	}
	if cfg.Headless {
		t.Error("COTACAO_HEADLESS=false not honored")
	}
	if !cfg.Date.Equal(testDay) {
		t.Errorf("Date = %v, want %v", cfg.Date, testDay)
	}
	if cfg.InterPairDelay != 500*time.Millisecond {
		t.Errorf("InterPairDelay = %v", cfg.InterPairDelay)
	}
}

func TestLoadConfigBadDate(t *testing.T) {
	t.Setenv("COTACAO_DATE", "ontem")
	if _, err := LoadConfig(""); err == nil {
		t.Error("invalid date should fail")
	}
}

func TestLoadConfigIsoDate(t *testing.T) {
	t.Setenv("COTACAO_DATE", "2024-05-10")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if !cfg.Date.Equal(testDay) {
		t.Errorf("Date = %v", cfg.Date)
	}
}

func TestRequestedDateDefaultsToToday(t *testing.T) {
	cfg := Config{}
	if got, want := cfg.RequestedDate(), DateOnly(time.Now()); !got.Equal(want) {
		t.Errorf("RequestedDate = %v, want %v", got, want)
	}
	cfg.Date = testDay
	if !cfg.RequestedDate().Equal(testDay) {
		t.Errorf("configured date ignored")
	}
}
