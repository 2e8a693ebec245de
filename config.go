package cotacao

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the application-level configuration, loaded from the
// environment with an optional .env file on top.
type Config struct {
	InputFile   string // pair list (.xlsx or .csv)
	OutputFile  string // report destination (.xlsx, .csv or .json)
	HistoryFile string // sqlite history; empty disables it
	LogFile     string // rotating log destination; empty logs to stderr only

	Headless       bool
	Screenshots    bool
	Date           time.Time     // requested quote date, today when unset
	Schedule       string        // cron expression for scheduled runs
	AttemptTimeout time.Duration
	InterPairDelay time.Duration
}

// LoadConfig reads configuration from a .env file (when present) and the
// process environment. Environment variables win over .env entries.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("carregando %v: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Config{
		InputFile:      envOr("COTACAO_INPUT", "moedas.xlsx"),
		OutputFile:     envOr("COTACAO_OUTPUT", "cotacoes.xlsx"),
		HistoryFile:    envOr("COTACAO_HISTORY", "cotacoes.db"),
		LogFile:        os.Getenv("COTACAO_LOG"),
		Headless:       envBool("COTACAO_HEADLESS", true),
		Screenshots:    envBool("COTACAO_SCREENSHOTS", false),
		Schedule:       os.Getenv("COTACAO_SCHEDULE"),
		AttemptTimeout: envDuration("COTACAO_ATTEMPT_TIMEOUT", 0),
		InterPairDelay: envDuration("COTACAO_PAIR_DELAY", defaultInterPairDelay),
	}

	if raw := os.Getenv("COTACAO_DATE"); raw != "" {
		day, err := parseConfigDate(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.Date = day
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	for _, path := range []string{cfg.InputFile, cfg.OutputFile} {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("arquivos de entrada e saída são obrigatórios")
		}
	}
	return nil
}

// RequestedDate resolves the quote date, today when none was configured.
func (cfg Config) RequestedDate() time.Time {
	if cfg.Date.IsZero() {
		return DateOnly(time.Now())
	}
	return cfg.Date
}

func parseConfigDate(raw string) (time.Time, error) {
	for _, layout := range []string{reportDateLayout, "2006-01-02"} {
		if day, err := time.Parse(layout, raw); err == nil {
			return DateOnly(day), nil
		}
	}
	return time.Time{}, fmt.Errorf("data inválida %q (use DD/MM/AAAA ou AAAA-MM-DD)", raw)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
