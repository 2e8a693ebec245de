package cotacao

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS cotacoes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	moeda_entrada   TEXT NOT NULL,
	moeda_saida     TEXT NOT NULL,
	valor           REAL NOT NULL,
	data_cotacao    TEXT NOT NULL,
	data_solicitada TEXT NOT NULL,
	status          TEXT NOT NULL,
	detalhe         TEXT NOT NULL DEFAULT '',
	criado_em       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cotacoes_par_data
	ON cotacoes (moeda_entrada, moeda_saida, data_solicitada);
`

// Store keeps a history of every extraction run in a local sqlite file, so
// past rates survive report overwrites.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed initializes) the history database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("inicializando histórico: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRates appends every rate of a report to the history, one row per
// pair, in one transaction.
func (s *Store) SaveRates(ctx context.Context, report *Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cotacoes
			(moeda_entrada, moeda_saida, valor, data_cotacao, data_solicitada, status, detalhe, criado_em)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	requested := report.RequestedDate.Format("2006-01-02")
	for _, rate := range report.Rates {
		_, err := stmt.ExecContext(ctx,
			rate.Pair.From, rate.Pair.To, rate.Rate,
			rate.Date.Format("2006-01-02"), requested,
			rate.Status.String(), rate.Detail, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LastRate returns the most recent stored rate for a pair, or ok=false when
// the pair was never resolved.
func (s *Store) LastRate(ctx context.Context, pair CurrencyPair) (ExchangeRate, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT valor, data_cotacao, status, detalhe
		FROM cotacoes
		WHERE moeda_entrada = ? AND moeda_saida = ? AND valor > 0
		ORDER BY id DESC LIMIT 1`,
		pair.From, pair.To)

	var rate ExchangeRate
	rate.Pair = pair
	var date, status string
	if err := row.Scan(&rate.Rate, &date, &status, &rate.Detail); err != nil {
		if err == sql.ErrNoRows {
			return ExchangeRate{}, false, nil
		}
		return ExchangeRate{}, false, err
	}
	rate.Date, _ = time.Parse("2006-01-02", date)
	for st := StatusPending; st <= StatusError; st++ {
		if st.String() == status {
			rate.Status = st
			break
		}
	}
	return rate, true, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
