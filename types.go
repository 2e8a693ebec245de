package cotacao

import (
	"fmt"
	"time"
)

// CurrencyPair identifies one conversion request: From is the source
// currency and To the destination, both uppercase 3-letter codes.
type CurrencyPair struct {
	From string
	To   string
}

func (pair CurrencyPair) String() string {
	return fmt.Sprintf("%v para %v", pair.From, pair.To)
}

// Status is the terminal outcome of one pair extraction.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusOK
	StatusDateMismatch
	StatusNotFound
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusOK:
		return "OK"
	case StatusDateMismatch:
		return "DATE_MISMATCH"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusError:
		return "ERROR"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Text returns the human-readable status written to the report, in the
// wording the BCB automation always used.
func (s Status) Text() string {
	switch s {
	case StatusOK:
		return "Consulta ok"
	case StatusDateMismatch:
		return "Cotação encontrada não é da data solicitada"
	case StatusNotFound:
		return "Valor não encontrado"
	case StatusError:
		return "Erro"
	}
	return s.String()
}

// ExchangeRate is the result record for one pair in one run. Rate == 0 is
// the sentinel for "no rate found", never a real quote.
type ExchangeRate struct {
	Pair    CurrencyPair
	Rate    float64
	Date    time.Time
	Status  Status
	Detail  string // strategy name or error message, when relevant
	Elapsed time.Duration
}

// StatusText combines the fixed status wording with the error detail,
// matching the report column of the original automation.
func (r ExchangeRate) StatusText() string {
	if r.Status == StatusError && r.Detail != "" {
		return fmt.Sprintf("Erro: %v", r.Detail)
	}
	return r.Status.Text()
}

// Quote is what a conversion strategy hands back: a rate and the date the
// target claims the quote is for. A zero Rate means the strategy found
// nothing, without error.
type Quote struct {
	Rate float64
	Date time.Time
}

// RunStats aggregates terminal states over one run.
type RunStats struct {
	Total        int
	OK           int
	DateMismatch int
	NotFound     int
	Errors       int
	Elapsed      time.Duration
}

func (s RunStats) Summary() string {
	return fmt.Sprintf(
		"FIM - Processamento de cotações - Total: %d consultas, %d ok, %d com avisos, %d não encontradas, %d com erros",
		s.Total, s.OK, s.DateMismatch, s.NotFound, s.Errors)
}

// Report is the full outcome of one extraction run: one ExchangeRate per
// input pair, in input order, plus the aggregate counts.
type Report struct {
	RequestedDate time.Time
	Rates         []ExchangeRate
	Stats         RunStats
}
