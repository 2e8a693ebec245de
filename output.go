package cotacao

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var reportHeader = []string{
	"Moeda entrada", "Taxa", "Moeda saída", "Valor", "Data cotação", "Status",
}

// reportRow renders one rate the way the report sheet always laid it out:
// unit quantity of the source currency, value with comma decimals.
func reportRow(rate ExchangeRate) []string {
	value := ""
	if rate.Rate > 0 {
		value = strings.Replace(fmt.Sprintf("%.3f", rate.Rate), ".", ",", 1)
	}
	return []string{
		rate.Pair.From,
		"1",
		rate.Pair.To,
		value,
		rate.Date.Format(reportDateLayout),
		rate.StatusText(),
	}
}

// WriteRates persists the report to path, picking the format from the
// extension (.xlsx, .csv or .json). When the path cannot be written it
// falls back to a timestamped sibling, then to the temp directory, and
// reports the path actually used.
func WriteRates(path string, report *Report, log Logger) (string, error) {
	candidates := []string{
		path,
		alternatePath(path),
		filepath.Join(os.TempDir(), filepath.Base(path)),
	}

	var lastErr error
	for i, candidate := range candidates {
		err := writeRatesFile(candidate, report)
		if err == nil {
			if i > 0 {
				log.Printf("relatório salvo em caminho alternativo: %v", candidate)
			}
			return candidate, nil
		}
		lastErr = err
		log.Printf("falha ao salvar %v: %v", candidate, err)
	}
	return "", SaveError{Path: path, Err: lastErr}
}

// alternatePath suffixes the filename with a timestamp, keeping the
// extension, for when the original is locked (open in a spreadsheet, say).
func alternatePath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%v_%v%v", stem, time.Now().Format("20060102_150405"), ext)
}

func writeRatesFile(path string, report *Report) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeRatesXlsx(path, report)
	case ".csv":
		return writeRatesCsv(path, report)
	case ".json":
		return writeRatesJSON(path, report)
	}
	return fmt.Errorf("formato de arquivo não suportado: %v", path)
}

func writeRatesXlsx(path string, report *Report) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := book.SetSheetRow(sheet, "A1", &reportHeader); err != nil {
		return err
	}
	for i, rate := range report.Rates {
		row := reportRow(rate)
		cell := fmt.Sprintf("A%d", i+2)
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return book.SaveAs(path)
}

func writeRatesCsv(path string, report *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(reportHeader); err != nil {
		return err
	}
	for _, rate := range report.Rates {
		if err := writer.Write(reportRow(rate)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// rateRecord is the JSON shape of one rate, a flat record per pair.
type rateRecord struct {
	From   string  `json:"moedaEntrada"`
	To     string  `json:"moedaSaida"`
	Rate   float64 `json:"valor"`
	Date   string  `json:"dataCotacao"`
	Status string  `json:"status"`
	Detail string  `json:"detalhe,omitempty"`
}

func writeRatesJSON(path string, report *Report) error {
	records := make([]rateRecord, 0, len(report.Rates))
	for _, rate := range report.Rates {
		records = append(records, rateRecord{
			From:   rate.Pair.From,
			To:     rate.Pair.To,
			Rate:   rate.Rate,
			Date:   rate.Date.Format("2006-01-02"),
			Status: rate.Status.String(),
			Detail: rate.Detail,
		})
	}
	payload, err := json.MarshalIndent(map[string]interface{}{
		"dataSolicitada": report.RequestedDate.Format("2006-01-02"),
		"cotacoes":       records,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
