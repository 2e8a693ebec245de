package cotacao

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/xuri/excelize/v2"
)

// Header synonyms accepted for the pair columns. Sheets come from several
// hands, in two languages, so matching is by lowercase containment of any
// synonym.
var (
	fromHeaders = []string{"from", "origem", "entrada", "moeda origem", "de"}
	toHeaders   = []string{"to", "destino", "saída", "saida", "moeda destino", "para"}
)

// samplePairs seeds a fresh input file with the common lookups.
var samplePairs = []CurrencyPair{
	{From: "USD", To: "BRL"},
	{From: "EUR", To: "BRL"},
	{From: "GBP", To: "BRL"},
	{From: "JPY", To: "BRL"},
	{From: "BRL", To: "USD"},
}

// ReadCurrencyPairs loads the pair list from an .xlsx or .csv file. Column
// positions are taken from the header row when one is recognized, first two
// columns otherwise. Codes are uppercased; rows without two valid codes are
// skipped.
func ReadCurrencyPairs(path string) ([]CurrencyPair, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXlsxRows(path)
	case ".csv":
		rows, err = readCsvRows(path)
	default:
		return nil, fmt.Errorf("formato de arquivo não suportado: %v", path)
	}
	if err != nil {
		return nil, err
	}
	return pairsFromRows(rows)
}

func readXlsxRows(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("planilha sem abas: %v", path)
	}
	return book.GetRows(sheets[0])
}

func readCsvRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(utfbom.SkipOnly(file))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func pairsFromRows(rows [][]string) ([]CurrencyPair, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("arquivo de pares vazio")
	}

	fromCol, toCol, hasHeader := findPairColumns(rows[0])
	data := rows
	if hasHeader {
		data = rows[1:]
	}

	var pairs []CurrencyPair
	for _, row := range data {
		if fromCol >= len(row) || toCol >= len(row) {
			continue
		}
		from := normalizeCode(row[fromCol])
		to := normalizeCode(row[toCol])
		if from == "" || to == "" {
			continue
		}
		pairs = append(pairs, CurrencyPair{From: from, To: to})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("nenhum par de moedas válido no arquivo")
	}
	return pairs, nil
}

// findPairColumns locates the from/to columns by header synonym. When the
// first row does not look like a header, the first two columns are assumed.
func findPairColumns(header []string) (fromCol, toCol int, hasHeader bool) {
	fromCol, toCol = -1, -1
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		// "destino" contains "de", so the destination list is checked
		// first.
		if toCol < 0 && matchesAny(name, toHeaders) {
			toCol = i
			continue
		}
		if fromCol < 0 && matchesAny(name, fromHeaders) {
			fromCol = i
		}
	}
	if fromCol >= 0 && toCol >= 0 {
		return fromCol, toCol, true
	}
	return 0, 1, false
}

// matchesAny accepts exact synonym matches only, except the multi-word
// forms, which may appear inside a longer caption ("Moeda origem (código)").
// Containment on the short forms would turn data rows into headers: "DEM"
// contains "de", "TOP" contains "to".
func matchesAny(name string, synonyms []string) bool {
	for _, synonym := range synonyms {
		if name == synonym {
			return true
		}
		if strings.Contains(synonym, " ") && strings.Contains(name, synonym) {
			return true
		}
	}
	return false
}

// normalizeCode uppercases a currency code and rejects anything that is not
// three letters.
func normalizeCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}

// LoadOrCreatePairs reads the pair list, creating a sample file first when
// none exists. In strict mode a missing file is an error instead.
func LoadOrCreatePairs(path string, strict bool, log Logger) ([]CurrencyPair, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if strict {
			return nil, fmt.Errorf("arquivo de pares não encontrado: %v", path)
		}
		log.Printf("arquivo %v não existe, criando exemplo", path)
		if err := CreateSamplePairsFile(path); err != nil {
			return nil, err
		}
	}
	return ReadCurrencyPairs(path)
}

// CreateSamplePairsFile writes a starter pair list, .xlsx or .csv by
// extension. An existing file is overwritten.
func CreateSamplePairsFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeSampleXlsx(path)
	case ".csv":
		return writeSampleCsv(path)
	}
	return fmt.Errorf("formato de arquivo não suportado: %v", path)
}

func writeSampleXlsx(path string) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := book.SetSheetRow(sheet, "A1", &[]string{"Moeda origem", "Moeda destino"}); err != nil {
		return err
	}
	for i, pair := range samplePairs {
		cell := fmt.Sprintf("A%d", i+2)
		if err := book.SetSheetRow(sheet, cell, &[]string{pair.From, pair.To}); err != nil {
			return err
		}
	}
	return book.SaveAs(path)
}

func writeSampleCsv(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Moeda origem", "Moeda destino"}); err != nil {
		return err
	}
	for _, pair := range samplePairs {
		if err := writer.Write([]string{pair.From, pair.To}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
