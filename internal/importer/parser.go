package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Record is one parsed row keyed by normalized header. Values are either
// string or float64 depending on opportunistic numeric inference; callers
// must treat them as untyped and re-validate.
type Record map[string]any

// ParseResult is the output of parsing one uploaded file.
type ParseResult struct {
	Headers     []string `json:"headers"`
	Records     []Record `json:"records"`
	SkippedRows int      `json:"skipped_rows"`
}

// Parser turns raw file bytes into header-keyed records. It holds no state
// between calls.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "importer.parser"))}
}

// Parse reads data as CSV, or as XLSX when the file name carries an .xlsx
// extension. The first row is the header; rows with a column count that does
// not match the header are skipped and counted, never fatal.
func (p *Parser) Parse(name string, data []byte) (*ParseResult, error) {
	if len(data) == 0 {
		return nil, NewParseError("el archivo está vacío", nil)
	}
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return p.parseXLSX(name, data)
	}
	return p.parseCSV(name, data)
}

func (p *Parser) parseCSV(name string, data []byte) (*ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, NewParseError("el archivo no es texto UTF-8 válido", nil)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, NewParseError("no se pudo leer la fila de encabezados", err)
	}

	headers := normalizeHeaders(header)
	result := &ParseResult{Headers: headers}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.SkippedRows++
			continue
		}
		if len(row) != len(headers) {
			result.SkippedRows++
			continue
		}
		if rowIsEmpty(row) {
			continue
		}
		result.Records = append(result.Records, buildRecord(headers, row))
	}

	p.logger.Info("file parsed",
		slog.String("file", name),
		slog.Int("records", len(result.Records)),
		slog.Int("skipped", result.SkippedRows))

	return result, nil
}

func (p *Parser) parseXLSX(name string, data []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewParseError("no se pudo abrir el archivo XLSX", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewParseError("el archivo XLSX no contiene hojas", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewParseError("no se pudo leer la hoja de datos", err)
	}
	if len(rows) == 0 {
		return nil, NewParseError("la hoja de datos está vacía", nil)
	}

	headers := normalizeHeaders(rows[0])
	result := &ParseResult{Headers: headers}

	for _, row := range rows[1:] {
		if rowIsEmpty(row) {
			continue
		}
		// excelize trims trailing empty cells; pad back to header width.
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		}
		if len(row) > len(headers) {
			result.SkippedRows++
			continue
		}
		result.Records = append(result.Records, buildRecord(headers, row))
	}

	p.logger.Info("file parsed",
		slog.String("file", name),
		slog.String("sheet", sheets[0]),
		slog.Int("records", len(result.Records)),
		slog.Int("skipped", result.SkippedRows))

	return result, nil
}

// normalizeHeaders trims, lower-cases and collapses internal whitespace to
// underscores so header keys are stable across hand-edited files.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = NormalizeHeader(h)
	}
	return headers
}

// NormalizeHeader normalizes a single raw header cell.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func buildRecord(headers []string, row []string) Record {
	rec := make(Record, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		rec[h] = inferValue(row[i])
	}
	return rec
}

// inferValue converts numeric-looking cells to float64. Anything else stays
// a trimmed string; inference never fails a parse.
func inferValue(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return n
	}
	return s
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
