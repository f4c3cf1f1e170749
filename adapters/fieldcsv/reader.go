package fieldcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"socassay/domain/trial"
	"socassay/ports"
)

// Metadata columns recognized by header name, case-insensitive. Every other
// column is treated as a numeric outcome.
const (
	colYear      = "year"
	colPlot      = "plot"
	colTreatment = "treatment"
	colBlock     = "block"
	colDepth     = "depth"
)

// TrialReader reads long-format field-trial tables from CSV or Excel files.
type TrialReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewTrialReader creates a reader that handles both Excel and CSV files
func NewTrialReader(filePath string) *TrialReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &TrialReader{filePath: filePath, fileType: fileType}
}

var _ ports.TrialReader = (*TrialReader)(nil)

// ReadTable reads the trial table from the configured file.
func (r *TrialReader) ReadTable(ctx context.Context) (*trial.Table, error) {
	log.Printf("[TrialReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}

	return r.processRows(rows)
}

func (r *TrialReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	readTime := time.Since(readStart)
	log.Printf("[TrialReader] CSV file read in %.2fms (%d rows)", float64(readTime.Nanoseconds())/1e6, len(rows))

	return rows, nil
}

func (r *TrialReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	readStart := time.Now()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	readTime := time.Since(readStart)
	log.Printf("[TrialReader] Sheet1 read in %.2fms (%d rows)", float64(readTime.Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// processRows converts raw string rows into a trial table. Column order in
// the header determines the outcome order.
func (r *TrialReader) processRows(rows [][]string) (*trial.Table, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	meta := map[string]int{colYear: -1, colPlot: -1, colTreatment: -1, colBlock: -1, colDepth: -1}
	var outcomeKeys []string
	outcomeIdx := make([]int, 0, len(headers))
	for i, h := range headers {
		lower := strings.ToLower(h)
		if _, ok := meta[lower]; ok {
			meta[lower] = i
			continue
		}
		outcomeKeys = append(outcomeKeys, h)
		outcomeIdx = append(outcomeIdx, i)
	}

	for _, required := range []string{colYear, colPlot, colTreatment} {
		if meta[required] < 0 {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	if len(outcomeKeys) == 0 {
		return nil, fmt.Errorf("no outcome columns found besides metadata")
	}

	records := make([]trial.Record, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		year, err := strconv.Atoi(cell(meta[colYear]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year %q", i+1, cell(meta[colYear]))
		}

		rec := trial.Record{
			Year:      year,
			Plot:      cell(meta[colPlot]),
			Treatment: cell(meta[colTreatment]),
			Block:     cell(meta[colBlock]),
			Depth:     cell(meta[colDepth]),
			Outcomes:  make(map[string]float64, len(outcomeKeys)),
		}
		if rec.Plot == "" {
			return nil, fmt.Errorf("row %d: empty plot identifier", i+1)
		}

		for j, key := range outcomeKeys {
			raw := cell(outcomeIdx[j])
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid value %q for outcome %q", i+1, raw, key)
			}
			rec.Outcomes[key] = value
		}

		records = append(records, rec)
	}

	log.Printf("[TrialReader] %s file processed (%d outcomes, %d records)",
		strings.ToUpper(r.fileType), len(outcomeKeys), len(records))

	return &trial.Table{Records: records, OutcomeKeys: outcomeKeys}, nil
}
