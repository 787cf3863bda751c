// Package ingest turns CSV/XLSX files into typed record sets: it reads rows,
// detects the file type from the headers, normalizes column names to
// canonical fields, and drops rows with an empty primary key.
package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/model"
)

// numericFields are coerced to float64 when possible so downstream pricing
// and limit checks see numbers, not strings.
var numericFields = map[string]bool{
	"price":            true,
	"ucr_benchmark":    true,
	"coverage_limit":   true,
	"years_experience": true,
}

// ParseFile reads a CSV or XLSX file from disk and builds a ParsedFile.
// Unsupported extensions are an error.
func ParseFile(path string, csvOpts CSVOptions) (*model.ParsedFile, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = ReadCSV(path, csvOpts)
	case ".xlsx", ".xls":
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("ingest: unsupported file format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return ParseRows(rows)
}

// ParseRows builds a ParsedFile from raw rows where the first row holds the
// headers. The file type is decided here, once, and every record carries it.
func ParseRows(rows [][]string) (*model.ParsedFile, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file has no rows")
	}

	rawHeaders := rows[0]
	fileType := DetectFileType(rawHeaders)
	headers := NormalizeHeaders(rawHeaders, fileType)

	pf := &model.ParsedFile{
		Headers: headers,
		Type:    fileType,
	}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		fields := make(map[string]any, len(headers))
		for i, h := range headers {
			var raw string
			if i < len(row) {
				raw = strings.TrimSpace(row[i])
			}
			fields[h] = convertValue(h, raw)
		}

		rec := model.Record{Type: fileType, Fields: fields}
		if rec.Key() == "" {
			// No usable identity; this row must never reach the validator.
			pf.SkippedRows++
			continue
		}
		pf.Records = append(pf.Records, rec)
	}

	if pf.SkippedRows > 0 {
		zap.L().Warn("ingest: dropped rows with empty primary key",
			zap.String("type", string(fileType)),
			zap.Int("skipped", pf.SkippedRows),
		)
	}

	return pf, nil
}

func convertValue(field, raw string) any {
	if raw == "" {
		return nil
	}
	if numericFields[field] {
		if n, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64); err == nil {
			return n
		}
	}
	return raw
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
