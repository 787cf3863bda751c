package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	// Charset names a non-UTF8 source encoding (e.g. "windows-1252" for
	// Excel exports). Empty means UTF-8.
	Charset string

	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
}

// utf8BOM is stripped when present; Excel prepends it to UTF-8 CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a CSV file and returns all rows as string slices, first row
// included. Rows may have ragged lengths; short rows pad with empty fields
// downstream.
func ReadCSV(path string, opts CSVOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close()

	return parseCSV(f, opts)
}

func parseCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unknown charset %s", opts.Charset)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: parse")
	}
	return rows, nil
}
