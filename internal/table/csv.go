package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune   // default ','
	Comment   rune   // comment character (0 = none)
	Charset   string // source encoding label, e.g. "windows-1252" (empty = UTF-8)
}

// ReadCSV parses a header-first CSV document. Invalid UTF-8 is dropped,
// malformed rows are skipped, and every cell is trimmed.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}
	if !utf8.Valid(raw) {
		raw = []byte(strings.ToValidUTF8(string(raw), ""))
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	var rows [][]string
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, eris.Wrap(err, "csv: read row")
		}
		if len(record) > len(header) {
			skipped++
			continue
		}
		rows = append(rows, record)
	}

	if skipped > 0 {
		zap.L().Debug("csv: skipped malformed rows", zap.Int("skipped", skipped))
	}

	return clean(header, rows), nil
}
