package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jszwec/csvutil"

	"github.com/semenovpa/csv_importer/internal/domain"
)

const utf8BOM = "\xef\xbb\xbf"

// csvColumns is the expected column set, in canonical order. A file may
// permute them in its header or omit the header entirely, in which case this
// order applies positionally.
var csvColumns = []string{"name", "email", "age"}

// RawRow is one CSV data row before validation. Every field stays a string so
// validation owns the typed failures instead of the decoder.
type RawRow struct {
	Name  string `csv:"name"`
	Email string `csv:"email"`
	Age   string `csv:"age"`
}

// RowReader streams RawRows out of a CSV byte stream in file order, numbering
// data rows from 1. A first line whose trimmed, lower-cased fields are exactly
// the expected column names is consumed as a header; any other first line is
// data. The whole stream is rejected up front when it is not valid UTF-8.
type RowReader struct {
	dec     *csvutil.Decoder
	pending *RawRow
	row     int
	done    bool

	// pendingMalformed is set when the very first line is unparsable: it still
	// counts as data row 1.
	pendingMalformed bool
}

func NewRowReader(r io.Reader) (*RowReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if !utf8.Valid(data) {
		return nil, domain.ErrEncoding
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rr := &RowReader{}

	header := csvColumns

	first, err := reader.Read()
	switch {
	case errors.Is(err, io.EOF):
		rr.done = true
	case err != nil:
		rr.pendingMalformed = true
	case isHeader(first):
		header = normalizeHeader(first)
	case len(first) != len(csvColumns):
		rr.pendingMalformed = true
	default:
		rr.pending = &RawRow{Name: first[0], Email: first[1], Age: first[2]}
	}

	// From here on every record must have exactly the expected field count;
	// short and long rows surface as csv.ParseError.
	reader.FieldsPerRecord = len(csvColumns)

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv decoder: %w", err)
	}
	rr.dec = dec

	return rr, nil
}

// Next returns the next data row and its 1-based number. It reports
// domain.ErrMalformedRow for rows the CSV layer rejects; callers should record
// those and keep reading. io.EOF ends the stream.
func (rr *RowReader) Next() (RawRow, int, error) {
	if rr.pendingMalformed {
		rr.pendingMalformed = false
		rr.row++
		return RawRow{}, rr.row, domain.ErrMalformedRow
	}

	if rr.pending != nil {
		row := *rr.pending
		rr.pending = nil
		rr.row++
		return row, rr.row, nil
	}

	if rr.done {
		return RawRow{}, 0, io.EOF
	}

	var row RawRow
	err := rr.dec.Decode(&row)

	var parseErr *csv.ParseError
	switch {
	case err == nil:
		rr.row++
		return row, rr.row, nil
	case errors.Is(err, io.EOF):
		rr.done = true
		return RawRow{}, 0, io.EOF
	case errors.As(err, &parseErr):
		rr.row++
		return RawRow{}, rr.row, domain.ErrMalformedRow
	default:
		return RawRow{}, 0, fmt.Errorf("failed to decode row: %w", err)
	}
}

func isHeader(fields []string) bool {
	if len(fields) != len(csvColumns) {
		return false
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range normalizeHeader(fields) {
		seen[f] = true
	}

	for _, want := range csvColumns {
		if !seen[want] {
			return false
		}
	}

	return true
}

func normalizeHeader(fields []string) []string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.ToLower(strings.TrimSpace(f))
	}

	return normalized
}
