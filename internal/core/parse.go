package core

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseRecords converts CSV text into records.
//
// The first row names the columns. Every later row that is not blank becomes
// one Record, with each value trimmed and passed through CastValue. A data
// row whose field count differs from the header fails the whole parse with
// *MalformedRowError; text the tokenizer rejects fails with *ParseError.
// Empty text and a header with no data rows both yield no records.
func ParseRecords(text string, fields FieldSet) ([]Record, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, toParseError(err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		if isEmptyRow(row) {
			continue
		}

		if len(row) != len(columns) {
			line, _ := r.FieldPos(0)
			return nil, &MalformedRowError{
				Row:  len(records) + 1,
				Line: line,
				Want: len(columns),
				Got:  len(row),
			}
		}

		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = CastValue(col, strings.TrimSpace(row[i]), fields)
		}
		records = append(records, rec)
	}

	return records, nil
}

// CastValue returns the stored form of one trimmed field. Values in numeric
// columns that parse in full as a finite decimal float become float64;
// everything else is returned as the text it was given. Digit separators
// ("1_000") are Go literal syntax, not CSV data, and stay text.
func CastValue(column, value string, fields FieldSet) any {
	if !fields.Has(column) || strings.ContainsRune(value, '_') {
		return value
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return value
	}
	return f
}

func toParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Column: pe.Column, Err: pe}
	}
	return &ParseError{Err: err}
}

// isEmptyRow reports whether row came from a line with no delimiters and
// nothing but whitespace. A row of empty fields such as ",," is data.
func isEmptyRow(row []string) bool {
	return len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "")
}
