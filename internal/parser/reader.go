package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var (
	// ErrDecode means the file's bytes are inconsistent with the declared encoding
	ErrDecode = errors.New("bytes do not match declared encoding")

	// ErrMissingField means a record lacks a field the layout requires
	ErrMissingField = errors.New("missing field")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Windows-1252 leaves these bytes unassigned. The WHATWG decoder maps them to C1
// controls instead of failing, so they are rejected before decoding.
var undefinedCP1252 = []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D}

// Decode converts data from the named encoding to UTF-8 text.
// Returns ErrDecode when data cannot be represented in that encoding.
func Decode(data []byte, encoding string) (string, error) {
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}

	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s", ErrDecode, encoding)
		}
		return string(data), nil
	}

	if name == "windows-1252" {
		for _, b := range undefinedCP1252 {
			if i := bytes.IndexByte(data, b); i >= 0 {
				return "", fmt.Errorf("%w: %s: undefined byte 0x%X at offset %d", ErrDecode, encoding, b, i)
			}
		}
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, encoding, err)
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("%w: %s", ErrDecode, encoding)
	}
	return string(decoded), nil
}

// ParseRecords splits decoded text into delimited records. Records may have
// differing field counts and stray quotes are kept literally.
func ParseRecords(text string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return records, nil
}

// ReadRecords reads the whole file and returns every record, headers included.
// Decoding failures are returned as ErrDecode.
func ReadRecords(path string, d Descriptor) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := Decode(data, d.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	delim := d.Delimiter
	if delim == 0 {
		delim = ','
	}
	records, err := ParseRecords(text, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadRows reads the transaction region of a file laid out as d.
//
// A file whose bytes do not decode under d.Encoding yields no rows and no error,
// so callers treat it as "not this format". Other I/O and syntax errors are returned.
func ReadRows(path string, d Descriptor) ([]Row, error) {
	records, err := ReadRecords(path, d)
	if errors.Is(err, ErrDecode) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return RowsFrom(records, d), nil
}

// RowsFrom wraps records as rows, skipping the descriptor's header records.
// Line keeps the record's position in the whole file.
func RowsFrom(records [][]string, d Descriptor) []Row {
	if len(records) <= d.HeaderRows {
		return nil
	}
	var idx map[string]int
	if !d.Positional() {
		idx = FieldIndex(d.Fields)
	}
	rows := make([]Row, 0, len(records)-d.HeaderRows)
	for i := d.HeaderRows; i < len(records); i++ {
		rows = append(rows, NewRow(i, records[i], idx))
	}
	return rows
}
