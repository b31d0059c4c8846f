package parser

import (
	"fmt"
	"strings"
)

// Row is one record read from a statement file.
//
// Values are reachable by declared field name or by position. A Row is a value
// type; the backing field slice must not be modified after construction.
type Row struct {
	// Line is the zero-based record index within the file
	Line int

	// Section carries format-specific context computed while extracting, such as
	// the card number of the block the row belongs to.
	Section string

	fields []string
	index  map[string]int
}

// FieldIndex maps field names to positions. Build it once per layout.
func FieldIndex(names []string) map[string]int {
	if len(names) == 0 {
		return nil
	}
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := idx[n]; !dup {
			idx[n] = i
		}
	}
	return idx
}

// NewRow builds a row from its raw values. index may be nil for positional layouts.
func NewRow(line int, values []string, index map[string]int) Row {
	return Row{Line: line, fields: values, index: index}
}

// Lookup returns the value of the named field. ok is false when the layout has no
// such field or the record is shorter than the field's position.
func (r Row) Lookup(name string) (string, bool) {
	i, known := r.index[name]
	if !known || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

// Get returns the named field, or "" when it is missing.
func (r Row) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

// Require is Lookup that reports a missing field as ErrMissingField.
func (r Row) Require(name string) (string, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("record %d: %w: %q", r.Line, ErrMissingField, name)
	}
	return v, nil
}

// At returns the value at position i, or "" when the record is shorter.
func (r Row) At(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Len returns the number of values in the record
func (r Row) Len() int { return len(r.fields) }

// Values returns a copy of the raw values
func (r Row) Values() []string {
	cp := make([]string, len(r.fields))
	copy(cp, r.fields)
	return cp
}

// IsBlank reports whether every value is empty after trimming.
func (r Row) IsBlank() bool {
	for _, f := range r.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WithSection returns a copy of r tagged with section.
func (r Row) WithSection(section string) Row {
	r.Section = section
	return r
}
