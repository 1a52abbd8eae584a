package labeling

import (
	"fmt"
	"strings"
)

// Field is one printable element of a label
type Field uint8

const (
	FieldName Field = 1 << iota
	FieldPrice
	FieldCode
	FieldBarcode
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldName, "name"},
	{FieldPrice, "price"},
	{FieldCode, "code"},
	{FieldBarcode, "barcode"},
}

// FieldSet is the set of fields the user asked to print
type FieldSet uint8

// AllFields is the default selection
const AllFields = FieldSet(FieldName | FieldPrice | FieldCode | FieldBarcode)

// smallFields is what a small label can hold
const smallFields = FieldSet(FieldCode | FieldBarcode)

// NewFieldSet builds a set from individual fields
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s |= FieldSet(f)
	}
	return s
}

// ParseFieldSet parses field names (case-insensitive). An empty list selects every field.
func ParseFieldSet(names []string) (FieldSet, error) {
	if len(names) == 0 {
		return AllFields, nil
	}
	var s FieldSet
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for _, fn := range fieldNames {
			if fn.name == name {
				s |= FieldSet(fn.field)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown label field %q", raw)
		}
	}
	if s == 0 {
		return AllFields, nil
	}
	return s, nil
}

// Has reports whether the field is in the set
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

// Names lists the fields in display order
func (s FieldSet) Names() []string {
	names := make([]string, 0, len(fieldNames))
	for _, fn := range fieldNames {
		if s.Has(fn.field) {
			names = append(names, fn.name)
		}
	}
	return names
}

// Effective applies the small-format override: small labels always print exactly
// code and barcode, whatever was requested.
func (s FieldSet) Effective(f LabelFormat) FieldSet {
	if f.IsSmall() {
		return smallFields
	}
	return s
}

// ShowTextInBarcode reports whether the human-readable line under the bars is drawn.
// It is hidden when the code is already printed as its own field.
func (s FieldSet) ShowTextInBarcode() bool {
	return !s.Has(FieldCode)
}
