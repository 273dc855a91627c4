package provision

import "strings"

// ColumnKind classifies a column for schema shaping. Only text columns are
// affected by widening; everything else passes through untouched.
type ColumnKind int

const (
	// ColumnOther is any non-text column.
	ColumnOther ColumnKind = iota

	// ColumnFixedText is a fixed-width text column of Length bytes.
	ColumnFixedText

	// ColumnVarText is a variable-width text column.
	ColumnVarText
)

// Column describes one column of a source table's schema, as reported by
// the platform's schema lookup.
type Column struct {
	// Name is the destination column name. SourceName keeps the original
	// spelling so row transfer can reference the source column even after
	// case normalization.
	Name       string
	SourceName string

	Kind ColumnKind

	// Length is the declared byte length for fixed-width text columns.
	Length int

	// Type is the platform-native type expression for ColumnOther columns.
	Type string

	Format string
	Label  string
}

// ShapeSchema applies the batch's column transformations to a source schema
// and returns the destination schema. Column order and formats are always
// preserved. Fixed-width text columns longer than the widen threshold become
// variable-width when widening is enabled; narrower text keeps its declared
// fixed width. Labels are dropped unless the batch asks to preserve them,
// and names are lowercased when case normalization is requested.
func ShapeSchema(cols []Column, opts Options) []Column {
	out := make([]Column, len(cols))
	for i, col := range cols {
		if col.SourceName == "" {
			col.SourceName = col.Name
		}

		if opts.WidenText && col.Kind == ColumnFixedText && col.Length > opts.WidenThreshold {
			col.Kind = ColumnVarText
			col.Length = 0
		}

		if !opts.PreserveLabels {
			col.Label = ""
		}

		if opts.LowercaseColumns {
			col.Name = strings.ToLower(col.Name)
		}

		out[i] = col
	}
	return out
}
